package endpoint

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ariebrainware/sehatec/assistant"
	"github.com/ariebrainware/sehatec/middleware"
	"github.com/ariebrainware/sehatec/model"
	"github.com/ariebrainware/sehatec/util"
	"github.com/gin-gonic/gin"
)

const defaultUploadType = "medical"

type ChatRequest struct {
	Question string `json:"question" example:"What is my status?"`
}

type OverviewResponse struct {
	NationalID         string              `json:"national_id"`
	Name               string              `json:"name"`
	TotalPrescriptions int                 `json:"total_prescriptions"`
	Latest             *model.Prescription `json:"latest"`
}

// patientOrRespond loads the record of the signed-in patient.
func patientOrRespond(c *gin.Context, svc *middleware.Services) (model.Patient, bool) {
	nid, _ := middleware.GetUserID(c)
	patient, found := svc.Patients.FindPatient(nid)
	if !found {
		logLookupMiss(c, nid, errPatientNotRegistered)
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Patient not found. Please contact your doctor to register you.",
			Err: errPatientNotRegistered,
		})
		return model.Patient{}, false
	}
	return patient, true
}

// PatientOverview summarizes the signed-in patient's record.
func PatientOverview(c *gin.Context) {
	svc, ok := servicesOrRespond(c)
	if !ok {
		return
	}
	patient, ok := patientOrRespond(c, svc)
	if !ok {
		return
	}

	resp := OverviewResponse{
		NationalID:         patient.NationalID,
		Name:               patient.Name,
		TotalPrescriptions: len(patient.Prescriptions),
	}
	if latest, ok := patient.Latest(); ok {
		resp.Latest = &latest
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Overview retrieved", Data: resp})
}

// PatientPrescriptions lists the signed-in patient's prescriptions, oldest first.
func PatientPrescriptions(c *gin.Context) {
	svc, ok := servicesOrRespond(c)
	if !ok {
		return
	}
	patient, ok := patientOrRespond(c, svc)
	if !ok {
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Prescriptions retrieved",
		Data: patient.Prescriptions,
	})
}

// UploadPrescriptionFile attaches a PDF or image to one of the patient's prescriptions.
func UploadPrescriptionFile(c *gin.Context) {
	svc, ok := servicesOrRespond(c)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid prescription id", Err: fmt.Errorf("invalid id %q", c.Param("id"))})
		return
	}
	patient, ok := patientOrRespond(c, svc)
	if !ok {
		return
	}

	limit := svc.MaxUploadBytes
	// Leave room for the multipart envelope around the file.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)

	fh, err := c.FormFile("file")
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "A file is required", Err: err})
		return
	}
	if fh.Size > limit {
		util.CallUserError(c, util.APIErrorParams{Msg: "File is too large", Err: fmt.Errorf("file exceeds %d bytes", limit)})
		return
	}

	f, err := fh.Open()
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to read file", Err: err})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to read file", Err: err})
		return
	}
	if int64(len(data)) > limit {
		util.CallUserError(c, util.APIErrorParams{Msg: "File is too large", Err: fmt.Errorf("file exceeds %d bytes", limit)})
		return
	}

	dataURL, err := util.EncodeDataURL(fh.Filename, data)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Only PDF, JPG and PNG files are accepted", Err: err})
		return
	}

	uploadType := strings.TrimSpace(c.PostForm("type"))
	if uploadType == "" {
		uploadType = defaultUploadType
	}

	upload := model.Upload{Name: fh.Filename, Type: uploadType, Data: dataURL}
	updated, err := svc.Patients.AttachUpload(c.Request.Context(), patient.NationalID, id, upload)
	if err != nil {
		logLookupMiss(c, patient.NationalID, err)
		respondRepositoryError(c, err, "Failed to attach file")
		return
	}

	util.LogRecordEvent(util.RecordEventParams{
		EventType: util.EventUploadAttached,
		UserID:    patient.NationalID,
		Role:      string(model.RolePatient),
		Subject:   patient.NationalID,
		Message:   "File attached to prescription",
		Details:   map[string]interface{}{"prescription_id": id, "type": uploadType, "size": len(data), "image": upload.IsImage()},
	})
	util.CallSuccessCreated(c, util.APISuccessParams{
		Msg:  "File uploaded",
		Data: updated,
	})
}

// GetChat returns the conversation of the current session.
func GetChat(c *gin.Context) {
	svc, ok := servicesOrRespond(c)
	if !ok {
		return
	}
	sess, ok := sessionOrRespond(c)
	if !ok {
		return
	}
	patient, ok := patientOrRespond(c, svc)
	if !ok {
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Conversation retrieved",
		Data: svc.Conversations.Get(sess.ID, patient).Turns(),
	})
}

// AskChat sends a question to the assistant and returns the new turns.
func AskChat(c *gin.Context) {
	var req ChatRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	svc, ok := servicesOrRespond(c)
	if !ok {
		return
	}
	sess, ok := sessionOrRespond(c)
	if !ok {
		return
	}
	patient, ok := patientOrRespond(c, svc)
	if !ok {
		return
	}

	turns, err := svc.Conversations.Ask(c.Request.Context(), sess.ID, patient, req.Question)
	switch {
	case errors.Is(err, assistant.ErrEmptyQuestion):
		util.CallUserError(c, util.APIErrorParams{Msg: "Please enter a question", Err: err})
		return
	case errors.Is(err, assistant.ErrConversationClosed):
		util.CallConflict(c, util.APIErrorParams{Msg: "The conversation has ended", Err: err})
		return
	case err != nil:
		util.CallServerError(c, util.APIErrorParams{Msg: "The request was cancelled", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Reply received",
		Data: turns,
	})
}
