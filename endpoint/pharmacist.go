package endpoint

import (
	"errors"

	"github.com/ariebrainware/sehatec/middleware"
	"github.com/ariebrainware/sehatec/model"
	"github.com/ariebrainware/sehatec/util"
	"github.com/gin-gonic/gin"
)

var errNoPrescriptions = errors.New("no prescriptions found")

type DispenseRequest struct {
	// PrescriptionID selects the prescription; zero means the latest one.
	PrescriptionID int64  `json:"prescription_id" example:"1717171717171"`
	Notes          string `json:"notes" example:"Take after meals"`
	Confirm        bool   `json:"confirm"`
}

type PharmacistPatientResponse struct {
	Patient     model.Patient `json:"patient"`
	LatestIndex int           `json:"latest_index"`
}

// PharmacistLookup returns a patient's prescriptions for dispensing.
func PharmacistLookup(c *gin.Context) {
	nid, ok := nationalIDParamOrRespond(c)
	if !ok {
		return
	}
	svc, ok := servicesOrRespond(c)
	if !ok {
		return
	}

	patient, found := svc.Patients.FindPatient(nid)
	if !found || len(patient.Prescriptions) == 0 {
		logLookupMiss(c, nid, errPatientNotRegistered)
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "No prescriptions found", Err: errNoPrescriptions})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Prescriptions retrieved",
		Data: PharmacistPatientResponse{
			Patient:     patient,
			LatestIndex: len(patient.Prescriptions) - 1,
		},
	})
}

// DispensePrescription marks a prescription dispensed. Dispensing one that is
// already dispensed needs "confirm": true.
func DispensePrescription(c *gin.Context) {
	nid, ok := nationalIDParamOrRespond(c)
	if !ok {
		return
	}
	var req DispenseRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	svc, ok := servicesOrRespond(c)
	if !ok {
		return
	}

	dispensed, err := svc.Patients.Dispense(c.Request.Context(), nid, req.PrescriptionID, req.Notes, req.Confirm)
	if err != nil {
		logLookupMiss(c, nid, err)
		respondRepositoryError(c, err, "Failed to dispense prescription")
		return
	}

	userID, _ := middleware.GetUserID(c)
	util.LogRecordEvent(util.RecordEventParams{
		EventType: util.EventPrescriptionDispensed,
		UserID:    userID,
		Role:      string(model.RolePharmacist),
		Subject:   nid,
		Message:   "Prescription dispensed",
		Details:   map[string]interface{}{"prescription_id": dispensed.ID, "confirmed": req.Confirm},
	})
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Dispensed",
		Data: dispensed,
	})
}
