package endpoint

import (
	"strings"

	"github.com/ariebrainware/sehatec/middleware"
	"github.com/ariebrainware/sehatec/model"
	"github.com/ariebrainware/sehatec/util"
	"github.com/gin-gonic/gin"
)

// dashboardRecentLimit is how many of the newest patients the dashboard lists.
const dashboardRecentLimit = 5

type CreatePatientRequest struct {
	NationalID string       `json:"national_id" example:"12345678901234"`
	Name       string       `json:"name" example:"Ali"`
	Phone      string       `json:"phone" example:"01000000000"`
	Gender     model.Gender `json:"gender" example:"Male"`
	Age        int          `json:"age" example:"30"`
}

type PrescriptionRequest struct {
	Diagnosis  string `json:"diagnosis" example:"Flu"`
	Medication string `json:"medication" example:"Paracetamol"`
	Comments   string `json:"comments" example:"Rest for three days"`
}

type DashboardResponse struct {
	TotalPatients  int             `json:"total_patients"`
	RecentPatients []model.Patient `json:"recent_patients"`
}

// DoctorDashboard reports the number of patients and the most recently added ones, newest first.
func DoctorDashboard(c *gin.Context) {
	svc, ok := servicesOrRespond(c)
	if !ok {
		return
	}

	patients := svc.Patients.Patients()
	recent := make([]model.Patient, 0, dashboardRecentLimit)
	for i := len(patients) - 1; i >= 0 && len(recent) < dashboardRecentLimit; i-- {
		recent = append(recent, patients[i])
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Dashboard retrieved",
		Data: DashboardResponse{TotalPatients: len(patients), RecentPatients: recent},
	})
}

// ListPatients returns every patient in the order they were added.
func ListPatients(c *gin.Context) {
	svc, ok := servicesOrRespond(c)
	if !ok {
		return
	}

	patients := svc.Patients.Patients()
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Patients retrieved",
		Data: map[string]interface{}{
			"total":    len(patients),
			"patients": patients,
		},
	})
}

// CreatePatient validates the add-patient form and registers the patient.
func CreatePatient(c *gin.Context) {
	var req CreatePatientRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	svc, ok := servicesOrRespond(c)
	if !ok {
		return
	}

	patient := model.Patient{
		NationalID: strings.TrimSpace(req.NationalID),
		Name:       util.NormalizeName(req.Name),
		Phone:      strings.TrimSpace(req.Phone),
		Gender:     req.Gender,
		Age:        req.Age,
	}
	if err := model.ValidatePatient(patient); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}

	if err := svc.Patients.AddPatient(c.Request.Context(), patient); err != nil {
		respondRepositoryError(c, err, "Failed to add patient")
		return
	}

	userID, _ := middleware.GetUserID(c)
	util.LogRecordEvent(util.RecordEventParams{
		EventType: util.EventPatientCreated,
		UserID:    userID,
		Role:      string(model.RoleDoctor),
		Subject:   patient.NationalID,
		Message:   "Patient added",
	})

	created, _ := svc.Patients.FindPatient(patient.NationalID)
	util.CallSuccessCreated(c, util.APISuccessParams{
		Msg:  "Patient added successfully",
		Data: created,
	})
}

// SearchPatient looks a patient up by national ID.
func SearchPatient(c *gin.Context) {
	nid, ok := nationalIDParamOrRespond(c)
	if !ok {
		return
	}
	svc, ok := servicesOrRespond(c)
	if !ok {
		return
	}

	patient, found := svc.Patients.FindPatient(nid)
	if !found {
		logLookupMiss(c, nid, errPatientNotRegistered)
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Patient not found", Err: errPatientNotRegistered})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Patient found",
		Data: patient,
	})
}

// IssuePrescription appends a new prescription to the patient's list.
func IssuePrescription(c *gin.Context) {
	nid, ok := nationalIDParamOrRespond(c)
	if !ok {
		return
	}
	var req PrescriptionRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	svc, ok := servicesOrRespond(c)
	if !ok {
		return
	}

	if strings.TrimSpace(req.Diagnosis) == "" {
		util.CallUserError(c, util.APIErrorParams{Msg: "Diagnosis required", Err: model.ErrDiagnosisRequired})
		return
	}
	if strings.TrimSpace(req.Medication) == "" {
		util.CallUserError(c, util.APIErrorParams{Msg: "Medication required", Err: model.ErrMedicationRequired})
		return
	}

	prescription := svc.Patients.NewPrescription(req.Diagnosis, req.Medication, req.Comments)
	saved, err := svc.Patients.AddPrescription(c.Request.Context(), nid, prescription)
	if err != nil {
		logLookupMiss(c, nid, err)
		respondRepositoryError(c, err, "Failed to save prescription")
		return
	}

	userID, _ := middleware.GetUserID(c)
	util.LogRecordEvent(util.RecordEventParams{
		EventType: util.EventPrescriptionIssued,
		UserID:    userID,
		Role:      string(model.RoleDoctor),
		Subject:   nid,
		Message:   "Prescription issued",
		Details:   map[string]interface{}{"prescription_id": saved.ID},
	})
	util.CallSuccessCreated(c, util.APISuccessParams{
		Msg:  "Prescription saved",
		Data: saved,
	})
}
