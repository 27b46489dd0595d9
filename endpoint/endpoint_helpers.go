package endpoint

import (
	"errors"
	"fmt"

	"github.com/ariebrainware/sehatec/middleware"
	"github.com/ariebrainware/sehatec/model"
	"github.com/ariebrainware/sehatec/repository"
	"github.com/ariebrainware/sehatec/session"
	"github.com/ariebrainware/sehatec/util"
	"github.com/gin-gonic/gin"
)

var errPatientNotRegistered = errors.New("patient is not registered")

type clientInfo struct {
	IP    string
	Agent string
}

func getClientInfo(c *gin.Context) clientInfo {
	return clientInfo{IP: c.ClientIP(), Agent: c.Request.UserAgent()}
}

func bindJSONOrRespond(c *gin.Context, dst interface{}, msg string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: msg, Err: err})
		return false
	}
	return true
}

func servicesOrRespond(c *gin.Context) (*middleware.Services, bool) {
	svc, ok := middleware.GetServices(c)
	if !ok {
		util.CallServerError(c, util.APIErrorParams{Msg: "Services are not configured", Err: fmt.Errorf("services missing from context")})
		return nil, false
	}
	return svc, true
}

func sessionOrRespond(c *gin.Context) (session.Session, bool) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Please sign in to continue", Err: session.ErrSessionNotFound})
		return session.Session{}, false
	}
	return sess, true
}

// nationalIDParamOrRespond reads and validates the :nid path parameter.
func nationalIDParamOrRespond(c *gin.Context) (string, bool) {
	nid := c.Param("nid")
	if !model.IsValidNationalID(nid) {
		util.CallUserError(c, util.APIErrorParams{Msg: "Enter a valid 14-digit National ID", Err: model.ErrInvalidNationalID})
		return "", false
	}
	return nid, true
}

// respondRepositoryError maps repository failures onto the response envelope.
func respondRepositoryError(c *gin.Context, err error, msg string) {
	params := util.APIErrorParams{Msg: msg, Err: err}
	switch {
	case errors.Is(err, repository.ErrPatientNotFound):
		params.Msg = "Patient not found"
		util.CallErrorNotFound(c, params)
	case errors.Is(err, repository.ErrPrescriptionNotFound):
		params.Msg = "Prescription not found"
		util.CallErrorNotFound(c, params)
	case errors.Is(err, repository.ErrDuplicatePatient):
		params.Msg = "Patient already exists"
		util.CallConflict(c, params)
	case errors.Is(err, repository.ErrDuplicatePrescription):
		params.Msg = "Prescription already exists"
		util.CallConflict(c, params)
	case errors.Is(err, repository.ErrAlreadyDispensed):
		params.Msg = "Already dispensed. Confirm to dispense again"
		util.CallConflict(c, params)
	case isValidationError(err):
		util.CallUserError(c, params)
	default:
		util.CallServerError(c, params)
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		model.ErrNameRequired,
		model.ErrInvalidNationalID,
		model.ErrInvalidAge,
		model.ErrGenderRequired,
		model.ErrDiagnosisRequired,
		model.ErrMedicationRequired,
		model.ErrDispenseFields,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// logLookupMiss audits a request for a patient or prescription that does not exist.
// Other errors are ignored.
func logLookupMiss(c *gin.Context, nationalID string, err error) {
	if !errors.Is(err, repository.ErrPatientNotFound) && !errors.Is(err, repository.ErrPrescriptionNotFound) && !errors.Is(err, errPatientNotRegistered) {
		return
	}
	userID, _ := middleware.GetUserID(c)
	role, _ := middleware.GetRole(c)
	util.LogRecordEvent(util.RecordEventParams{
		EventType: util.EventRecordLookupMiss,
		UserID:    userID,
		Role:      string(role),
		Subject:   nationalID,
		Message:   err.Error(),
	})
}
