package endpoint

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariebrainware/sehatec/middleware"
	"github.com/ariebrainware/sehatec/model"
	"github.com/ariebrainware/sehatec/repository"
	"github.com/ariebrainware/sehatec/session"
	"github.com/ariebrainware/sehatec/util"
	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Role       model.Role `json:"role" example:"doctor"`
	Email      string     `json:"email" example:"sara@example.com"`
	Password   string     `json:"password" example:"secret1"`
	NationalID string     `json:"national_id" example:"12345678901234"`
}

type SessionResponse struct {
	Token     string      `json:"token,omitempty"`
	Role      model.Role  `json:"role"`
	UserID    string      `json:"user_id"`
	Name      string      `json:"name"`
	Tab       model.Tab   `json:"tab"`
	Tabs      []model.Tab `json:"tabs"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type LogoutRequest struct {
	Confirm bool `json:"confirm"`
}

type TabRequest struct {
	Tab model.Tab `json:"tab" binding:"required"`
}

func newSessionResponse(token string, sess session.Session) SessionResponse {
	return SessionResponse{
		Token:     token,
		Role:      sess.Role,
		UserID:    sess.UserID,
		Name:      sess.Name,
		Tab:       sess.Tab,
		Tabs:      sess.Role.Tabs(),
		ExpiresAt: sess.ExpiresAt,
	}
}

// Signup registers a doctor or pharmacist account.
func Signup(c *gin.Context) {
	var req model.SignupRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	svc, ok := servicesOrRespond(c)
	if !ok {
		return
	}

	if err := model.ValidateSignup(req); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}

	account := model.Account{Email: req.Email, FullName: req.FullName, Role: req.Role}
	err := svc.Accounts.Register(c.Request.Context(), account, req.Password)
	if errors.Is(err, repository.ErrAccountExists) {
		util.CallConflict(c, util.APIErrorParams{Msg: "This email is already registered", Err: err})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create account", Err: err})
		return
	}

	ci := getClientInfo(c)
	util.LogSignup(util.LoginParams{UserID: strings.TrimSpace(req.Email), Role: string(req.Role), IP: ci.IP, UserAgent: ci.Agent})
	util.CallSuccessCreated(c, util.APISuccessParams{
		Msg:  "Account created successfully! Please login.",
		Data: map[string]interface{}{"email": strings.TrimSpace(req.Email), "role": req.Role},
	})
}

// Login signs in a professional with email and password, or a patient with
// their national ID.
func Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	svc, ok := servicesOrRespond(c)
	if !ok {
		return
	}
	if !req.Role.IsValid() {
		util.CallUserError(c, util.APIErrorParams{Msg: "Please select a role", Err: model.ErrRoleRequired})
		return
	}

	ci := getClientInfo(c)
	var userID, name string
	if req.Role == model.RolePatient {
		userID, name, ok = identifyPatient(c, svc, strings.TrimSpace(req.NationalID), ci)
	} else {
		userID, name, ok = authenticateProfessional(c, svc, req, ci)
	}
	if !ok {
		return
	}

	token, sess, err := svc.Sessions.Open(c.Request.Context(), req.Role, userID, name)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to start session", Err: err})
		return
	}

	util.LogLoginSuccess(util.LoginParams{UserID: userID, Role: string(req.Role), IP: ci.IP, UserAgent: ci.Agent})
	// A successful sign-in clears earlier failed attempts from this address.
	_ = middleware.ResetRateLimit(c.Request.Context(), ci.IP, c.Request.URL.Path)

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Login successful",
		Data: newSessionResponse(token, sess),
	})
}

func identifyPatient(c *gin.Context, svc *middleware.Services, nationalID string, ci clientInfo) (string, string, bool) {
	if nationalID == "" {
		util.CallUserError(c, util.APIErrorParams{Msg: "Please enter your National ID", Err: model.ErrInvalidNationalID})
		return "", "", false
	}
	if !model.IsValidNationalID(nationalID) {
		util.LogLoginFailure(util.LoginParams{UserID: nationalID, Role: string(model.RolePatient), IP: ci.IP, UserAgent: ci.Agent, Reason: "malformed national ID"})
		util.CallUserError(c, util.APIErrorParams{Msg: "National ID must be exactly 14 digits", Err: model.ErrInvalidNationalID})
		return "", "", false
	}

	// Patients are not required to be registered yet; the patient view
	// reports the missing record.
	name := ""
	if p, found := svc.Patients.FindPatient(nationalID); found {
		name = p.Name
	}
	return nationalID, name, true
}

func authenticateProfessional(c *gin.Context, svc *middleware.Services, req LoginRequest, ci clientInfo) (string, string, bool) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		util.CallUserError(c, util.APIErrorParams{Msg: "Please enter your email", Err: model.ErrEmailRequired})
		return "", "", false
	}
	if req.Password == "" {
		util.CallUserError(c, util.APIErrorParams{Msg: "Please enter your password", Err: model.ErrPasswordRequired})
		return "", "", false
	}

	account, err := svc.Accounts.Authenticate(c.Request.Context(), email, req.Password, req.Role)
	if errors.Is(err, repository.ErrInvalidCredentials) {
		util.LogLoginFailure(util.LoginParams{UserID: email, Role: string(req.Role), IP: ci.IP, UserAgent: ci.Agent, Reason: "invalid credentials"})
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid email or password", Err: err})
		return "", "", false
	}
	if err != nil {
		util.LogLoginFailure(util.LoginParams{UserID: email, Role: string(req.Role), IP: ci.IP, UserAgent: ci.Agent, Reason: "password verification error"})
		util.CallServerError(c, util.APIErrorParams{Msg: "Password verification failed", Err: err})
		return "", "", false
	}
	return account.Email, account.FullName, true
}

// Logout ends the current session. The request must confirm it explicitly.
func Logout(c *gin.Context) {
	var req LogoutRequest
	if c.Request.ContentLength != 0 {
		if !bindJSONOrRespond(c, &req, "Invalid request payload") {
			return
		}
	}
	if !req.Confirm {
		util.CallUserError(c, util.APIErrorParams{Msg: "Logout requires confirmation", Err: fmt.Errorf("confirm must be true")})
		return
	}

	svc, ok := servicesOrRespond(c)
	if !ok {
		return
	}
	token, _ := middleware.GetToken(c)
	sess, err := svc.Sessions.Close(c.Request.Context(), token)
	if err != nil {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Please sign in to continue", Err: err})
		return
	}
	svc.Conversations.Drop(sess.ID)

	ci := getClientInfo(c)
	util.LogLogout(util.LoginParams{UserID: sess.UserID, Role: string(sess.Role), IP: ci.IP, UserAgent: ci.Agent})
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Logout successful",
		Data: map[string]interface{}{"redirect": "/"},
	})
}

// GetSession describes the signed-in user and the tabs of their view.
func GetSession(c *gin.Context) {
	sess, ok := sessionOrRespond(c)
	if !ok {
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Session retrieved",
		Data: newSessionResponse("", sess),
	})
}

// SwitchTab moves the session to another tab of its role view.
func SwitchTab(c *gin.Context) {
	var req TabRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	svc, ok := servicesOrRespond(c)
	if !ok {
		return
	}

	token, _ := middleware.GetToken(c)
	sess, err := svc.Sessions.SetTab(c.Request.Context(), token, req.Tab)
	if errors.Is(err, session.ErrInvalidTab) {
		util.CallUserError(c, util.APIErrorParams{Msg: "Tab is not available for this role", Err: err})
		return
	}
	if err != nil {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Please sign in to continue", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Tab switched",
		Data: newSessionResponse("", sess),
	})
}
