package util

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ariebrainware/sehatec/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SecurityEventType represents different types of security and audit events
type SecurityEventType string

const (
	EventLoginSuccess          SecurityEventType = "LOGIN_SUCCESS"
	EventLoginFailure          SecurityEventType = "LOGIN_FAILURE"
	EventSignupSuccess         SecurityEventType = "SIGNUP_SUCCESS"
	EventLogout                SecurityEventType = "LOGOUT"
	EventPasswordUpgraded      SecurityEventType = "PASSWORD_UPGRADED"
	EventUnauthorizedAccess    SecurityEventType = "UNAUTHORIZED_ACCESS"
	EventRateLimitExceeded     SecurityEventType = "RATE_LIMIT_EXCEEDED"
	EventEndpointCall          SecurityEventType = "ENDPOINT_CALL"
	EventPatientCreated        SecurityEventType = "PATIENT_CREATED"
	EventPrescriptionIssued    SecurityEventType = "PRESCRIPTION_ISSUED"
	EventPrescriptionUpdated   SecurityEventType = "PRESCRIPTION_UPDATED"
	EventPrescriptionDispensed SecurityEventType = "PRESCRIPTION_DISPENSED"
	EventUploadAttached        SecurityEventType = "UPLOAD_ATTACHED"
	EventRecordLookupMiss      SecurityEventType = "RECORD_LOOKUP_MISS"
	EventAssistantFailure      SecurityEventType = "ASSISTANT_FAILURE"
)

// SecurityEvent represents a security event to be logged
type SecurityEvent struct {
	EventType SecurityEventType
	UserID    string
	Role      string
	Subject   string
	IP        string
	UserAgent string
	Message   string
	Details   map[string]interface{}
}

var securityLogger *log.Logger
var securityDB *gorm.DB

// SetSecurityLoggerDB sets a gorm DB instance used by the security logger.
// Call this during application startup after DB initialization; nil disables persistence.
func SetSecurityLoggerDB(db *gorm.DB) {
	securityDB = db
}

func init() {
	securityLogger = log.New(os.Stdout, "[SECURITY] ", log.LstdFlags|log.Lmsgprefix)
}

// sanitizeLogValue removes newlines and other characters that could break log parsing
func sanitizeLogValue(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\t", " ")
	if len(value) > 200 {
		value = value[:200] + "..."
	}
	return value
}

// LogSecurityEvent writes the event to the security log and, when a DB is configured,
// persists it as a model.SecurityLog row. Persistence failures never reach the caller.
func LogSecurityEvent(event SecurityEvent) {
	msg := fmt.Sprintf("Event=%s UserID=%s Role=%s Subject=%s IP=%s UserAgent=%s Message=%s",
		sanitizeLogValue(string(event.EventType)),
		sanitizeLogValue(event.UserID),
		sanitizeLogValue(event.Role),
		sanitizeLogValue(event.Subject),
		sanitizeLogValue(event.IP),
		sanitizeLogValue(event.UserAgent),
		sanitizeLogValue(event.Message),
	)

	if len(event.Details) > 0 {
		// Details are persisted, not printed.
		msg = fmt.Sprintf("%s DetailsCount=%d", msg, len(event.Details))
	}

	securityLogger.Println(msg)

	if securityDB == nil {
		return
	}

	var details datatypes.JSON
	if event.Details != nil {
		if b, err := json.Marshal(event.Details); err == nil {
			details = datatypes.JSON(b)
		}
	}

	entry := model.SecurityLog{
		EventType: string(event.EventType),
		UserID:    sanitizeLogValue(event.UserID),
		Role:      sanitizeLogValue(event.Role),
		Subject:   sanitizeLogValue(event.Subject),
		IP:        sanitizeLogValue(event.IP),
		Location:  sanitizeLogValue(GetIPLocation(event.IP).String()),
		UserAgent: sanitizeLogValue(event.UserAgent),
		Message:   sanitizeLogValue(event.Message),
		Details:   details,
	}

	if err := securityDB.Create(&entry).Error; err != nil {
		securityLogger.Printf("Failed to persist security event: %v", err)
	}
}

// LoginParams describes who signed in or out, and from where.
type LoginParams struct {
	UserID    string
	Role      string
	IP        string
	UserAgent string
	Reason    string
}

// LogLoginSuccess logs a successful login event
func LogLoginSuccess(p LoginParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginSuccess,
		UserID:    p.UserID,
		Role:      p.Role,
		IP:        p.IP,
		UserAgent: p.UserAgent,
		Message:   "User logged in successfully",
	})
}

// LogLoginFailure logs a failed login attempt
func LogLoginFailure(p LoginParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginFailure,
		UserID:    p.UserID,
		Role:      p.Role,
		IP:        p.IP,
		UserAgent: p.UserAgent,
		Message:   fmt.Sprintf("Login failed: %s", p.Reason),
	})
}

// LogSignup logs a newly registered account
func LogSignup(p LoginParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventSignupSuccess,
		UserID:    p.UserID,
		Role:      p.Role,
		IP:        p.IP,
		UserAgent: p.UserAgent,
		Message:   "Account registered",
	})
}

// LogLogout logs a logout event
func LogLogout(p LoginParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLogout,
		UserID:    p.UserID,
		Role:      p.Role,
		IP:        p.IP,
		UserAgent: p.UserAgent,
		Message:   "User logged out",
	})
}

// LogPasswordUpgraded records that a legacy stored password was rehashed.
func LogPasswordUpgraded(userID, role string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventPasswordUpgraded,
		UserID:    userID,
		Role:      role,
		Message:   "Legacy password upgraded to argon2id",
	})
}

type UnauthorizedAccessParams struct {
	UserID   string
	Role     string
	IP       string
	Resource string
	Reason   string
}

// LogUnauthorizedAccess logs unauthorized access attempts
func LogUnauthorizedAccess(p UnauthorizedAccessParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventUnauthorizedAccess,
		UserID:    p.UserID,
		Role:      p.Role,
		IP:        p.IP,
		Message:   fmt.Sprintf("Unauthorized access to %s: %s", p.Resource, p.Reason),
	})
}

type RateLimitParams struct {
	UserID   string
	IP       string
	Endpoint string
}

// LogRateLimitExceeded logs when rate limit is exceeded
func LogRateLimitExceeded(p RateLimitParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventRateLimitExceeded,
		UserID:    p.UserID,
		IP:        p.IP,
		Message:   fmt.Sprintf("Rate limit exceeded for endpoint: %s", p.Endpoint),
	})
}

// RecordEventParams describes a change to, or a lookup of, a patient record.
type RecordEventParams struct {
	EventType SecurityEventType
	UserID    string
	Role      string
	Subject   string
	Message   string
	Details   map[string]interface{}
}

// LogRecordEvent audits an operation on a patient record.
func LogRecordEvent(p RecordEventParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: p.EventType,
		UserID:    p.UserID,
		Role:      p.Role,
		Subject:   p.Subject,
		Message:   p.Message,
		Details:   p.Details,
	})
}

// LogAssistantFailure records a failed assistant turn without the conversation content.
func LogAssistantFailure(userID string, err error) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventAssistantFailure,
		UserID:    userID,
		Role:      string(model.RolePatient),
		Message:   fmt.Sprintf("Assistant reply failed: %v", err),
	})
}

// GetSecurityLoggerForTest returns the current security logger for testing purposes
func GetSecurityLoggerForTest() *log.Logger {
	return securityLogger
}

// SetSecurityLoggerForTest sets a custom logger for testing purposes
func SetSecurityLoggerForTest(logger *log.Logger) {
	securityLogger = logger
}
