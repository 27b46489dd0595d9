package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SecurityLog is a persisted security or record-audit event.
type SecurityLog struct {
	gorm.Model
	EventType string `json:"event_type" gorm:"column:event_type;type:varchar(64);index"`
	// UserID holds the acting user's identifier: an email for professionals, a national ID for patients.
	UserID string `json:"user_id" gorm:"column:user_id;type:varchar(191);index"`
	Role   string `json:"role" gorm:"column:role;type:varchar(32)"`
	// Subject is the national ID of the patient record touched by the event, if any.
	Subject string `json:"subject" gorm:"column:subject;type:varchar(32);index"`
	IP      string `json:"ip" gorm:"column:ip;type:varchar(45)"`
	// Location stores city and country in the format "City/Country" when available.
	Location  string         `json:"location" gorm:"column:location;type:varchar(255)"`
	UserAgent string         `json:"user_agent" gorm:"column:user_agent;type:varchar(512)"`
	Message   string         `json:"message" gorm:"column:message;type:text"`
	Details   datatypes.JSON `json:"details" gorm:"column:details;type:json"`
}
