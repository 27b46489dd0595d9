package model

import (
	"errors"
	"strings"
	"time"
)

// Gender of a patient as captured by the doctor.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// NationalIDLength is the exact number of decimal digits in a national ID.
const NationalIDLength = 14

// DefaultPharmacistNotes is recorded when a prescription is dispensed without notes.
const DefaultPharmacistNotes = "No notes"

var (
	ErrNameRequired       = errors.New("patient name required")
	ErrInvalidNationalID  = errors.New("national ID must be 14 digits")
	ErrInvalidAge         = errors.New("valid age required")
	ErrGenderRequired     = errors.New("gender required")
	ErrDiagnosisRequired  = errors.New("diagnosis required")
	ErrMedicationRequired = errors.New("medication required")
	ErrDispenseFields     = errors.New("dispensed date and pharmacist notes must be unset while not dispensed")
)

// Upload is a file a patient attached to one of their prescriptions.
type Upload struct {
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Data       string    `json:"data"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// IsImage reports whether the upload payload is an image data URL.
func (u Upload) IsImage() bool {
	return strings.HasPrefix(u.Data, "data:image/")
}

// Prescription is a diagnosis and medication issued by a doctor to one patient.
type Prescription struct {
	ID              int64      `json:"id"`
	Diagnosis       string     `json:"diagnosis"`
	Medication      string     `json:"medication"`
	Comments        string     `json:"comments,omitempty"`
	Date            time.Time  `json:"date"`
	Dispensed       bool       `json:"dispensed"`
	DispensedDate   *time.Time `json:"dispensedDate,omitempty"`
	PharmacistNotes string     `json:"pharmacistNotes,omitempty"`
	Uploads         []Upload   `json:"uploads"`
}

// Validate checks the fields a stored prescription must always satisfy.
func (p Prescription) Validate() error {
	if strings.TrimSpace(p.Diagnosis) == "" {
		return ErrDiagnosisRequired
	}
	if strings.TrimSpace(p.Medication) == "" {
		return ErrMedicationRequired
	}
	if !p.Dispensed && (p.DispensedDate != nil || p.PharmacistNotes != "") {
		return ErrDispenseFields
	}
	return nil
}

// Status is the human readable dispense state.
func (p Prescription) Status() string {
	if p.Dispensed {
		return "Dispensed"
	}
	return "Pending"
}

// Clone returns a deep copy so callers can mutate it without touching shared state.
func (p Prescription) Clone() Prescription {
	c := p
	if p.DispensedDate != nil {
		d := *p.DispensedDate
		c.DispensedDate = &d
	}
	c.Uploads = make([]Upload, len(p.Uploads))
	copy(c.Uploads, p.Uploads)
	return c
}

// Patient is a person registered by a doctor, identified by national ID.
type Patient struct {
	NationalID    string         `json:"nationalId"`
	Name          string         `json:"name"`
	Phone         string         `json:"phone,omitempty"`
	Gender        Gender         `json:"gender"`
	Age           int            `json:"age"`
	Prescriptions []Prescription `json:"prescriptions"`
}

// Latest returns the most recently issued prescription.
func (p Patient) Latest() (Prescription, bool) {
	if len(p.Prescriptions) == 0 {
		return Prescription{}, false
	}
	return p.Prescriptions[len(p.Prescriptions)-1], true
}

// PrescriptionIndex returns the position of the prescription with the given id, or -1.
func (p Patient) PrescriptionIndex(id int64) int {
	for i := range p.Prescriptions {
		if p.Prescriptions[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the patient and all nested records.
func (p Patient) Clone() Patient {
	c := p
	c.Prescriptions = make([]Prescription, len(p.Prescriptions))
	for i, pr := range p.Prescriptions {
		c.Prescriptions[i] = pr.Clone()
	}
	return c
}

// IsValidNationalID reports whether id is exactly 14 decimal digits.
func IsValidNationalID(id string) bool {
	if len(id) != NationalIDLength {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidatePatient checks the doctor's add-patient form in the order the form reports errors.
func ValidatePatient(p Patient) error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrNameRequired
	}
	if !IsValidNationalID(p.NationalID) {
		return ErrInvalidNationalID
	}
	if p.Age < 1 {
		return ErrInvalidAge
	}
	if p.Gender != GenderMale && p.Gender != GenderFemale {
		return ErrGenderRequired
	}
	return nil
}
