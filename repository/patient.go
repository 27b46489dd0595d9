// Package repository holds the authoritative in-process copies of the persisted
// collections and keeps them in step with storage.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ariebrainware/sehatec/model"
	"github.com/ariebrainware/sehatec/storage"
	"github.com/ariebrainware/sehatec/util"
)

var (
	ErrDuplicatePatient      = errors.New("patient with this national ID already exists")
	ErrPatientNotFound       = errors.New("patient not found")
	ErrPrescriptionNotFound  = errors.New("prescription not found")
	ErrAlreadyDispensed      = errors.New("prescription already dispensed")
	ErrDuplicatePrescription = errors.New("prescription id already in use")
)

// PatientRepository owns the patient collection. Every mutation is written to
// storage before the in-memory collection is swapped, so a failed write leaves
// both untouched.
//
// Lookups are linear scans over patients and their prescriptions. The mutex
// serializes requests inside one process; writers in other processes are not
// coordinated and the last write wins.
type PatientRepository struct {
	mu       sync.Mutex
	store    storage.Storage
	patients []model.Patient
	lastID   int64
	now      func() time.Time
}

// NewPatientRepository loads the stored collection. A missing document yields an empty collection.
func NewPatientRepository(ctx context.Context, store storage.Storage) (*PatientRepository, error) {
	var patients []model.Patient
	if _, err := storage.LoadJSON(ctx, store, storage.KeyPatients, &patients); err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}

	r := &PatientRepository{
		store:    store,
		patients: make([]model.Patient, 0, len(patients)),
		now:      func() time.Time { return time.Now() },
	}
	for _, p := range patients {
		if p.Prescriptions == nil {
			p.Prescriptions = []model.Prescription{}
		}
		for i := range p.Prescriptions {
			if p.Prescriptions[i].Uploads == nil {
				p.Prescriptions[i].Uploads = []model.Upload{}
			}
			if p.Prescriptions[i].ID > r.lastID {
				r.lastID = p.Prescriptions[i].ID
			}
		}
		r.patients = append(r.patients, p)
	}
	return r, nil
}

func (r *PatientRepository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

// nextID returns the creation time in Unix milliseconds, bumped past the last id handed out.
func (r *PatientRepository) nextID() int64 {
	id := r.now().UnixMilli()
	if id <= r.lastID {
		id = r.lastID + 1
	}
	r.lastID = id
	return id
}

// idInUse reports whether any patient already holds a prescription with id.
func (r *PatientRepository) idInUse(id int64) bool {
	for i := range r.patients {
		if r.patients[i].PrescriptionIndex(id) >= 0 {
			return true
		}
	}
	return false
}

func (r *PatientRepository) indexOf(nationalID string) int {
	for i := range r.patients {
		if r.patients[i].NationalID == nationalID {
			return i
		}
	}
	return -1
}

// commit persists next and, only when that succeeds, makes it the current collection.
func (r *PatientRepository) commit(ctx context.Context, next []model.Patient) error {
	if err := storage.SaveJSON(ctx, r.store, storage.KeyPatients, next); err != nil {
		return fmt.Errorf("persist patients: %w", err)
	}
	r.patients = next
	return nil
}

// Patients returns a deep copy of the collection in insertion order.
func (r *PatientRepository) Patients() []model.Patient {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Patient, len(r.patients))
	for i, p := range r.patients {
		out[i] = p.Clone()
	}
	return out
}

// Count returns the number of registered patients.
func (r *PatientRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.patients)
}

// FindPatient returns a copy of the patient with the given national ID.
func (r *PatientRepository) FindPatient(nationalID string) (model.Patient, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(nationalID)
	if i < 0 {
		return model.Patient{}, false
	}
	return r.patients[i].Clone(), true
}

// AddPatient appends a patient with an empty prescription list. Field validation
// is the caller's job; a duplicate national ID is refused here as well.
func (r *PatientRepository) AddPatient(ctx context.Context, patient model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(patient.NationalID) >= 0 {
		return fmt.Errorf("add patient %s: %w", patient.NationalID, ErrDuplicatePatient)
	}

	p := patient.Clone()
	p.Prescriptions = []model.Prescription{}

	next := make([]model.Patient, len(r.patients), len(r.patients)+1)
	copy(next, r.patients)
	next = append(next, p)
	return r.commit(ctx, next)
}

// NewPrescription builds an undispensed prescription dated now with a fresh id.
func (r *PatientRepository) NewPrescription(diagnosis, medication, comments string) model.Prescription {
	r.mu.Lock()
	defer r.mu.Unlock()

	return model.Prescription{
		ID:         r.nextID(),
		Diagnosis:  strings.TrimSpace(diagnosis),
		Medication: strings.TrimSpace(medication),
		Comments:   strings.TrimSpace(comments),
		Date:       r.timestamp(),
		Uploads:    []model.Upload{},
	}
}

// AddPrescription appends prescription to the patient's list. A zero id is
// replaced with a fresh one; a given id must not be held by any prescription
// yet. An unknown patient changes nothing.
func (r *PatientRepository) AddPrescription(ctx context.Context, nationalID string, prescription model.Prescription) (model.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(nationalID)
	if i < 0 {
		log.Printf("add prescription: no patient with national ID %s", nationalID)
		return model.Prescription{}, fmt.Errorf("add prescription for %s: %w", nationalID, ErrPatientNotFound)
	}

	p := prescription.Clone()
	if p.ID == 0 {
		p.ID = r.nextID()
	} else if r.idInUse(p.ID) {
		return model.Prescription{}, fmt.Errorf("add prescription %d: %w", p.ID, ErrDuplicatePrescription)
	}
	if p.Date.IsZero() {
		p.Date = r.timestamp()
	}
	if err := p.Validate(); err != nil {
		return model.Prescription{}, err
	}

	patient := r.patients[i]
	prescriptions := make([]model.Prescription, len(patient.Prescriptions), len(patient.Prescriptions)+1)
	copy(prescriptions, patient.Prescriptions)
	patient.Prescriptions = append(prescriptions, p)

	if err := r.commit(ctx, r.withPatient(i, patient)); err != nil {
		return model.Prescription{}, err
	}
	if p.ID > r.lastID {
		r.lastID = p.ID
	}
	return p.Clone(), nil
}

// UpdatePrescription replaces the prescription with the same id, keeping its
// position. It never appends: an unknown patient or id changes nothing.
func (r *PatientRepository) UpdatePrescription(ctx context.Context, nationalID string, prescription model.Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.replaceLocked(ctx, nationalID, prescription); err != nil {
		return err
	}

	util.LogRecordEvent(util.RecordEventParams{
		EventType: util.EventPrescriptionUpdated,
		Subject:   nationalID,
		Message:   "Prescription updated",
		Details:   map[string]interface{}{"prescription_id": prescription.ID, "dispensed": prescription.Dispensed},
	})
	return nil
}

func (r *PatientRepository) replaceLocked(ctx context.Context, nationalID string, prescription model.Prescription) error {
	i := r.indexOf(nationalID)
	if i < 0 {
		log.Printf("update prescription: no patient with national ID %s", nationalID)
		return fmt.Errorf("update prescription for %s: %w", nationalID, ErrPatientNotFound)
	}
	patient := r.patients[i]
	j := patient.PrescriptionIndex(prescription.ID)
	if j < 0 {
		log.Printf("update prescription: patient %s has no prescription %d", nationalID, prescription.ID)
		return fmt.Errorf("update prescription %d: %w", prescription.ID, ErrPrescriptionNotFound)
	}
	if err := prescription.Validate(); err != nil {
		return err
	}

	prescriptions := make([]model.Prescription, len(patient.Prescriptions))
	copy(prescriptions, patient.Prescriptions)
	prescriptions[j] = prescription.Clone()
	patient.Prescriptions = prescriptions

	return r.commit(ctx, r.withPatient(i, patient))
}

// withPatient returns a copy of the collection with position i replaced.
func (r *PatientRepository) withPatient(i int, patient model.Patient) []model.Patient {
	next := make([]model.Patient, len(r.patients))
	copy(next, r.patients)
	next[i] = patient
	return next
}

// lookupLocked finds a prescription by id, or the latest one when id is zero.
func (r *PatientRepository) lookupLocked(nationalID string, id int64) (model.Prescription, error) {
	i := r.indexOf(nationalID)
	if i < 0 {
		return model.Prescription{}, fmt.Errorf("lookup %s: %w", nationalID, ErrPatientNotFound)
	}
	patient := r.patients[i]
	if id == 0 {
		latest, ok := patient.Latest()
		if !ok {
			return model.Prescription{}, fmt.Errorf("lookup latest for %s: %w", nationalID, ErrPrescriptionNotFound)
		}
		return latest.Clone(), nil
	}
	j := patient.PrescriptionIndex(id)
	if j < 0 {
		return model.Prescription{}, fmt.Errorf("lookup %d for %s: %w", id, nationalID, ErrPrescriptionNotFound)
	}
	return patient.Prescriptions[j].Clone(), nil
}

// Dispense marks a prescription dispensed, defaulting to the patient's latest
// prescription when prescriptionID is zero. Dispensing again needs confirm and
// only re-stamps the date and notes.
func (r *PatientRepository) Dispense(ctx context.Context, nationalID string, prescriptionID int64, notes string, confirm bool) (model.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.lookupLocked(nationalID, prescriptionID)
	if err != nil {
		return model.Prescription{}, err
	}
	if p.Dispensed && !confirm {
		return model.Prescription{}, fmt.Errorf("dispense %d: %w", p.ID, ErrAlreadyDispensed)
	}

	notes = strings.TrimSpace(notes)
	if notes == "" {
		notes = model.DefaultPharmacistNotes
	}
	at := r.timestamp()
	p.Dispensed = true
	p.DispensedDate = &at
	p.PharmacistNotes = notes

	if err := r.replaceLocked(ctx, nationalID, p); err != nil {
		return model.Prescription{}, err
	}
	return p.Clone(), nil
}

// AttachUpload appends upload to the prescription's uploads through the replace path.
func (r *PatientRepository) AttachUpload(ctx context.Context, nationalID string, prescriptionID int64, upload model.Upload) (model.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prescriptionID == 0 {
		return model.Prescription{}, fmt.Errorf("attach upload: %w", ErrPrescriptionNotFound)
	}
	p, err := r.lookupLocked(nationalID, prescriptionID)
	if err != nil {
		return model.Prescription{}, err
	}
	if upload.UploadedAt.IsZero() {
		upload.UploadedAt = r.timestamp()
	}
	p.Uploads = append(p.Uploads, upload)

	if err := r.replaceLocked(ctx, nationalID, p); err != nil {
		return model.Prescription{}, err
	}
	return p.Clone(), nil
}
