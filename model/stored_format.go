package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layouts of documents written by the browser build, which stored dates with
// toLocaleDateString / toLocaleString in the en-US locale.
var browserTimeLayouts = []string{
	"1/2/2006, 3:04:05 PM",
	"1/2/2006 3:04:05 PM",
	"1/2/2006",
}

// parseStoredTime decodes a stored timestamp. RFC 3339 is the current format;
// browser locale strings are read as UTC. null and "" give the zero time.
func parseStoredTime(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, fmt.Errorf("timestamp %s: %w", raw, err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range browserTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp %q: unrecognized format", s)
}

func (u *Upload) UnmarshalJSON(data []byte) error {
	type plain Upload
	aux := struct {
		*plain
		UploadedAt json.RawMessage `json:"uploadedAt"`
	}{plain: (*plain)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	at, err := parseStoredTime(aux.UploadedAt)
	if err != nil {
		return fmt.Errorf("upload %q: %w", u.Name, err)
	}
	u.UploadedAt = at
	return nil
}

func (p *Prescription) UnmarshalJSON(data []byte) error {
	type plain Prescription
	aux := struct {
		*plain
		Date          json.RawMessage `json:"date"`
		DispensedDate json.RawMessage `json:"dispensedDate"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	date, err := parseStoredTime(aux.Date)
	if err != nil {
		return fmt.Errorf("prescription %d date: %w", p.ID, err)
	}
	p.Date = date

	dispensed, err := parseStoredTime(aux.DispensedDate)
	if err != nil {
		return fmt.Errorf("prescription %d dispensedDate: %w", p.ID, err)
	}
	p.DispensedDate = nil
	if !dispensed.IsZero() {
		p.DispensedDate = &dispensed
	}
	return nil
}

// UnmarshalJSON also accepts the age as a string, the way the add-patient
// form stored it.
func (p *Patient) UnmarshalJSON(data []byte) error {
	type plain Patient
	aux := struct {
		*plain
		Age json.RawMessage `json:"age"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	p.Age = 0
	if len(aux.Age) == 0 || bytes.Equal(aux.Age, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(aux.Age, &p.Age); err == nil {
		return nil
	}
	var s string
	if err := json.Unmarshal(aux.Age, &s); err != nil {
		return fmt.Errorf("patient %s age: %w", p.NationalID, err)
	}
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	age, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("patient %s age %q: %w", p.NationalID, s, err)
	}
	p.Age = age
	return nil
}
