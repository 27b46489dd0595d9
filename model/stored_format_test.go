package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrescription_DecodesBrowserLocaleDates(t *testing.T) {
	raw := `{"id":1714557600000,"diagnosis":"Flu","medication":"Paracetamol",
		"date":"5/1/2024","dispensed":true,"dispensedDate":"5/1/2024, 10:00:00 AM",
		"pharmacistNotes":"Take after meals","uploads":[]}`

	var p Prescription
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, int64(1714557600000), p.ID)
	assert.Equal(t, "Flu", p.Diagnosis)
	assert.True(t, p.Date.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, p.DispensedDate)
	assert.True(t, p.DispensedDate.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Take after meals", p.PharmacistNotes)
}

func TestPrescription_DecodesRFC3339(t *testing.T) {
	date := time.Date(2024, 5, 1, 10, 0, 0, 123000000, time.UTC)
	in := Prescription{ID: 7, Diagnosis: "Flu", Medication: "Paracetamol", Date: date, Uploads: []Upload{}}
	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var out Prescription
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.True(t, out.Date.Equal(date))
	assert.Nil(t, out.DispensedDate)
}

func TestPrescription_EmptyDispensedDateIsUnset(t *testing.T) {
	for _, v := range []string{`""`, `null`} {
		raw := `{"id":1,"diagnosis":"Flu","medication":"Paracetamol","date":"2024-05-01T10:00:00Z","dispensedDate":` + v + `}`
		var p Prescription
		require.NoError(t, json.Unmarshal([]byte(raw), &p), v)
		assert.Nil(t, p.DispensedDate, v)
		assert.NoError(t, p.Validate(), v)
	}
}

func TestPrescription_UnknownDateFormatFails(t *testing.T) {
	var p Prescription
	err := json.Unmarshal([]byte(`{"id":9,"date":"first of May"}`), &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prescription 9 date")
}

func TestUpload_DecodesBrowserLocaleTime(t *testing.T) {
	var u Upload
	raw := `{"name":"scan.png","type":"medical","data":"data:image/png;base64,AA==","uploadedAt":"12/31/2023, 11:59:59 PM"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &u))
	assert.Equal(t, "scan.png", u.Name)
	assert.True(t, u.IsImage())
	assert.True(t, u.UploadedAt.Equal(time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)))
}

func TestPatient_AgeAsString(t *testing.T) {
	cases := []struct {
		age  string
		want int
	}{
		{`30`, 30},
		{`"30"`, 30},
		{`" 41 "`, 41},
		{`""`, 0},
		{`null`, 0},
	}
	for _, tc := range cases {
		var p Patient
		raw := `{"nationalId":"12345678901234","name":"Ali","gender":"Male","age":` + tc.age + `,"prescriptions":[]}`
		require.NoError(t, json.Unmarshal([]byte(raw), &p), tc.age)
		assert.Equal(t, tc.want, p.Age, tc.age)
		assert.Equal(t, "Ali", p.Name)
	}

	var p Patient
	err := json.Unmarshal([]byte(`{"nationalId":"12345678901234","age":"thirty"}`), &p)
	assert.Error(t, err)
}
