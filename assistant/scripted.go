package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/ariebrainware/sehatec/model"
)

const (
	replyNoPrescriptions = "❌ You don't have any prescriptions yet."
	replyStatusDispensed = "✅ Your prescription has been dispensed."
	replyStatusPending   = "⏳ Your prescription is still pending."
	replyFallback        = "🤖 Sorry, I didn't understand. You can ask about diagnosis, medication, or status."
)

// Scripted answers by keyword matching against the patient's latest prescription.
type Scripted struct{}

func (Scripted) Greeting(patient model.Patient) string {
	return fmt.Sprintf("👋 Hi %s! I can help you understand your prescriptions, medications, and status.", patient.Name)
}

// Answer never fails. Keywords are checked in a fixed order and the first match wins.
func (Scripted) Answer(_ context.Context, question string, patient model.Patient, _ []Turn) (string, error) {
	return ScriptedReply(question, patient), nil
}

// ScriptedReply is the keyword matcher behind Scripted.
func ScriptedReply(question string, patient model.Patient) string {
	latest, ok := patient.Latest()
	if !ok {
		return replyNoPrescriptions
	}
	q := strings.ToLower(question)

	switch {
	case strings.Contains(q, "latest") || strings.Contains(q, "last"):
		status := "Pending ⏳"
		if latest.Dispensed {
			status = "Dispensed ✅"
		}
		return fmt.Sprintf("🆕 Latest Prescription:\nDiagnosis: %s\nMedication: %s\nStatus: %s", latest.Diagnosis, latest.Medication, status)
	case strings.Contains(q, "medicine") || strings.Contains(q, "medication"):
		return "💊 Your medication:\n" + latest.Medication
	case strings.Contains(q, "diagnosis"):
		return "📝 Diagnosis: " + latest.Diagnosis
	case strings.Contains(q, "status"):
		if latest.Dispensed {
			return replyStatusDispensed
		}
		return replyStatusPending
	case strings.Contains(q, "how many"):
		return fmt.Sprintf("📊 You have %d prescription(s).", len(patient.Prescriptions))
	}
	return replyFallback
}
