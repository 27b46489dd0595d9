package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariebrainware/sehatec/model"
	openai "github.com/sashabaranov/go-openai"
)

const delegatedGreeting = "Hello! I'm your AI medical assistant. I can help you understand your prescriptions and answer health questions. How can I help you today?"

const guidelines = `Important guidelines:
- Provide clear, simple explanations
- Always remind patients to consult their doctor for medical decisions
- Be empathetic and supportive
- Reference their specific prescriptions when relevant
- Don't provide new medical advice, only explain existing prescriptions`

var errEmptyReply = errors.New("assistant returned an empty reply")

// Message is a chat message sent to a ChatClient.
// Role must be one of: "system", "user", or "assistant".
type Message struct {
	Role    string
	Content string
}

// ChatClient sends a full message history and returns the model's reply.
type ChatClient interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Delegated forwards questions, with the patient's history as context, to an external model.
type Delegated struct {
	client ChatClient
}

func NewDelegated(client ChatClient) *Delegated {
	return &Delegated{client: client}
}

func (d *Delegated) Greeting(model.Patient) string {
	return delegatedGreeting
}

// Answer replays history after the system instruction and asks question.
func (d *Delegated) Answer(ctx context.Context, question string, patient model.Patient, history []Turn) (string, error) {
	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt(patient)})
	for _, t := range history {
		role := openai.ChatMessageRoleUser
		if t.Speaker == SpeakerAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, Message{Role: role, Content: t.Text})
	}
	messages = append(messages, Message{Role: openai.ChatMessageRoleUser, Content: question})

	reply, err := d.client.Chat(ctx, messages)
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errEmptyReply
	}
	return reply, nil
}

// BuildContext renders the patient's details and prescription history as plain text.
func BuildContext(patient model.Patient) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Patient Information:\nName: %s\nAge: %d\nGender: %s\n\nMedical History:\n", patient.Name, patient.Age, patient.Gender)

	if len(patient.Prescriptions) == 0 {
		b.WriteString("No prescriptions yet.")
		return b.String()
	}
	for i, p := range patient.Prescriptions {
		fmt.Fprintf(&b, "\nPrescription %d:\n- Diagnosis: %s\n- Medication: %s\n- Status: %s\n", i+1, p.Diagnosis, p.Medication, p.Status())
		if p.Comments != "" {
			fmt.Fprintf(&b, "- Doctor's Notes: %s\n", p.Comments)
		}
	}
	return b.String()
}

// SystemPrompt is the instruction sent ahead of every delegated conversation.
func SystemPrompt(patient model.Patient) string {
	return "You are a helpful medical assistant chatbot helping patients understand their prescriptions.\n\n" +
		BuildContext(patient) + "\n\n" + guidelines
}
