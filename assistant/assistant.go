// Package assistant answers patient questions about their own prescriptions.
package assistant

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/ariebrainware/sehatec/config"
	"github.com/ariebrainware/sehatec/model"
)

// Speaker identifies who produced a conversation turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one message in a patient conversation.
type Turn struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// Assistant produces replies for a patient. history holds the turns before question.
type Assistant interface {
	Greeting(patient model.Patient) string
	Answer(ctx context.Context, question string, patient model.Patient, history []Turn) (string, error)
}

// FromConfig picks the assistant named by ASSISTANT_MODE. Delegated mode
// without an API key falls back to the scripted assistant.
func FromConfig(cfg *config.Config) Assistant {
	if strings.EqualFold(cfg.AssistantMode, config.AssistantModeDelegated) {
		if cfg.OpenAIKey == "" {
			log.Println("ASSISTANT_MODE=delegated but OPENAI_API_KEY is empty, using the scripted assistant")
			return Scripted{}
		}
		return NewDelegated(NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL))
	}
	return Scripted{}
}
