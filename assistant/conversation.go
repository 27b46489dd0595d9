package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ariebrainware/sehatec/model"
	"github.com/ariebrainware/sehatec/util"
)

// ErrorReply is shown in place of an answer when the assistant fails.
const ErrorReply = "I apologize, but I'm having trouble right now. Please try again later."

var (
	ErrEmptyQuestion      = errors.New("question is empty")
	ErrConversationClosed = errors.New("conversation closed before the reply arrived")
)

// Conversation is the ordered chat history of one session. It is unbounded and
// lives only in memory.
type Conversation struct {
	mu     sync.Mutex
	turns  []Turn
	closed bool
}

func (c *Conversation) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// appendTurns adds turns in one step unless the conversation has been closed.
func (c *Conversation) appendTurns(turns ...Turn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.turns = append(c.turns, turns...)
	return true
}

// ConversationStore keeps one conversation per session.
type ConversationStore struct {
	mu        sync.Mutex
	assistant Assistant
	convs     map[string]*Conversation
	now       func() time.Time
}

func NewConversationStore(a Assistant) *ConversationStore {
	return &ConversationStore{
		assistant: a,
		convs:     make(map[string]*Conversation),
		now:       time.Now,
	}
}

func (s *ConversationStore) turn(speaker Speaker, text string) Turn {
	return Turn{Speaker: speaker, Text: text, At: s.now().UTC().Truncate(time.Millisecond)}
}

// Get returns the session's conversation, starting it with a greeting.
func (s *ConversationStore) Get(sessionID string, patient model.Patient) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.convs[sessionID]; ok {
		return c
	}
	c := &Conversation{turns: []Turn{s.turn(SpeakerAssistant, s.assistant.Greeting(patient))}}
	s.convs[sessionID] = c
	return c
}

// Ask records question and the assistant's reply as one exchange. A failing
// assistant yields ErrorReply as the reply. When the request is cancelled or
// the conversation is dropped before the reply arrives, neither turn is kept.
func (s *ConversationStore) Ask(ctx context.Context, sessionID string, patient model.Patient, question string) ([]Turn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	conv := s.Get(sessionID, patient)
	history := conv.Turns()
	asked := s.turn(SpeakerUser, question)

	text, err := s.assistant.Answer(ctx, question, patient, history)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		util.LogAssistantFailure(patient.NationalID, err)
		text = ErrorReply
	}

	reply := s.turn(SpeakerAssistant, text)
	if !conv.appendTurns(asked, reply) {
		return nil, ErrConversationClosed
	}
	return []Turn{asked, reply}, nil
}

// Drop discards the session's conversation, e.g. on logout.
func (s *ConversationStore) Drop(sessionID string) {
	s.mu.Lock()
	c, ok := s.convs[sessionID]
	delete(s.convs, sessionID)
	s.mu.Unlock()

	if ok {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
	}
}
