package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/ariebrainware/sehatec/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingAssistant waits for release before answering.
type blockingAssistant struct {
	Scripted
	started chan struct{}
	release chan struct{}
}

func (b *blockingAssistant) Answer(ctx context.Context, question string, patient model.Patient, history []Turn) (string, error) {
	close(b.started)
	<-b.release
	return "late reply", nil
}

func TestConversation_StartsWithGreeting(t *testing.T) {
	store := NewConversationStore(Scripted{})
	turns := store.Get("s1", patientWith()).Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, SpeakerAssistant, turns[0].Speaker)
	assert.Contains(t, turns[0].Text, "Hi Ali!")
}

func TestConversation_Ask(t *testing.T) {
	store := NewConversationStore(Scripted{})
	patient := patientWith(model.Prescription{ID: 1, Diagnosis: "Flu", Medication: "Paracetamol"})

	added, err := store.Ask(context.Background(), "s1", patient, "  status?  ")
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, Turn{Speaker: SpeakerUser, Text: "status?", At: added[0].At}, added[0])
	assert.Equal(t, "⏳ Your prescription is still pending.", added[1].Text)

	turns := store.Get("s1", patient).Turns()
	assert.Len(t, turns, 3)

	_, err = store.Ask(context.Background(), "s1", patient, "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
	assert.Len(t, store.Get("s1", patient).Turns(), 3)
}

func TestConversation_AssistantFailureBecomesTurn(t *testing.T) {
	store := NewConversationStore(NewDelegated(&fakeChat{err: errors.New("boom")}))

	added, err := store.Ask(context.Background(), "s1", patientWith(), "hello")
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, SpeakerAssistant, added[1].Speaker)
	assert.Equal(t, ErrorReply, added[1].Text)
}

func TestConversation_HistoryPassedToAssistant(t *testing.T) {
	chat := &fakeChat{reply: "ok"}
	store := NewConversationStore(NewDelegated(chat))

	_, err := store.Ask(context.Background(), "s1", patientWith(), "first")
	require.NoError(t, err)
	_, err = store.Ask(context.Background(), "s1", patientWith(), "second")
	require.NoError(t, err)

	// system, greeting, first, ok, second
	require.Len(t, chat.got, 5)
	assert.Equal(t, "first", chat.got[2].Content)
	assert.Equal(t, "ok", chat.got[3].Content)
	assert.Equal(t, "second", chat.got[4].Content)
}

func TestConversation_ReplyAfterDropIsDiscarded(t *testing.T) {
	a := &blockingAssistant{started: make(chan struct{}), release: make(chan struct{})}
	store := NewConversationStore(a)
	conv := store.Get("s1", patientWith())

	done := make(chan error, 1)
	go func() {
		_, err := store.Ask(context.Background(), "s1", patientWith(), "anyone there?")
		done <- err
	}()

	<-a.started
	store.Drop("s1")
	close(a.release)

	assert.ErrorIs(t, <-done, ErrConversationClosed)
	for _, turn := range conv.Turns() {
		assert.NotEqual(t, "late reply", turn.Text)
	}
	// a new conversation starts fresh
	assert.Len(t, store.Get("s1", patientWith()).Turns(), 1)
}

func TestConversation_ReplyAfterCancelIsDiscarded(t *testing.T) {
	a := &blockingAssistant{started: make(chan struct{}), release: make(chan struct{})}
	store := NewConversationStore(a)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := store.Ask(ctx, "s1", patientWith(), "anyone there?")
		done <- err
	}()

	<-a.started
	cancel()
	close(a.release)

	assert.ErrorIs(t, <-done, context.Canceled)
	turns := store.Get("s1", patientWith()).Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, SpeakerAssistant, turns[0].Speaker)

	// the next question starts from a clean exchange
	a2 := &blockingAssistant{started: make(chan struct{}), release: make(chan struct{})}
	close(a2.release)
	store.assistant = a2
	added, err := store.Ask(context.Background(), "s1", patientWith(), "still there?")
	require.NoError(t, err)
	assert.Equal(t, "still there?", added[0].Text)
	assert.Len(t, store.Get("s1", patientWith()).Turns(), 3)
}
