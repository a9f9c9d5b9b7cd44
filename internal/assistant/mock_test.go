package assistant_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Raikerian/go-voicelive/internal/assistant"
	"github.com/Raikerian/go-voicelive/internal/protocol"
	"github.com/Raikerian/go-voicelive/pkg/audio"
)

var (
	cannedGreetings = []string{
		"Hello there! I'm your friendly voice assistant.",
		"Hi! Ready to chat whenever you are.",
		"Hey! Let's talk—I'm all ears.",
	}
	cannedResponses = []string{
		"I heard you loud and clear.",
		"That's interesting! Tell me more.",
		"Thanks for sharing that with me.",
	}
)

func TestMockProvider_StartSessionGreets(t *testing.T) {
	provider := assistant.NewMockProvider(zaptest.NewLogger(t))

	session, err := provider.StartSession(context.Background(), assistant.SessionConfig{})
	require.NoError(t, err)
	defer session.Close()

	ready := nextEvent(t, session)
	assert.Equal(t, assistant.EventReady, ready.Kind, "The session reports readiness first")

	greeting := nextEvent(t, session)
	assert.Equal(t, assistant.EventResponseDone, greeting.Kind)
	assert.Equal(t, "resp-1", greeting.ResponseID)
	assert.Contains(t, cannedGreetings, greeting.Transcript)
}

func TestMockSession_TurnAfterThreeChunks(t *testing.T) {
	session := startMockSession(t)
	chunk := make([]byte, 9_600)

	require.NoError(t, session.SendAudio(chunk))
	started := nextEvent(t, session)
	assert.Equal(t, assistant.EventSpeechStarted, started.Kind, "The first chunk starts an utterance")

	require.NoError(t, session.SendAudio(chunk))
	assertNoEvent(t, session)

	require.NoError(t, session.SendAudio(chunk))
	assertFullTurn(t, session, "item-1", "resp-2")

	// The chunk counter resets between turns.
	require.NoError(t, session.SendAudio(chunk))
	assert.Equal(t, assistant.EventSpeechStarted, nextEvent(t, session).Kind)
	require.NoError(t, session.SendAudio(chunk))
	require.NoError(t, session.SendAudio(chunk))
	assertFullTurn(t, session, "item-2", "resp-3")
}

func TestMockSession_CommitFlushesPartialUtterance(t *testing.T) {
	session := startMockSession(t)

	require.NoError(t, session.SendAudio(make([]byte, 9_600)))
	require.Equal(t, assistant.EventSpeechStarted, nextEvent(t, session).Kind)

	require.NoError(t, session.Commit())
	assertFullTurn(t, session, "item-1", "resp-2")
}

func TestMockSession_CommitWithoutAudioIsQuiet(t *testing.T) {
	session := startMockSession(t)

	require.NoError(t, session.Commit())
	assertNoEvent(t, session)
}

func TestMockSession_Close(t *testing.T) {
	session := startMockSession(t)

	require.NoError(t, session.Close())
	require.NoError(t, session.Close(), "Close is idempotent")

	assert.ErrorIs(t, session.SendAudio(nil), assistant.ErrSessionClosed)
	assert.ErrorIs(t, session.Commit(), assistant.ErrSessionClosed)

	_, open := <-session.Events()
	assert.False(t, open, "The event stream closes with the session")
}

func TestMockProvider_TextTurn(t *testing.T) {
	provider := assistant.NewMockProvider(zaptest.NewLogger(t))

	reply, err := provider.TextTurn(context.Background(), "What can you do?")
	require.NoError(t, err)
	assertCannedReply(t, reply)
}

// Helper functions

func startMockSession(t *testing.T) assistant.Session {
	t.Helper()

	provider := assistant.NewMockProvider(zaptest.NewLogger(t))
	session, err := provider.StartSession(context.Background(), assistant.SessionConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	require.Equal(t, assistant.EventReady, nextEvent(t, session).Kind)
	require.Equal(t, assistant.EventResponseDone, nextEvent(t, session).Kind)
	return session
}

// assertFullTurn consumes and checks one complete fabricated reply.
func assertFullTurn(t *testing.T, session assistant.Session, itemID, responseID string) {
	t.Helper()

	stopped := nextEvent(t, session)
	assert.Equal(t, assistant.EventSpeechStopped, stopped.Kind)

	userTranscript := nextEvent(t, session)
	assert.Equal(t, assistant.EventUserTranscript, userTranscript.Kind)
	assert.Equal(t, itemID, userTranscript.ItemID)
	assert.Regexp(t, `^You spoke to me at \d{2}:\d{2} (AM|PM)\.$`, userTranscript.Text)

	for i := 0; i < 3; i++ {
		delta := nextEvent(t, session)
		require.Equal(t, assistant.EventAudioDelta, delta.Kind)
		assert.Equal(t, protocol.FormatWAV, delta.Format)
		assert.Equal(t, 16_000, delta.SampleRate)

		samples, rate, err := audio.DecodeWAV(delta.Audio)
		require.NoError(t, err, "Speech segments must be playable WAV")
		assert.Equal(t, 16_000, rate)
		assert.Len(t, samples, 5_120, "Each segment is 320ms of 16kHz audio")
	}

	done := nextEvent(t, session)
	assert.Equal(t, assistant.EventAudioDone, done.Kind)

	transcript := nextEvent(t, session)
	assert.Equal(t, assistant.EventAssistantTranscript, transcript.Kind)
	assert.Equal(t, responseID, transcript.ResponseID)
	assert.Equal(t, itemID, transcript.ItemID)
	assertCannedReply(t, transcript.Text)

	response := nextEvent(t, session)
	assert.Equal(t, assistant.EventResponseDone, response.Kind)
	assert.Equal(t, responseID, response.ResponseID)
	assert.Equal(t, transcript.Text, response.Transcript)
}

func assertCannedReply(t *testing.T, reply string) {
	t.Helper()
	for _, greeting := range cannedGreetings {
		for _, response := range cannedResponses {
			if reply == greeting+" "+response {
				return
			}
		}
	}
	t.Errorf("Reply %q is not a canned greeting and follow-up pair", reply)
}

func nextEvent(t *testing.T, session assistant.Session) assistant.Event {
	t.Helper()
	select {
	case event, ok := <-session.Events():
		require.True(t, ok, "Event stream closed unexpectedly")
		return event
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for a session event")
		return assistant.Event{}
	}
}

func assertNoEvent(t *testing.T, session assistant.Session) {
	t.Helper()
	select {
	case event := <-session.Events():
		t.Errorf("Unexpected event %v", event.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}
