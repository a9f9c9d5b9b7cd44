// Package bridge hosts the WebSocket and REST server that relays client
// audio to an assistant backend and assistant events back to the client.
package bridge

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// TranscriptKey identifies one transcript stream within a response.
type TranscriptKey struct {
	ResponseID  string
	ItemID      string
	OutputIndex int
}

// TranscriptStore accumulates streamed transcript fragments until the
// matching done event consumes them. LRU bounds keep abandoned responses
// from pinning memory.
type TranscriptStore struct {
	users     *lru.Cache[string, string]
	fragments *lru.Cache[TranscriptKey, string]
	texts     *lru.Cache[string, string]
}

// NewTranscriptStore creates a store that retains at most size entries per
// transcript kind.
func NewTranscriptStore(size int) (*TranscriptStore, error) {
	users, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	fragments, err := lru.New[TranscriptKey, string](size)
	if err != nil {
		return nil, err
	}
	texts, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}

	return &TranscriptStore{
		users:     users,
		fragments: fragments,
		texts:     texts,
	}, nil
}

// RecordUser stores the transcription of a user utterance.
func (s *TranscriptStore) RecordUser(itemID, transcript string) {
	s.users.Add(itemID, transcript)
}

// UserTranscript looks up the transcription of a user utterance.
func (s *TranscriptStore) UserTranscript(itemID string) (string, bool) {
	return s.users.Get(itemID)
}

// AppendText accumulates a text delta for a response.
func (s *TranscriptStore) AppendText(responseID, delta string) {
	current, _ := s.texts.Get(responseID)
	s.texts.Add(responseID, current+delta)
}

// TakeText returns the accumulated text of a response and clears it.
func (s *TranscriptStore) TakeText(responseID string) string {
	text, ok := s.texts.Get(responseID)
	if !ok {
		return ""
	}
	s.texts.Remove(responseID)
	return text
}

// AppendFragment accumulates an audio transcript delta for one item stream.
func (s *TranscriptStore) AppendFragment(key TranscriptKey, delta string) {
	current, _ := s.fragments.Get(key)
	s.fragments.Add(key, current+delta)
}

// TakeFragment returns the accumulated audio transcript of one item stream
// and clears it.
func (s *TranscriptStore) TakeFragment(key TranscriptKey) string {
	text, ok := s.fragments.Get(key)
	if !ok {
		return ""
	}
	s.fragments.Remove(key)
	return text
}
