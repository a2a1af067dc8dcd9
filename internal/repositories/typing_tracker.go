package repositories

import (
	"sort"
	"time"

	"chat-hub/internal/models"
)

// TypingTracker records which users are currently typing. Entries expire
// through SweepExpired rather than per-user timers.
//
// It is not safe for concurrent use; the hub goroutine owns it.
type TypingTracker struct {
	states map[string]models.TypingState
}

// NewTypingTracker creates an empty tracker.
func NewTypingTracker() *TypingTracker {
	return &TypingTracker{states: make(map[string]models.TypingState)}
}

// Start upserts the typing state for userID with a fresh StartedAt.
func (t *TypingTracker) Start(userID, displayName, connID string, now time.Time) models.TypingState {
	st := models.TypingState{
		UserID:       userID,
		DisplayName:  displayName,
		ConnectionID: connID,
		StartedAt:    now,
	}
	t.states[userID] = st
	return st
}

// Stop removes and returns the state for userID.
func (t *TypingTracker) Stop(userID string) (models.TypingState, bool) {
	st, ok := t.states[userID]
	if ok {
		delete(t.states, userID)
	}
	return st, ok
}

// SweepExpired removes every state older than timeout and returns the affected user ids.
func (t *TypingTracker) SweepExpired(now time.Time, timeout time.Duration) []string {
	var expired []string
	for id, st := range t.states {
		if now.Sub(st.StartedAt) > timeout {
			expired = append(expired, id)
			delete(t.states, id)
		}
	}
	sort.Strings(expired)
	return expired
}

// IsTyping reports whether userID has a typing state.
func (t *TypingTracker) IsTyping(userID string) bool {
	_, ok := t.states[userID]
	return ok
}

// Len returns the number of users typing.
func (t *TypingTracker) Len() int {
	return len(t.states)
}
