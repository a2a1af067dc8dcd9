package repositories

import (
	"time"

	"github.com/google/uuid"

	"chat-hub/internal/models"
)

// DefaultHistoryCap is the number of messages kept when no cap is configured.
const DefaultHistoryCap = 1000

// MessageStore is a bounded, append-only message history. Once full, each
// append evicts the oldest message.
//
// It is not safe for concurrent use; the hub goroutine owns it.
type MessageStore struct {
	buf   []models.Message
	head  int
	size  int
	newID func() string
}

// NewMessageStore creates a store holding at most capacity messages.
func NewMessageStore(capacity int) *MessageStore {
	if capacity <= 0 {
		capacity = DefaultHistoryCap
	}
	return &MessageStore{
		buf:   make([]models.Message, capacity),
		newID: newMessageID,
	}
}

// Append stores msg, filling in ID and SentAt when absent, and returns the stored copy.
func (s *MessageStore) Append(msg models.Message, now time.Time) models.Message {
	if msg.ID == "" {
		msg.ID = s.newID()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = now
	}

	capacity := len(s.buf)
	tail := (s.head + s.size) % capacity
	s.buf[tail] = msg
	if s.size < capacity {
		s.size++
	} else {
		s.head = (s.head + 1) % capacity
	}
	return msg
}

// Recent returns up to limit of the newest messages, oldest first.
// A non-positive limit returns the whole history.
func (s *MessageStore) Recent(limit int) []models.Message {
	if limit <= 0 || limit > s.size {
		limit = s.size
	}
	out := make([]models.Message, limit)
	start := s.size - limit
	for i := 0; i < limit; i++ {
		out[i] = s.buf[(s.head+start+i)%len(s.buf)]
	}
	return out
}

// Len returns the number of stored messages.
func (s *MessageStore) Len() int {
	return s.size
}

// Cap returns the history cap.
func (s *MessageStore) Cap() int {
	return len(s.buf)
}

// newMessageID returns a time-ordered UUIDv7, falling back to a random v4.
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
