package models

import "time"

// ConnectedUser is one logical chat participant, keyed by UserID.
type ConnectedUser struct {
	UserID       string    `json:"userId"`
	DisplayName  string    `json:"displayName"`
	AvatarRef    string    `json:"avatarRef,omitempty"`
	ConnectionID string    `json:"connectionId"`
	IsOnline     bool      `json:"isOnline"`
	LastSeenAt   time.Time `json:"lastSeenAt"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// TypingState marks a user as currently composing a message.
type TypingState struct {
	UserID       string    `json:"userId"`
	DisplayName  string    `json:"displayName"`
	ConnectionID string    `json:"connectionId"`
	StartedAt    time.Time `json:"startedAt"`
}
