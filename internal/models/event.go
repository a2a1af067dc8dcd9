package models

import "encoding/json"

// Inbound event names.
const (
	EventJoin          = "join"
	EventSendMessage   = "send_message"
	EventStartTyping   = "start_typing"
	EventStopTyping    = "stop_typing"
	EventLeave         = "leave"
	EventGetUsersList  = "get_users_list"
	EventGetServerInfo = "get_server_info"
)

// Outbound event names.
const (
	EventNotification   = "notification"
	EventMessage        = "message"
	EventUserJoined     = "user_joined"
	EventUserLeft       = "user_left"
	EventUsersList      = "users_list"
	EventUserTyping     = "user_typing"
	EventUserStopTyping = "user_stop_typing"
	EventServerInfo     = "server_info"
)

// Severity of a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Envelope is the frame exchanged over websocket connections in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// OutboundEvent is an event addressed to one or more connections.
type OutboundEvent struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Notification is a human readable status line shown by the client.
type Notification struct {
	Text     string   `json:"text"`
	Severity Severity `json:"severity"`
}

// UserRef identifies a user in user_left and user_stop_typing events.
type UserRef struct {
	UserID string `json:"userId"`
}

// TypingNotice is the payload of user_typing.
type TypingNotice struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// JoinPayload is sent by a client to announce itself.
type JoinPayload struct {
	UserID      string `json:"userId" validate:"required,max=128"`
	DisplayName string `json:"displayName" validate:"required,max=128"`
	AvatarRef   string `json:"avatarRef" validate:"max=2048"`
}

// SendMessagePayload carries a new chat message.
type SendMessagePayload struct {
	UserID        string      `json:"userId" validate:"required"`
	DisplayName   string      `json:"displayName"`
	Body          string      `json:"body"`
	AttachmentRef string      `json:"attachmentRef" validate:"max=4096"`
	Kind          MessageKind `json:"kind"`
	Encrypted     bool        `json:"encrypted"`
}

// TypingPayload is sent with start_typing and stop_typing.
type TypingPayload struct {
	UserID      string `json:"userId" validate:"required"`
	DisplayName string `json:"displayName"`
}

// LeavePayload is sent with leave.
type LeavePayload struct {
	UserID string `json:"userId" validate:"required"`
}
