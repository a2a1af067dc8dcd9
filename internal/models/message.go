package models

import "time"

// MessageKind classifies the content of a chat message.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindFile  MessageKind = "file"
)

// Valid reports whether k is one of the known kinds.
func (k MessageKind) Valid() bool {
	switch k {
	case KindText, KindImage, KindFile:
		return true
	}
	return false
}

// Message represents a chat message. It is immutable once stored.
type Message struct {
	ID            string      `db:"id" json:"messageId"`
	SenderID      string      `db:"sender_id" json:"senderId"`
	SenderName    string      `db:"sender_name" json:"senderName"`
	Body          string      `db:"body" json:"body,omitempty"`
	AttachmentRef string      `db:"attachment_ref" json:"attachmentRef,omitempty"`
	Kind          MessageKind `db:"kind" json:"kind"`
	Encrypted     bool        `db:"encrypted" json:"encrypted"`
	SentAt        time.Time   `db:"sent_at" json:"sentAt"`
}

// HasContent reports whether the message carries a body or an attachment.
func (m Message) HasContent() bool {
	return m.Body != "" || m.AttachmentRef != ""
}
