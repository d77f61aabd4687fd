package domain

import (
	"context"
	"time"
)

// MessageRole identifies the author kind of a message
type MessageRole string

const (
	RoleUser    MessageRole = "user"
	RolePersona MessageRole = "persona"
	RoleSystem  MessageRole = "system"
)

// MessageStatus tracks delivery progress through the queue overlay
type MessageStatus string

const (
	MessagePending    MessageStatus = "pending"
	MessageProcessing MessageStatus = "processing"
	MessageCompleted  MessageStatus = "completed"
	MessageFailed     MessageStatus = "failed"
)

// Message is one utterance in a session. Immutable after creation except
// for the status field; the durable store is the source of truth and queue
// entries are a transient mirror.
type Message struct {
	ID         string        `json:"id"`
	SessionID  string        `json:"session_id"`
	GroupID    *string       `json:"group_id,omitempty"`
	PersonaID  *string       `json:"persona_id,omitempty"`
	Content    string        `json:"content"`
	Role       MessageRole   `json:"role"`
	Status     MessageStatus `json:"status"`
	Timestamp  time.Time     `json:"timestamp"`
	ResponseTo *string       `json:"response_to,omitempty"`
}

// MessageRepository defines the interface for durable message storage.
// Create must persist before returning.
type MessageRepository interface {
	Create(ctx context.Context, message *Message) error
	Get(ctx context.Context, id string) (*Message, error)
	// ListBySession returns messages in chronological order with pagination
	ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]Message, error)
	// Recent returns the last limit messages in chronological order
	Recent(ctx context.Context, sessionID string, limit int) ([]Message, error)
	Count(ctx context.Context, sessionID string) (int, error)
	DeleteBySession(ctx context.Context, sessionID string) (int, error)
}
