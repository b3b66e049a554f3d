package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

// UserRepository persists user documents.
type UserRepository interface {
	// Create inserts u and sets its ID. Duplicate emails fail with a 409 errx.Error.
	Create(ctx context.Context, u *User) error

	// FindByEmail looks up a user by normalised email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByID looks up a user by hex ID. Malformed IDs are reported as not found.
	FindByID(ctx context.Context, id string) (*User, error)

	// UpdateAssistant sets the assistant profile and returns the updated user.
	UpdateAssistant(ctx context.Context, id string, profile AssistantProfile) (*User, error)

	// AppendHistory pushes entry to the user's history keeping only the newest limit entries.
	AppendHistory(ctx context.Context, id string, entry string, limit int) error

	// ClearHistory empties the user's history.
	ClearHistory(ctx context.Context, id string) error
}

type ConversationRepository interface {
	// AddMessages appends messages to the conversation history for the given conversation
	AddMessages(ctx context.Context, conversationID string, messages ...*schema.Message) error

	// LoadHistory retrieves at most the last limit messages of a conversation (all when limit <= 0)
	LoadHistory(ctx context.Context, conversationID string, limit int) (*ConversationHistory, error)

	// ClearHistory removes all conversation history for a conversation
	ClearHistory(ctx context.Context, conversationID string) error
}

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	ConversationID string
	Messages       []*schema.Message
}

// TokenDenylist remembers revoked token IDs until the token would have expired anyway.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
