package repository

import (
	"context"
	"time"

	"github.com/fathima-sithara/conversation-service/internal/domain"
)

// MessageRepository persists the messages collection.
type MessageRepository interface {
	Insert(ctx context.Context, m *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	// ListByConversation returns every message of the conversation, newest first.
	ListByConversation(ctx context.Context, key string) ([]*domain.Message, error)
	// AddDeletedFor tombstones the message for userID and returns the updated record.
	AddDeletedFor(ctx context.Context, id, userID string) (*domain.Message, error)
	// Delete removes the message and returns what was removed.
	Delete(ctx context.Context, id string) (*domain.Message, error)
	// Latest returns the newest message left in the conversation or domain.ErrNotFound.
	Latest(ctx context.Context, key string) (*domain.Message, error)
	CountUnread(ctx context.Context, key, readerID string) (int64, error)
	MarkRead(ctx context.Context, key, readerID string) (int64, error)
}

// ChatRepository persists conversation summaries in the chats collection.
type ChatRepository interface {
	// UpsertOnSend creates the summary on first message or refreshes it,
	// incrementing the receiver's unread counter atomically.
	UpsertOnSend(ctx context.Context, m *domain.Message) error
	Get(ctx context.Context, key string) (*domain.ChatSummary, error)
	ListForUser(ctx context.Context, userID string) ([]*domain.ChatSummary, error)
	// ReplaceLastMessage swaps the last message only while it still points at
	// removedID. It reports whether the summary was changed.
	ReplaceLastMessage(ctx context.Context, key, removedID string, last domain.LastMessage, at time.Time) (bool, error)
	ResetUnread(ctx context.Context, key, userID string) error
	Hide(ctx context.Context, key, userID string) error
}

type FavoriteRepository interface {
	Insert(ctx context.Context, f *domain.Favorite) error
	ListByUser(ctx context.Context, userID string) ([]*domain.Favorite, error)
	Delete(ctx context.Context, userID, id string) error
}

type VerificationRepository interface {
	// Upsert replaces any pending verification with the same id.
	Upsert(ctx context.Context, v *domain.PhoneVerification) error
	Get(ctx context.Context, id string) (*domain.PhoneVerification, error)
	IncrementAttempts(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type BlueTickRepository interface {
	Insert(ctx context.Context, app *domain.BlueTickApplication) error
	GetByID(ctx context.Context, id string) (*domain.BlueTickApplication, error)
	LatestForUser(ctx context.Context, userID string) (*domain.BlueTickApplication, error)
	ListByStatus(ctx context.Context, status domain.BlueTickStatus) ([]*domain.BlueTickApplication, error)
	// Review moves a pending application to status. A non pending or missing
	// application yields domain.ErrNotFound.
	Review(ctx context.Context, id string, status domain.BlueTickStatus, reviewerID, note string, at time.Time) (*domain.BlueTickApplication, error)
}

// Transactor runs fn as one atomic unit when the backend supports it.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
