// Package memory keeps every collection in process. It backs local
// development (store.driver=memory) and the service tests.
package memory

import (
	"context"
	"sync"

	"github.com/fathima-sithara/conversation-service/internal/domain"
)

type Store struct {
	Messages      *MessageRepository
	Chats         *ChatRepository
	Favorites     *FavoriteRepository
	Verifications *VerificationRepository
	BlueTicks     *BlueTickRepository

	txMu sync.Mutex
}

func New() *Store {
	return &Store{
		Messages:      &MessageRepository{msgs: map[string]*domain.Message{}},
		Chats:         &ChatRepository{chats: map[string]*domain.ChatSummary{}},
		Favorites:     &FavoriteRepository{favs: map[string]*domain.Favorite{}},
		Verifications: &VerificationRepository{items: map[string]*domain.PhoneVerification{}},
		BlueTicks:     &BlueTickRepository{apps: map[string]*domain.BlueTickApplication{}},
	}
}

// WithTransaction serializes fn against other transactions. There is no
// rollback: a failing fn leaves its earlier writes in place.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
}

func (s *Store) Close() error { return nil }
