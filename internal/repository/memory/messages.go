package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/fathima-sithara/conversation-service/internal/domain"
)

type MessageRepository struct {
	mu   sync.RWMutex
	msgs map[string]*domain.Message
}

func (r *MessageRepository) Insert(ctx context.Context, m *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.msgs[m.ID]; ok {
		return fmt.Errorf("insert message: duplicate id %s", m.ID)
	}
	if m.DeletedFor == nil {
		m.DeletedFor = []string{}
	}
	r.msgs[m.ID] = m.Clone()
	return nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.msgs[id]
	if !ok {
		return nil, fmt.Errorf("get message: %w", domain.ErrNotFound)
	}
	return m.Clone(), nil
}

func (r *MessageRepository) ListByConversation(ctx context.Context, key string) ([]*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Message{}
	for _, m := range r.msgs {
		if m.ConversationKey == key {
			out = append(out, m.Clone())
		}
	}
	domain.SortNewestFirst(out)
	return out, nil
}

func (r *MessageRepository) AddDeletedFor(ctx context.Context, id, userID string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return nil, fmt.Errorf("tombstone message: %w", domain.ErrNotFound)
	}
	if !slices.Contains(m.DeletedFor, userID) {
		m.DeletedFor = append(m.DeletedFor, userID)
	}
	return m.Clone(), nil
}

func (r *MessageRepository) Delete(ctx context.Context, id string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return nil, fmt.Errorf("delete message: %w", domain.ErrNotFound)
	}
	delete(r.msgs, id)
	return m, nil
}

func (r *MessageRepository) Latest(ctx context.Context, key string) (*domain.Message, error) {
	msgs, _ := r.ListByConversation(ctx, key)
	if len(msgs) == 0 {
		return nil, fmt.Errorf("latest message: %w", domain.ErrNotFound)
	}
	return msgs[0], nil
}

func (r *MessageRepository) CountUnread(ctx context.Context, key, readerID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, m := range r.msgs {
		if m.ConversationKey == key && m.ReceiverID == readerID && !m.Read {
			n++
		}
	}
	return n, nil
}

func (r *MessageRepository) MarkRead(ctx context.Context, key, readerID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.msgs {
		if m.ConversationKey == key && m.ReceiverID == readerID && !m.Read {
			m.Read = true
			n++
		}
	}
	return n, nil
}
