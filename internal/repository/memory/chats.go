package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/fathima-sithara/conversation-service/internal/domain"
)

type ChatRepository struct {
	mu    sync.RWMutex
	chats map[string]*domain.ChatSummary
}

func (r *ChatRepository) UpsertOnSend(ctx context.Context, m *domain.Message) error {
	a, b, err := domain.Participants(m.ConversationKey)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[m.ConversationKey]
	if !ok {
		c = &domain.ChatSummary{
			Key:          m.ConversationKey,
			Participants: []string{a, b},
			UnreadCount:  map[string]int{m.SenderID: 0},
			CreatedAt:    m.CreatedAt,
		}
		r.chats[m.ConversationKey] = c
	}
	c.LastMessage = domain.LastMessageOf(m)
	c.LastMessageTime = m.CreatedAt
	c.DeletedFor = []string{}
	c.UnreadCount[m.ReceiverID]++
	return nil
}

func (r *ChatRepository) Get(ctx context.Context, key string) (*domain.ChatSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chats[key]
	if !ok {
		return nil, fmt.Errorf("get chat: %w", domain.ErrNotFound)
	}
	return cloneChat(c), nil
}

func (r *ChatRepository) ListForUser(ctx context.Context, userID string) ([]*domain.ChatSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.ChatSummary{}
	for _, c := range r.chats {
		if slices.Contains(c.Participants, userID) && !c.HiddenFor(userID) {
			out = append(out, cloneChat(c))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessageTime.After(out[j].LastMessageTime)
	})
	return out, nil
}

func (r *ChatRepository) ReplaceLastMessage(ctx context.Context, key, removedID string, last domain.LastMessage, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[key]
	if !ok || c.LastMessage.MessageID != removedID {
		return false, nil
	}
	c.LastMessage = last
	c.LastMessageTime = at
	return true, nil
}

func (r *ChatRepository) ResetUnread(ctx context.Context, key, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.chats[key]; ok {
		c.UnreadCount[userID] = 0
	}
	return nil
}

func (r *ChatRepository) Hide(ctx context.Context, key, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[key]
	if !ok {
		return fmt.Errorf("hide chat: %w", domain.ErrNotFound)
	}
	if !slices.Contains(c.DeletedFor, userID) {
		c.DeletedFor = append(c.DeletedFor, userID)
	}
	return nil
}

func cloneChat(c *domain.ChatSummary) *domain.ChatSummary {
	out := *c
	out.Participants = slices.Clone(c.Participants)
	out.UnreadCount = maps.Clone(c.UnreadCount)
	out.DeletedFor = slices.Clone(c.DeletedFor)
	if out.DeletedFor == nil {
		out.DeletedFor = []string{}
	}
	if c.LastMessage.Body != nil {
		body := *c.LastMessage.Body
		out.LastMessage.Body = &body
	}
	return &out
}
