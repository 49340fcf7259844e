package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/fathima-sithara/conversation-service/internal/domain"
)

type FavoriteRepository struct {
	mu   sync.RWMutex
	favs map[string]*domain.Favorite
}

func (r *FavoriteRepository) Insert(ctx context.Context, f *domain.Favorite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *f
	r.favs[f.ID] = &cp
	return nil
}

func (r *FavoriteRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Favorite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Favorite{}
	for _, f := range r.favs {
		if f.UserID == userID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *FavoriteRepository) Delete(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.favs[id]
	if !ok || f.UserID != userID {
		return fmt.Errorf("delete favorite: %w", domain.ErrNotFound)
	}
	delete(r.favs, id)
	return nil
}
