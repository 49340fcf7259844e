package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/fathima-sithara/conversation-service/internal/domain"
)

type VerificationRepository struct {
	mu    sync.Mutex
	items map[string]*domain.PhoneVerification
}

func (r *VerificationRepository) Upsert(ctx context.Context, v *domain.PhoneVerification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *v
	r.items[v.ID] = &cp
	return nil
}

func (r *VerificationRepository) Get(ctx context.Context, id string) (*domain.PhoneVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("get verification: %w", domain.ErrNotFound)
	}
	cp := *v
	return &cp, nil
}

func (r *VerificationRepository) IncrementAttempts(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.items[id]; ok {
		v.Attempts++
	}
	return nil
}

func (r *VerificationRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}
