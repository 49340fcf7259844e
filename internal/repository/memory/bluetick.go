package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fathima-sithara/conversation-service/internal/domain"
)

type BlueTickRepository struct {
	mu   sync.RWMutex
	apps map[string]*domain.BlueTickApplication
}

func (r *BlueTickRepository) Insert(ctx context.Context, app *domain.BlueTickApplication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.apps {
		if existing.UserID == app.UserID && existing.Status == domain.BlueTickPending {
			return fmt.Errorf("%w: an application is already pending", domain.ErrValidation)
		}
	}
	cp := *app
	r.apps[app.ID] = &cp
	return nil
}

func (r *BlueTickRepository) GetByID(ctx context.Context, id string) (*domain.BlueTickApplication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.apps[id]
	if !ok {
		return nil, fmt.Errorf("get blue tick application: %w", domain.ErrNotFound)
	}
	cp := *app
	return &cp, nil
}

func (r *BlueTickRepository) LatestForUser(ctx context.Context, userID string) (*domain.BlueTickApplication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *domain.BlueTickApplication
	for _, app := range r.apps {
		if app.UserID == userID && (latest == nil || app.CreatedAt.After(latest.CreatedAt)) {
			latest = app
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("latest blue tick application: %w", domain.ErrNotFound)
	}
	cp := *latest
	return &cp, nil
}

func (r *BlueTickRepository) ListByStatus(ctx context.Context, status domain.BlueTickStatus) ([]*domain.BlueTickApplication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.BlueTickApplication{}
	for _, app := range r.apps {
		if app.Status == status {
			cp := *app
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *BlueTickRepository) Review(ctx context.Context, id string, status domain.BlueTickStatus, reviewerID, note string, at time.Time) (*domain.BlueTickApplication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok || app.Status != domain.BlueTickPending {
		return nil, fmt.Errorf("review blue tick application: %w", domain.ErrNotFound)
	}
	app.Status = status
	app.ReviewerID = reviewerID
	app.ReviewNote = note
	reviewedAt := at
	app.ReviewedAt = &reviewedAt
	app.UpdatedAt = at
	cp := *app
	return &cp, nil
}
