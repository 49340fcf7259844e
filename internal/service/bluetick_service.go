package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fathima-sithara/conversation-service/internal/domain"
	"github.com/fathima-sithara/conversation-service/internal/repository"
	"github.com/fathima-sithara/conversation-service/internal/utils"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var ErrApplicationExists = fmt.Errorf("%w: an application is already pending or approved", domain.ErrValidation)

type ApplyRequest struct {
	Username    string `json:"username" validate:"required,username"`
	FullName    string `json:"full_name" validate:"required,min=2,max=80"`
	Category    string `json:"category" validate:"required,oneof=creator business public_figure brand other"`
	DocumentURL string `json:"document_url" validate:"omitempty,url"`
}

// Reviewer is the caller of an admin operation.
type Reviewer struct {
	ID    string
	Admin bool
}

type BlueTickService struct {
	repo     repository.BlueTickRepository
	validate *validator.Validate
	clock    *utils.Clock
	logger   *zap.SugaredLogger
}

func NewBlueTickService(repo repository.BlueTickRepository, v *validator.Validate, clock *utils.Clock, logger *zap.SugaredLogger) *BlueTickService {
	if v == nil {
		v = utils.NewValidator()
	}
	if clock == nil {
		clock = utils.NewClock()
	}
	return &BlueTickService{repo: repo, validate: v, clock: clock, logger: logger}
}

// Apply files a verification badge application. A user may hold at most one
// pending application and cannot reapply once approved.
func (s *BlueTickService) Apply(ctx context.Context, userID string, req ApplyRequest) (*domain.BlueTickApplication, error) {
	if err := domain.ValidateUserID(userID); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	prev, err := s.repo.LatestForUser(ctx, userID)
	switch {
	case err == nil:
		if prev.Status == domain.BlueTickPending || prev.Status == domain.BlueTickApproved {
			return nil, ErrApplicationExists
		}
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	now := s.clock.Now()
	app := &domain.BlueTickApplication{
		ID:          utils.NewID(),
		UserID:      userID,
		Username:    req.Username,
		FullName:    req.FullName,
		Category:    req.Category,
		DocumentURL: req.DocumentURL,
		Status:      domain.BlueTickPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, app); err != nil {
		return nil, err
	}
	s.logger.Infow("blue tick application filed", "user_id", userID, "application_id", app.ID)
	return app, nil
}

// Get returns the caller's most recent application.
func (s *BlueTickService) Get(ctx context.Context, userID string) (*domain.BlueTickApplication, error) {
	return s.repo.LatestForUser(ctx, userID)
}

func (s *BlueTickService) ListPending(ctx context.Context, r Reviewer) ([]*domain.BlueTickApplication, error) {
	if !r.Admin {
		return nil, domain.ErrPermissionDenied
	}
	return s.repo.ListByStatus(ctx, domain.BlueTickPending)
}

// Review approves or rejects a pending application.
func (s *BlueTickService) Review(ctx context.Context, r Reviewer, id string, approve bool, note string) (*domain.BlueTickApplication, error) {
	if !r.Admin {
		return nil, domain.ErrPermissionDenied
	}
	status := domain.BlueTickRejected
	if approve {
		status = domain.BlueTickApproved
	}
	app, err := s.repo.Review(ctx, id, status, r.ID, note, s.clock.Now())
	if errors.Is(err, domain.ErrNotFound) {
		if existing, getErr := s.repo.GetByID(ctx, id); getErr == nil {
			return nil, fmt.Errorf("%w: application is already %s", domain.ErrValidation, existing.Status)
		}
	}
	if err != nil {
		return nil, err
	}
	s.logger.Infow("blue tick application reviewed", "application_id", id, "status", status, "reviewer_id", r.ID)
	return app, nil
}
