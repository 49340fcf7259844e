package service

import (
	"context"
	"fmt"

	"github.com/fathima-sithara/conversation-service/internal/domain"
	"github.com/fathima-sithara/conversation-service/internal/repository"
	"github.com/fathima-sithara/conversation-service/internal/utils"
	"go.uber.org/zap"
)

// FavoriteService keeps per-user copies of messages. A copy is independent
// of its source: deleting or purging the message does not touch it.
type FavoriteService struct {
	repo   repository.FavoriteRepository
	clock  *utils.Clock
	logger *zap.SugaredLogger
}

func NewFavoriteService(repo repository.FavoriteRepository, clock *utils.Clock, logger *zap.SugaredLogger) *FavoriteService {
	if clock == nil {
		clock = utils.NewClock()
	}
	return &FavoriteService{repo: repo, clock: clock, logger: logger}
}

func (s *FavoriteService) Add(ctx context.Context, userID string, m *domain.Message) (*domain.Favorite, error) {
	if err := domain.ValidateUserID(userID); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: message is required", domain.ErrValidation)
	}
	src := m.Clone()
	f := &domain.Favorite{
		ID:              utils.NewID(),
		UserID:          userID,
		SourceMessageID: src.ID,
		ConversationKey: src.ConversationKey,
		SenderID:        src.SenderID,
		ReceiverID:      src.ReceiverID,
		Body:            src.Body,
		SentAt:          src.CreatedAt,
		AddedAt:         s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, f); err != nil {
		return nil, err
	}
	s.logger.Debugw("favorite added", "user_id", userID, "favorite_id", f.ID, "message_id", src.ID)
	return f, nil
}

// List returns userID's favorites, most recently added first.
func (s *FavoriteService) List(ctx context.Context, userID string) ([]*domain.Favorite, error) {
	if err := domain.ValidateUserID(userID); err != nil {
		return nil, err
	}
	favs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	domain.SortFavoritesNewestFirst(favs)
	return favs, nil
}

func (s *FavoriteService) Remove(ctx context.Context, userID, id string) error {
	if id == "" {
		return fmt.Errorf("%w: favorite id is required", domain.ErrValidation)
	}
	return s.repo.Delete(ctx, userID, id)
}
