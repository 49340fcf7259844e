package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fathima-sithara/conversation-service/internal/domain"
	"github.com/fathima-sithara/conversation-service/internal/presence"
	"github.com/fathima-sithara/conversation-service/internal/service"
	"github.com/fathima-sithara/conversation-service/internal/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// PresenceTracker is the subset of presence.Store the handlers use.
type PresenceTracker interface {
	Connect(ctx context.Context, userID string) error
	Disconnect(ctx context.Context, userID string) error
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
	EnterConversation(ctx context.Context, userID, conversationKey string) error
	LeaveConversation(ctx context.Context, userID string) error
	Refresh(ctx context.Context, userID, conversationKey string) error
	Get(ctx context.Context, userID string) (presence.Presence, error)
	Subscribe(ctx context.Context, userID string) (<-chan presence.Presence, func())
}

// BlobReader serves objects kept by the in-process blob store.
type BlobReader interface {
	Get(key string) ([]byte, string, bool)
}

type WSConfig struct {
	PingInterval    time.Duration
	WriteDeadline   time.Duration
	MaxMessageBytes int64
}

type Deps struct {
	Chats        *service.ChatService
	Favorites    *service.FavoriteService
	Verification *service.VerificationService
	BlueTicks    *service.BlueTickService
	Presence     PresenceTracker
	Blobs        BlobReader
	Validate     *validator.Validate
	WS           WSConfig
	Checks       map[string]HealthCheck
	Logger       *zap.SugaredLogger
}

type Handler struct {
	chats        *service.ChatService
	favorites    *service.FavoriteService
	verification *service.VerificationService
	blueTicks    *service.BlueTickService
	presence     PresenceTracker
	blobs        BlobReader
	validate     *validator.Validate
	ws           WSConfig
	checks       map[string]HealthCheck
	logger       *zap.SugaredLogger
}

func NewHandler(d Deps) *Handler {
	if d.Validate == nil {
		d.Validate = utils.NewValidator()
	}
	if d.WS.PingInterval <= 0 {
		d.WS.PingInterval = 30 * time.Second
	}
	if d.WS.WriteDeadline <= 0 {
		d.WS.WriteDeadline = 10 * time.Second
	}
	if d.WS.MaxMessageBytes <= 0 {
		d.WS.MaxMessageBytes = 64 << 10
	}
	return &Handler{
		chats:        d.Chats,
		favorites:    d.Favorites,
		verification: d.Verification,
		blueTicks:    d.BlueTicks,
		presence:     d.Presence,
		blobs:        d.Blobs,
		validate:     d.Validate,
		ws:           d.WS,
		checks:       d.Checks,
		logger:       d.Logger,
	}
}

// StatusFor maps a service error onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrPermissionDenied):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrRateLimited):
		return fiber.StatusTooManyRequests
	case errors.Is(err, domain.ErrUploadFailed):
		return fiber.StatusBadGateway
	case errors.Is(err, domain.ErrNetworkFailure):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

func (h *Handler) writeError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	switch status {
	case fiber.StatusBadRequest:
		if details := utils.FormatValidationErrors(err); len(details) > 0 {
			return utils.JSONValidationError(c, domain.ErrValidation.Error(), details)
		}
	case fiber.StatusInternalServerError:
		h.logger.Errorw("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return utils.JSONError(c, status, "internal server error")
	}
	return utils.JSONError(c, status, err.Error())
}

// bind parses the body into req and runs struct validation.
func (h *Handler) bind(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return fmt.Errorf("%w: invalid body", domain.ErrValidation)
	}
	if err := h.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return nil
}
