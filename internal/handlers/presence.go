package handlers

import (
	"fmt"

	"github.com/fathima-sithara/conversation-service/internal/domain"
	"github.com/fathima-sithara/conversation-service/internal/middlewares"
	"github.com/fathima-sithara/conversation-service/internal/presence"
	"github.com/fathima-sithara/conversation-service/internal/utils"
	"github.com/gofiber/fiber/v2"
)

var errPresenceDisabled = fmt.Errorf("%w: presence is not configured", domain.ErrNetworkFailure)

type setPresenceReq struct {
	Status string `json:"status" validate:"required,oneof=online offline"`
}

// GET /v1/presence/:user_id
func (h *Handler) GetPresence(c *fiber.Ctx) error {
	if h.presence == nil {
		return h.writeError(c, errPresenceDisabled)
	}
	p, err := h.presence.Get(c.UserContext(), c.Params("user_id"))
	if err != nil {
		return h.writeError(c, fmt.Errorf("%w: %v", domain.ErrNetworkFailure, err))
	}
	return utils.JSONSuccess(c, fiber.StatusOK, p)
}

// PUT /v1/presence
func (h *Handler) SetPresence(c *fiber.Ctx) error {
	if h.presence == nil {
		return h.writeError(c, errPresenceDisabled)
	}
	var req setPresenceReq
	if err := h.bind(c, &req); err != nil {
		return h.writeError(c, err)
	}
	me := middlewares.UserID(c)
	var err error
	if req.Status == presence.StatusOnline {
		err = h.presence.SetOnline(c.UserContext(), me)
	} else {
		err = h.presence.SetOffline(c.UserContext(), me)
	}
	if err != nil {
		return h.writeError(c, fmt.Errorf("%w: %v", domain.ErrNetworkFailure, err))
	}
	return c.SendStatus(fiber.StatusNoContent)
}
