package handlers

import (
	"github.com/fathima-sithara/conversation-service/internal/middlewares"
	"github.com/fathima-sithara/conversation-service/internal/utils"
	"github.com/gofiber/fiber/v2"
)

type addFavoriteReq struct {
	MessageID string `json:"message_id" validate:"required"`
}

// POST /v1/favorites
func (h *Handler) AddFavorite(c *fiber.Ctx) error {
	var req addFavoriteReq
	if err := h.bind(c, &req); err != nil {
		return h.writeError(c, err)
	}
	me := middlewares.UserID(c)
	m, err := h.chats.GetMessage(c.UserContext(), req.MessageID, me)
	if err != nil {
		return h.writeError(c, err)
	}
	fav, err := h.favorites.Add(c.UserContext(), me, m)
	if err != nil {
		return h.writeError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, fav)
}

// GET /v1/favorites
func (h *Handler) ListFavorites(c *fiber.Ctx) error {
	favs, err := h.favorites.List(c.UserContext(), middlewares.UserID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, favs)
}

// DELETE /v1/favorites/:id
func (h *Handler) RemoveFavorite(c *fiber.Ctx) error {
	if err := h.favorites.Remove(c.UserContext(), middlewares.UserID(c), c.Params("id")); err != nil {
		return h.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
