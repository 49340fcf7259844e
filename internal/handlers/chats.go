package handlers

import (
	"github.com/fathima-sithara/conversation-service/internal/middlewares"
	"github.com/fathima-sithara/conversation-service/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// GET /v1/chats
func (h *Handler) ListChats(c *fiber.Ctx) error {
	chats, err := h.chats.ListChats(c.UserContext(), middlewares.UserID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, chats)
}

// GET /v1/chats/:peer_id
func (h *Handler) GetChat(c *fiber.Ctx) error {
	chat, err := h.chats.GetChat(c.UserContext(), middlewares.UserID(c), c.Params("peer_id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, chat)
}

// DELETE /v1/chats/:peer_id
func (h *Handler) HideChat(c *fiber.Ctx) error {
	if err := h.chats.HideChat(c.UserContext(), middlewares.UserID(c), c.Params("peer_id")); err != nil {
		return h.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
