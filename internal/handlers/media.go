package handlers

import (
	"github.com/fathima-sithara/conversation-service/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// GET /media/*
// Only mounted when blobs are kept in process.
func (h *Handler) ServeMedia(c *fiber.Ctx) error {
	if h.blobs == nil {
		return utils.JSONError(c, fiber.StatusNotFound, "not found")
	}
	data, ct, ok := h.blobs.Get(c.Params("*"))
	if !ok {
		return utils.JSONError(c, fiber.StatusNotFound, "not found")
	}
	c.Set(fiber.HeaderContentType, ct)
	return c.Send(data)
}
