package handlers

import (
	"github.com/fathima-sithara/conversation-service/internal/middlewares"
	"github.com/fathima-sithara/conversation-service/internal/service"
	"github.com/fathima-sithara/conversation-service/internal/utils"
	"github.com/gofiber/fiber/v2"
)

type reviewReq struct {
	Approve *bool  `json:"approve" validate:"required"`
	Note    string `json:"note" validate:"max=500"`
}

func reviewer(c *fiber.Ctx) service.Reviewer {
	id := middlewares.Identity(c)
	return service.Reviewer{ID: id.UserID, Admin: id.IsAdmin()}
}

// POST /v1/blue-tick
func (h *Handler) ApplyBlueTick(c *fiber.Ctx) error {
	var req service.ApplyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	app, err := h.blueTicks.Apply(c.UserContext(), middlewares.UserID(c), req)
	if err != nil {
		return h.writeError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, app)
}

// GET /v1/blue-tick/me
func (h *Handler) MyBlueTick(c *fiber.Ctx) error {
	app, err := h.blueTicks.Get(c.UserContext(), middlewares.UserID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, app)
}

// GET /v1/blue-tick/pending
func (h *Handler) PendingBlueTicks(c *fiber.Ctx) error {
	apps, err := h.blueTicks.ListPending(c.UserContext(), reviewer(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, apps)
}

// POST /v1/blue-tick/:id/review
func (h *Handler) ReviewBlueTick(c *fiber.Ctx) error {
	var req reviewReq
	if err := h.bind(c, &req); err != nil {
		return h.writeError(c, err)
	}
	app, err := h.blueTicks.Review(c.UserContext(), reviewer(c), c.Params("id"), *req.Approve, req.Note)
	if err != nil {
		return h.writeError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, app)
}
