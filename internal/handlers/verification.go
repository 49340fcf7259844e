package handlers

import (
	"github.com/fathima-sithara/conversation-service/internal/middlewares"
	"github.com/fathima-sithara/conversation-service/internal/utils"
	"github.com/gofiber/fiber/v2"
)

type requestCodeReq struct {
	Phone string `json:"phone" validate:"required,e164"`
}

type verifyCodeReq struct {
	Phone string `json:"phone" validate:"required,e164"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// POST /v1/verification/phone
func (h *Handler) RequestPhoneCode(c *fiber.Ctx) error {
	var req requestCodeReq
	if err := h.bind(c, &req); err != nil {
		return h.writeError(c, err)
	}
	expires, err := h.verification.RequestCode(c.UserContext(), middlewares.UserID(c), req.Phone)
	if err != nil {
		return h.writeError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusAccepted, fiber.Map{"message": "otp_sent", "expires_at": expires})
}

// POST /v1/verification/phone/verify
func (h *Handler) VerifyPhoneCode(c *fiber.Ctx) error {
	var req verifyCodeReq
	if err := h.bind(c, &req); err != nil {
		return h.writeError(c, err)
	}
	if err := h.verification.VerifyCode(c.UserContext(), middlewares.UserID(c), req.Phone, req.Code); err != nil {
		return h.writeError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"message": "phone_verified", "phone": req.Phone})
}
