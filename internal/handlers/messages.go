package handlers

import (
	"fmt"
	"io"

	"github.com/fathima-sithara/conversation-service/internal/domain"
	"github.com/fathima-sithara/conversation-service/internal/middlewares"
	"github.com/fathima-sithara/conversation-service/internal/service"
	"github.com/fathima-sithara/conversation-service/internal/utils"
	"github.com/gofiber/fiber/v2"
)

type sendMessageReq struct {
	ReceiverID string `json:"receiver_id" form:"receiver_id" validate:"required"`
	Kind       string `json:"kind" form:"kind" validate:"omitempty,oneof=text media voice story_reply"`
	Text       string `json:"text" form:"text" validate:"max=4096"`
	DurationMS int64  `json:"duration_ms" form:"duration_ms" validate:"gte=0"`
	StoryID    string `json:"story_id" form:"story_id"`
	StoryURL   string `json:"story_url" form:"story_url" validate:"omitempty,url"`
}

// POST /v1/messages
// Text and story replies are JSON; media and voice notes are multipart with a 'file' part.
func (h *Handler) SendMessage(c *fiber.Ctx) error {
	var req sendMessageReq
	if err := h.bind(c, &req); err != nil {
		return h.writeError(c, err)
	}
	if req.Kind == "" {
		req.Kind = string(domain.KindText)
	}

	in := service.SendRequest{
		SenderID:   middlewares.UserID(c),
		ReceiverID: req.ReceiverID,
		Kind:       domain.MessageKind(req.Kind),
		Text:       req.Text,
		DurationMS: req.DurationMS,
	}
	if req.StoryID != "" {
		in.Story = &domain.StoryRef{StoryID: req.StoryID, StoryURL: req.StoryURL}
	}
	if in.Kind == domain.KindMedia || in.Kind == domain.KindVoice {
		att, err := formAttachment(c)
		if err != nil {
			return h.writeError(c, err)
		}
		in.Attachment = att
	}

	m, err := h.chats.Send(c.UserContext(), in)
	if err != nil {
		return h.writeError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, m)
}

func formAttachment(c *fiber.Ctx) (*service.Attachment, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: file missing", domain.ErrValidation)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &service.Attachment{Data: data, ContentType: fh.Header.Get(fiber.HeaderContentType)}, nil
}

// GET /v1/conversations/:peer_id/messages
func (h *Handler) History(c *fiber.Ctx) error {
	msgs, err := h.chats.History(c.UserContext(), middlewares.UserID(c), c.Params("peer_id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, msgs)
}

// POST /v1/conversations/:peer_id/read
func (h *Handler) MarkRead(c *fiber.Ctx) error {
	me, peer := middlewares.UserID(c), c.Params("peer_id")
	if err := domain.ValidateParticipants(me, peer); err != nil {
		return h.writeError(c, err)
	}
	n, err := h.chats.MarkConversationRead(c.UserContext(), domain.ConversationKey(me, peer), me)
	if err != nil {
		return h.writeError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"marked": n})
}

// DELETE /v1/messages/:msg_id?type=me|all
func (h *Handler) DeleteMessage(c *fiber.Ctx) error {
	id, me := c.Params("msg_id"), middlewares.UserID(c)
	switch c.Query("type", "me") {
	case "me":
		purged, err := h.chats.DeleteForMe(c.UserContext(), id, me)
		if err != nil {
			return h.writeError(c, err)
		}
		return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"deleted": id, "purged": purged})
	case "all", "everyone":
		if err := h.chats.DeleteForEveryone(c.UserContext(), id, me); err != nil {
			return h.writeError(c, err)
		}
		return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"deleted": id, "purged": true})
	}
	return utils.JSONError(c, fiber.StatusBadRequest, "type must be me or all")
}

// GET /v1/messages/:msg_id
func (h *Handler) GetMessage(c *fiber.Ctx) error {
	m, err := h.chats.GetMessage(c.UserContext(), c.Params("msg_id"), middlewares.UserID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, m)
}
