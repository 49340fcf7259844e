package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fathima-sithara/conversation-service/internal/domain"
	"github.com/fathima-sithara/conversation-service/internal/metrics"
	"github.com/fathima-sithara/conversation-service/internal/middlewares"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Envelope for WS JSON messages
type Envelope struct {
	Type    string      `json:"type"` // "messages","presence","error" out; "read","ping" in
	Payload interface{} `json:"payload,omitempty"`
}

// UpgradeOnly rejects plain HTTP requests on websocket routes.
func UpgradeOnly(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// GET /ws/conversations/:peer_id?token=<jwt>
// Streams the conversation as a full snapshot on every change, plus the peer's presence.
func (h *Handler) Conversation(c *websocket.Conn) {
	me, _ := c.Locals(middlewares.LocalUserID).(string)
	peer := c.Params("peer_id")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics.Connections.Inc()
	defer metrics.Connections.Dec()

	out := make(chan Envelope, 16)
	send := func(env Envelope) {
		select {
		case out <- env:
		case <-ctx.Done():
		}
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, cancel, c, out)
	}()
	defer func() { <-writerDone }()
	defer cancel()

	if err := domain.ValidateParticipants(me, peer); err != nil {
		send(Envelope{Type: "error", Payload: err.Error()})
		return
	}
	key := domain.ConversationKey(me, peer)

	unsubscribe, err := h.chats.Subscribe(ctx, me, peer, func(msgs []*domain.Message) {
		send(Envelope{Type: "messages", Payload: msgs})
		if hasUnreadFor(msgs, me) {
			h.markRead(ctx, key, me)
		}
	})
	if err != nil {
		h.logger.Warnw("subscribe failed", "user_id", me, "conversation_key", key, "error", err)
		send(Envelope{Type: "error", Payload: err.Error()})
		return
	}
	defer unsubscribe()

	if h.presence != nil {
		h.trackPresence(ctx, me, key)
		defer h.releasePresence(me)
		go h.keepPresence(ctx, me, key)
		go h.forwardPresence(ctx, peer, send)
	}

	c.SetReadLimit(h.ws.MaxMessageBytes)
	for {
		mt, msg, err := c.ReadMessage()
		if err != nil {
			break
		}
		if mt != websocket.TextMessage {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			continue
		}
		switch env.Type {
		case "read":
			h.markRead(ctx, key, me)
		case "ping":
			send(Envelope{Type: "pong"})
		}
	}
}

func (h *Handler) writeLoop(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn, out <-chan Envelope) {
	defer cancel()
	ticker := time.NewTicker(h.ws.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.flush(c, out)
			_ = c.SetWriteDeadline(time.Now().Add(h.ws.WriteDeadline))
			_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case env := <-out:
			_ = c.SetWriteDeadline(time.Now().Add(h.ws.WriteDeadline))
			if err := c.WriteJSON(env); err != nil {
				h.logger.Warnw("ws write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.SetWriteDeadline(time.Now().Add(h.ws.WriteDeadline))
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.logger.Warnw("ws ping failed", "error", err)
				return
			}
		}
	}
}

// flush writes whatever is already queued.
func (h *Handler) flush(c *websocket.Conn, out <-chan Envelope) {
	for {
		select {
		case env := <-out:
			_ = c.SetWriteDeadline(time.Now().Add(h.ws.WriteDeadline))
			if err := c.WriteJSON(env); err != nil {
				return
			}
		default:
			return
		}
	}
}

func hasUnreadFor(msgs []*domain.Message, userID string) bool {
	for _, m := range msgs {
		if m.ReceiverID == userID && !m.Read {
			return true
		}
	}
	return false
}

func (h *Handler) markRead(ctx context.Context, key, userID string) {
	if _, err := h.chats.MarkConversationRead(ctx, key, userID); err != nil && ctx.Err() == nil {
		h.logger.Warnw("mark conversation read failed", "conversation_key", key, "user_id", userID, "error", err)
	}
}

func (h *Handler) trackPresence(ctx context.Context, userID, key string) {
	if err := h.presence.Connect(ctx, userID); err != nil {
		h.logger.Warnw("presence connect failed", "user_id", userID, "error", err)
		return
	}
	if err := h.presence.EnterConversation(ctx, userID, key); err != nil {
		h.logger.Warnw("presence enter failed", "user_id", userID, "error", err)
	}
}

// keepPresence refreshes the presence keys once per ping interval while the socket is open.
func (h *Handler) keepPresence(ctx context.Context, userID, key string) {
	ticker := time.NewTicker(h.ws.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.presence.Refresh(ctx, userID, key); err != nil && ctx.Err() == nil {
				h.logger.Warnw("presence refresh failed", "user_id", userID, "error", err)
			}
		}
	}
}

func (h *Handler) releasePresence(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := h.presence.LeaveConversation(ctx, userID); err != nil {
		h.logger.Warnw("presence leave failed", "user_id", userID, "error", err)
	}
	if err := h.presence.Disconnect(ctx, userID); err != nil {
		h.logger.Warnw("presence disconnect failed", "user_id", userID, "error", err)
	}
}

func (h *Handler) forwardPresence(ctx context.Context, peer string, send func(Envelope)) {
	updates, stop := h.presence.Subscribe(ctx, peer)
	defer stop()
	if p, err := h.presence.Get(ctx, peer); err == nil {
		send(Envelope{Type: "presence", Payload: p})
	}
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-updates:
			if !ok {
				return
			}
			send(Envelope{Type: "presence", Payload: p})
		}
	}
}
