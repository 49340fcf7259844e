package kafka

import (
	"context"
	"time"

	"github.com/fathima-sithara/conversation-service/internal/utils"
	"go.uber.org/zap"
)

// Publisher stamps events with this instance's origin and writes them
// without blocking the caller. Failures are logged, never returned.
type Publisher struct {
	producer *Producer
	origin   string
	timeout  time.Duration
	logger   *zap.SugaredLogger
}

func NewPublisher(p *Producer, origin string, logger *zap.SugaredLogger) *Publisher {
	return &Publisher{producer: p, origin: origin, timeout: 5 * time.Second, logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, ev Event) {
	if ev.ID == "" {
		ev.ID = utils.NewID()
	}
	if ev.At.IsZero() {
		ev.At = utils.NowUTC()
	}
	ev.Origin = p.origin
	key := ev.ConversationKey
	if key == "" {
		key = ev.ActorID
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()
		if err := p.producer.PublishMessage(ctx, key, ev); err != nil {
			p.logger.Warnw("publish event failed", "type", ev.Type, "key", key, "error", err)
		}
	}()
}
