package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads the chat events topic and hands events from other
// instances to handle. Events this instance produced are skipped.
type Consumer struct {
	reader  messageReader
	origin  string
	backoff func() backoff.BackOff
	logger  *zap.SugaredLogger
}

func NewConsumer(brokers []string, topic, groupID, origin string, logger *zap.SugaredLogger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return &Consumer{reader: r, origin: origin, backoff: readBackoff, logger: logger}
}

// readBackoff spaces out reads while the brokers are unreachable.
func readBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, handle func(ctx context.Context, ev Event)) {
	retry := c.backoff()
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			wait := retry.NextBackOff()
			if wait == backoff.Stop {
				c.logger.Errorw("event consumer giving up", "error", err)
				return
			}
			c.logger.Warnw("read event failed", "error", err, "retry_in", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		retry.Reset()

		ev, ok := c.decode(m.Value)
		if !ok {
			continue
		}
		handle(ctx, ev)
	}
}

func (c *Consumer) decode(raw []byte) (Event, bool) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		c.logger.Warnw("invalid event", "error", err)
		return Event{}, false
	}
	if ev.Origin == c.origin {
		return Event{}, false
	}
	return ev, true
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
