package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fathima-sithara/conversation-service/internal/domain"
	"github.com/fathima-sithara/conversation-service/internal/hub"
	"github.com/fathima-sithara/conversation-service/internal/kafka"
	"github.com/fathima-sithara/conversation-service/internal/media"
	"github.com/fathima-sithara/conversation-service/internal/repository/memory"
	"github.com/fathima-sithara/conversation-service/internal/storage"
	"github.com/fathima-sithara/conversation-service/internal/utils"
	"go.uber.org/zap"
)

var testEpoch = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type fakeTime struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeTime) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev kafka.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type failingBlobs struct{}

func (failingBlobs) Upload(context.Context, string, string, []byte) (string, error) {
	return "", errors.New("connection reset by peer")
}

type chatFixture struct {
	store  *memory.Store
	blobs  *storage.MemoryStore
	hub    *hub.Hub
	events *recordingPublisher
	clock  *fakeTime
	svc    *ChatService
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	f := &chatFixture{
		store:  memory.New(),
		blobs:  storage.NewMemoryStore("http://localhost:8083/media"),
		events: &recordingPublisher{},
		clock:  &fakeTime{now: testEpoch},
	}
	logger := zap.NewNop().Sugar()
	f.hub = hub.New(f.store.Messages.ListByConversation, logger)
	t.Cleanup(f.hub.Close)
	f.svc = NewChatService(ChatDeps{
		Messages: f.store.Messages,
		Chats:    f.store.Chats,
		Tx:       f.store,
		Blobs:    f.blobs,
		Media:    media.NewProcessor(1280, 85, 1<<20),
		Hub:      f.hub,
		Events:   f.events,
		Clock:    utils.NewClockFunc(f.clock.Now),
		Logger:   logger,
	})
	return f
}

func (f *chatFixture) sendText(t *testing.T, from, to, text string) *domain.Message {
	t.Helper()
	m, err := f.svc.Send(context.Background(), SendRequest{SenderID: from, ReceiverID: to, Kind: domain.KindText, Text: text})
	if err != nil {
		t.Fatalf("send %q: %v", text, err)
	}
	f.clock.Advance(time.Second)
	return m
}

func texts(msgs []*domain.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Body.Text)
	}
	return out
}

// collector records the latest snapshot handed to a subscription.
type collector struct {
	mu     sync.Mutex
	latest []*domain.Message
	calls  int
}

func (c *collector) onUpdate(msgs []*domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = msgs
	c.calls++
}

func (c *collector) Texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return texts(c.latest)
}

func (c *collector) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
