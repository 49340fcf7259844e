// Package hub fans conversation snapshots out to live subscribers.
//
// Every change notification for a conversation reloads its full message set
// once and hands each subscriber a filtered, newest-first copy. Subscribers
// treat each delivery as a full replace. A slow subscriber only ever sees the
// most recent snapshot; older ones are coalesced away.
package hub

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/fathima-sithara/conversation-service/internal/domain"
	"github.com/fathima-sithara/conversation-service/internal/metrics"
	"go.uber.org/zap"
)

// Loader returns the full, unfiltered message set of a conversation.
type Loader func(ctx context.Context, key string) ([]*domain.Message, error)

type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	load   Loader
	seq    atomic.Uint64
	logger *zap.SugaredLogger
}

func New(load Loader, logger *zap.SugaredLogger) *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		load:   load,
		logger: logger,
	}
}

// Subscribe registers onUpdate for key as seen by viewer and delivers the
// current snapshot. onUpdate runs on the subscription's own goroutine.
func (h *Hub) Subscribe(ctx context.Context, key, viewer string, onUpdate func([]*domain.Message)) (*Subscription, error) {
	s := &Subscription{
		hub:      h,
		key:      key,
		viewer:   viewer,
		onUpdate: onUpdate,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	h.add(s)
	go s.run()

	seq := h.seq.Add(1)
	msgs, err := h.load(ctx, key)
	if err != nil {
		s.Cancel()
		return nil, err
	}
	s.offer(seq, visibleCopy(msgs, viewer))
	return s, nil
}

// Notify reloads key and pushes the result to its subscribers.
func (h *Hub) Notify(ctx context.Context, key string) {
	targets := h.snapshot(key)
	if len(targets) == 0 {
		return
	}
	seq := h.seq.Add(1)
	msgs, err := h.load(ctx, key)
	if err != nil {
		h.logger.Warnw("reload conversation failed", "conversation_key", key, "error", err)
		return
	}
	for _, s := range targets {
		s.offer(seq, visibleCopy(msgs, s.viewer))
	}
}

// Count reports the number of live subscriptions on key.
func (h *Hub) Count(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[key])
}

// Close cancels every subscription.
func (h *Hub) Close() {
	h.mu.RLock()
	var all []*Subscription
	for _, set := range h.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	h.mu.RUnlock()
	for _, s := range all {
		s.Cancel()
	}
}

func (h *Hub) add(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s.key]; !ok {
		h.subs[s.key] = make(map[*Subscription]struct{})
	}
	h.subs[s.key][s] = struct{}{}
	metrics.ActiveSubscriptions.Inc()
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[s.key]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, s.key)
	}
	metrics.ActiveSubscriptions.Dec()
}

func (h *Hub) snapshot(key string) []*Subscription {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set := h.subs[key]
	out := make([]*Subscription, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

func visibleCopy(msgs []*domain.Message, viewer string) []*domain.Message {
	out := make([]*domain.Message, 0, len(msgs))
	for _, m := range msgs {
		if !m.HiddenFor(viewer) {
			out = append(out, m.Clone())
		}
	}
	domain.SortNewestFirst(out)
	return out
}
