package hub

import (
	"sync"

	"github.com/fathima-sithara/conversation-service/internal/domain"
)

type Subscription struct {
	hub      *Hub
	key      string
	viewer   string
	onUpdate func([]*domain.Message)

	mu      sync.Mutex
	seq     uint64
	latest  []*domain.Message
	pending bool

	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (s *Subscription) Key() string { return s.key }

// Cancel stops delivery. It is safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.done)
	})
}

// offer keeps msgs unless a newer load has already been offered.
func (s *Subscription) offer(seq uint64, msgs []*domain.Message) {
	s.mu.Lock()
	if seq <= s.seq {
		s.mu.Unlock()
		return
	}
	s.seq = seq
	s.latest = msgs
	s.pending = true
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.signal:
		}

		s.mu.Lock()
		msgs, ok := s.latest, s.pending
		s.latest, s.pending = nil, false
		s.mu.Unlock()

		select {
		case <-s.done:
			return
		default:
		}
		if ok {
			s.onUpdate(msgs)
		}
	}
}
