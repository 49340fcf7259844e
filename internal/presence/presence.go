// Package presence keeps the online/offline side-channel in Redis.
//
// Keys:
//   - <prefix>:presence:<userID> -> json {status,last_seen,conversation_key}
//   - <prefix>:conn:<userID>     -> open socket count
//
// Every change is also published on the channel <prefix>:presence:<userID>.
package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

type Presence struct {
	UserID          string `json:"user_id"`
	Status          string `json:"status"`
	LastSeen        int64  `json:"last_seen"`
	ConversationKey string `json:"conversation_key,omitempty"`
}

type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewStore returns a Store. Online records expire after ttl unless refreshed.
func NewStore(r *redis.Client, prefix string, ttl time.Duration) *Store {
	return &Store{client: r, prefix: prefix, ttl: ttl}
}

func (s *Store) presenceKey(userID string) string { return fmt.Sprintf("%s:presence:%s", s.prefix, userID) }
func (s *Store) connKey(userID string) string     { return fmt.Sprintf("%s:conn:%s", s.prefix, userID) }

// Connect counts a new socket for userID and marks them online.
func (s *Store) Connect(ctx context.Context, userID string) error {
	if err := s.client.Incr(ctx, s.connKey(userID)).Err(); err != nil {
		return err
	}
	_ = s.client.Expire(ctx, s.connKey(userID), s.ttl).Err()
	return s.SetOnline(ctx, userID)
}

// Disconnect releases a socket; the last one flips the user offline.
func (s *Store) Disconnect(ctx context.Context, userID string) error {
	n, err := s.client.Decr(ctx, s.connKey(userID)).Result()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_ = s.client.Del(ctx, s.connKey(userID)).Err()
	return s.SetOffline(ctx, userID)
}

func (s *Store) SetOnline(ctx context.Context, userID string) error {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	p.Status = StatusOnline
	p.LastSeen = time.Now().Unix()
	return s.put(ctx, p, s.ttl)
}

func (s *Store) SetOffline(ctx context.Context, userID string) error {
	p := Presence{UserID: userID, Status: StatusOffline, LastSeen: time.Now().Unix()}
	return s.put(ctx, p, 0)
}

func (s *Store) EnterConversation(ctx context.Context, userID, conversationKey string) error {
	p := Presence{UserID: userID, Status: StatusOnline, LastSeen: time.Now().Unix(), ConversationKey: conversationKey}
	return s.put(ctx, p, s.ttl)
}

func (s *Store) LeaveConversation(ctx context.Context, userID string) error {
	p := Presence{UserID: userID, Status: StatusOnline, LastSeen: time.Now().Unix()}
	return s.put(ctx, p, s.ttl)
}

// Refresh keeps the socket counter and online record of a connected user
// alive. Sockets call it once per keepalive tick, so both keys outlive ttl
// only while somebody is still connected. A record that already lapsed is
// rewritten as online in conversationKey.
func (s *Store) Refresh(ctx context.Context, userID, conversationKey string) error {
	ok, err := s.client.Expire(ctx, s.connKey(userID), s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		if err := s.client.SetNX(ctx, s.connKey(userID), 1, s.ttl).Err(); err != nil {
			return err
		}
	}

	p, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if p.Status == StatusOnline {
		return s.client.Expire(ctx, s.presenceKey(userID), s.ttl).Err()
	}
	p.Status = StatusOnline
	p.LastSeen = time.Now().Unix()
	p.ConversationKey = conversationKey
	return s.put(ctx, p, s.ttl)
}

// Get returns the stored presence, or an offline record for unknown users.
func (s *Store) Get(ctx context.Context, userID string) (Presence, error) {
	b, err := s.client.Get(ctx, s.presenceKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Presence{UserID: userID, Status: StatusOffline}, nil
	}
	if err != nil {
		return Presence{}, err
	}
	return Decode(userID, b)
}

// Subscribe streams presence changes of userID until cancel is called or ctx ends.
func (s *Store) Subscribe(ctx context.Context, userID string) (<-chan Presence, func()) {
	ctx, cancel := context.WithCancel(ctx)
	ps := s.client.Subscribe(ctx, s.presenceKey(userID))
	out := make(chan Presence, 8)

	go func() {
		defer close(out)
		defer ps.Close()
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				p, err := Decode(userID, []byte(msg.Payload))
				if err != nil {
					continue
				}
				select {
				case out <- p:
				default:
				}
			}
		}
	}()
	return out, cancel
}

func (s *Store) put(ctx context.Context, p Presence, ttl time.Duration) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.presenceKey(p.UserID), b, ttl).Err(); err != nil {
		return err
	}
	return s.client.Publish(ctx, s.presenceKey(p.UserID), b).Err()
}

func Decode(userID string, b []byte) (Presence, error) {
	var p Presence
	if err := json.Unmarshal(b, &p); err != nil {
		return Presence{}, err
	}
	if p.UserID == "" {
		p.UserID = userID
	}
	return p, nil
}
