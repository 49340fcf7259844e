package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fathima-sithara/conversation-service/internal/domain"
	"github.com/fathima-sithara/conversation-service/internal/hub"
	"github.com/fathima-sithara/conversation-service/internal/kafka"
	"github.com/fathima-sithara/conversation-service/internal/media"
	"github.com/fathima-sithara/conversation-service/internal/metrics"
	"github.com/fathima-sithara/conversation-service/internal/repository"
	"github.com/fathima-sithara/conversation-service/internal/storage"
	"github.com/fathima-sithara/conversation-service/internal/utils"
	"go.uber.org/zap"
)

// BlobStore uploads attachment bytes and returns a retrievable URL.
type BlobStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, ev kafka.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, kafka.Event) {}

type ChatDeps struct {
	Messages repository.MessageRepository
	Chats    repository.ChatRepository
	Tx       repository.Transactor
	Blobs    BlobStore
	Media    *media.Processor
	Hub      *hub.Hub
	Events   EventPublisher
	Clock    *utils.Clock
	Logger   *zap.SugaredLogger
}

type ChatService struct {
	messages repository.MessageRepository
	chats    repository.ChatRepository
	tx       repository.Transactor
	blobs    BlobStore
	media    *media.Processor
	hub      *hub.Hub
	events   EventPublisher
	clock    *utils.Clock
	logger   *zap.SugaredLogger
}

func NewChatService(d ChatDeps) *ChatService {
	if d.Events == nil {
		d.Events = noopPublisher{}
	}
	if d.Clock == nil {
		d.Clock = utils.NewClock()
	}
	return &ChatService{
		messages: d.Messages,
		chats:    d.Chats,
		tx:       d.Tx,
		blobs:    d.Blobs,
		media:    d.Media,
		hub:      d.Hub,
		events:   d.Events,
		clock:    d.Clock,
		logger:   d.Logger,
	}
}

// Attachment is a binary payload that has not been uploaded yet.
type Attachment struct {
	Data        []byte
	ContentType string
}

type SendRequest struct {
	SenderID   string
	ReceiverID string
	Kind       domain.MessageKind
	Text       string
	Attachment *Attachment
	DurationMS int64
	Story      *domain.StoryRef
}

// Send stores a message and refreshes the conversation summary. Binary
// payloads are uploaded first; if that fails nothing is written.
func (s *ChatService) Send(ctx context.Context, req SendRequest) (*domain.Message, error) {
	if err := domain.ValidateParticipants(req.SenderID, req.ReceiverID); err != nil {
		return nil, err
	}
	key := domain.ConversationKey(req.SenderID, req.ReceiverID)
	now := s.clock.Now()

	body, err := s.buildBody(ctx, key, now, req)
	if err != nil {
		return nil, err
	}

	m := &domain.Message{
		ID:              utils.NewID(),
		ConversationKey: key,
		SenderID:        req.SenderID,
		ReceiverID:      req.ReceiverID,
		Body:            body,
		CreatedAt:       now,
		Read:            false,
		DeletedFor:      []string{},
	}
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.messages.Insert(ctx, m); err != nil {
			return err
		}
		return s.chats.UpsertOnSend(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	metrics.MessagesSent.WithLabelValues(string(body.Kind)).Inc()
	s.changed(ctx, kafka.EventMessageSent, key, m.ID, req.SenderID)
	return m, nil
}

func (s *ChatService) buildBody(ctx context.Context, key string, now time.Time, req SendRequest) (domain.Body, error) {
	var body domain.Body
	switch req.Kind {
	case domain.KindText:
		body = domain.TextBody(req.Text)
	case domain.KindStoryReply:
		if req.Story == nil {
			return body, fmt.Errorf("%w: story reference is missing", domain.ErrValidation)
		}
		body = domain.StoryReplyBody(*req.Story, req.Text)
	case domain.KindMedia:
		if req.Attachment == nil {
			return body, fmt.Errorf("%w: media attachment is missing", domain.ErrValidation)
		}
		data, ct, mediaType, err := s.media.Media(req.Attachment.Data, req.Attachment.ContentType)
		if err != nil {
			return body, err
		}
		objKey, url, err := s.upload(ctx, key, now, ct, data)
		if err != nil {
			return body, err
		}
		body = domain.MediaBody(domain.MediaRef{URL: url, Key: objKey, Type: mediaType, ContentType: ct})
	case domain.KindVoice:
		if req.Attachment == nil {
			return body, fmt.Errorf("%w: voice attachment is missing", domain.ErrValidation)
		}
		if req.DurationMS <= 0 {
			return body, fmt.Errorf("%w: voice duration must be positive", domain.ErrValidation)
		}
		data, ct, err := s.media.Voice(req.Attachment.Data, req.Attachment.ContentType)
		if err != nil {
			return body, err
		}
		objKey, url, err := s.upload(ctx, key, now, ct, data)
		if err != nil {
			return body, err
		}
		body = domain.VoiceBody(domain.VoiceRef{URL: url, Key: objKey, DurationMS: req.DurationMS})
	default:
		return body, fmt.Errorf("%w: unknown message kind %q", domain.ErrValidation, req.Kind)
	}
	return body, body.Validate()
}

func (s *ChatService) upload(ctx context.Context, convKey string, now time.Time, contentType string, data []byte) (string, string, error) {
	objKey := storage.ChatMediaKey(convKey, now)
	url, err := s.blobs.Upload(ctx, objKey, contentType, data)
	if err == nil && url == "" {
		err = errors.New("storage returned no url")
	}
	if err != nil {
		metrics.UploadFailures.Inc()
		s.logger.Warnw("media upload failed", "key", objKey, "error", err)
		return "", "", fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}
	return objKey, url, nil
}

// History returns the conversation as userA sees it, newest first.
func (s *ChatService) History(ctx context.Context, userA, userB string) ([]*domain.Message, error) {
	if err := domain.ValidateParticipants(userA, userB); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByConversation(ctx, domain.ConversationKey(userA, userB))
	if err != nil {
		return nil, err
	}
	return domain.VisibleTo(msgs, userA), nil
}

// Subscribe delivers the conversation between userA and userB, as userA
// sees it, on every change. The returned function stops delivery and may be
// called any number of times.
func (s *ChatService) Subscribe(ctx context.Context, userA, userB string, onUpdate func([]*domain.Message)) (func(), error) {
	if err := domain.ValidateParticipants(userA, userB); err != nil {
		return nil, err
	}
	sub, err := s.hub.Subscribe(ctx, domain.ConversationKey(userA, userB), userA, onUpdate)
	if err != nil {
		return nil, err
	}
	return sub.Cancel, nil
}

// MarkConversationRead flips every unread message addressed to readerID and
// zeroes their unread counter. With nothing unread no write is issued.
func (s *ChatService) MarkConversationRead(ctx context.Context, key, readerID string) (int64, error) {
	a, b, err := domain.Participants(key)
	if err != nil {
		return 0, err
	}
	if readerID != a && readerID != b {
		return 0, fmt.Errorf("%w: %s is not part of this conversation", domain.ErrForbidden, readerID)
	}

	unread, err := s.messages.CountUnread(ctx, key, readerID)
	if err != nil {
		return 0, err
	}
	if unread == 0 {
		return 0, nil
	}

	var updated int64
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		n, err := s.messages.MarkRead(ctx, key, readerID)
		if err != nil {
			return err
		}
		updated = n
		return s.chats.ResetUnread(ctx, key, readerID)
	})
	if err != nil {
		return 0, err
	}
	s.changed(ctx, kafka.EventConversationRead, key, "", readerID)
	return updated, nil
}

// DeleteForMe hides the message for userID. Once both participants have
// hidden it the record is purged. It reports whether a purge happened.
func (s *ChatService) DeleteForMe(ctx context.Context, messageID, userID string) (bool, error) {
	m, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return false, err
	}
	if !m.IsParticipant(userID) {
		return false, fmt.Errorf("%w: not a participant", domain.ErrForbidden)
	}

	updated, err := s.messages.AddDeletedFor(ctx, messageID, userID)
	if err != nil {
		return false, err
	}
	purged := updated.DeletedByBoth()
	if purged {
		if err := s.purge(ctx, updated); err != nil {
			return false, err
		}
		metrics.MessagesDeleted.WithLabelValues("purge").Inc()
	} else {
		metrics.MessagesDeleted.WithLabelValues("me").Inc()
	}

	s.changed(ctx, kafka.EventMessageDeleted, m.ConversationKey, messageID, userID)
	return purged, nil
}

// DeleteForEveryone removes the message for both sides. Only the sender may do this.
func (s *ChatService) DeleteForEveryone(ctx context.Context, messageID, userID string) error {
	m, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if m.SenderID != userID {
		return fmt.Errorf("%w: only the sender can delete for everyone", domain.ErrForbidden)
	}
	if err := s.purge(ctx, m); err != nil {
		return err
	}
	metrics.MessagesDeleted.WithLabelValues("everyone").Inc()
	s.changed(ctx, kafka.EventMessageDeleted, m.ConversationKey, messageID, userID)
	return nil
}

// purge removes m and repairs the summary if it pointed at m.
func (s *ChatService) purge(ctx context.Context, m *domain.Message) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.messages.Delete(ctx, m.ID); err != nil {
			return err
		}
		return s.repairLastMessage(ctx, m.ConversationKey, m.ID)
	})
}

func (s *ChatService) repairLastMessage(ctx context.Context, key, removedID string) error {
	var (
		last domain.LastMessage
		at   time.Time
	)
	latest, err := s.messages.Latest(ctx, key)
	switch {
	case err == nil:
		last = domain.LastMessageOf(latest)
		at = latest.CreatedAt
	case errors.Is(err, domain.ErrNotFound):
		at = s.clock.Now()
	default:
		return err
	}
	_, err = s.chats.ReplaceLastMessage(ctx, key, removedID, last, at)
	return err
}

// GetMessage returns a message userID may act on.
func (s *ChatService) GetMessage(ctx context.Context, messageID, userID string) (*domain.Message, error) {
	m, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !m.IsParticipant(userID) {
		return nil, fmt.Errorf("%w: not a participant", domain.ErrForbidden)
	}
	if m.HiddenFor(userID) {
		return nil, fmt.Errorf("get message: %w", domain.ErrNotFound)
	}
	return m, nil
}

func (s *ChatService) ListChats(ctx context.Context, userID string) ([]*domain.ChatSummary, error) {
	if err := domain.ValidateUserID(userID); err != nil {
		return nil, err
	}
	return s.chats.ListForUser(ctx, userID)
}

func (s *ChatService) GetChat(ctx context.Context, userID, peerID string) (*domain.ChatSummary, error) {
	if err := domain.ValidateParticipants(userID, peerID); err != nil {
		return nil, err
	}
	return s.chats.Get(ctx, domain.ConversationKey(userID, peerID))
}

// HideChat removes the conversation from userID's list until the next message.
func (s *ChatService) HideChat(ctx context.Context, userID, peerID string) error {
	if err := domain.ValidateParticipants(userID, peerID); err != nil {
		return err
	}
	return s.chats.Hide(ctx, domain.ConversationKey(userID, peerID), userID)
}

// OnRemoteEvent refreshes local subscribers for changes made on other instances.
func (s *ChatService) OnRemoteEvent(ctx context.Context, ev kafka.Event) {
	switch ev.Type {
	case kafka.EventMessageSent, kafka.EventMessageDeleted, kafka.EventConversationRead:
		if ev.ConversationKey != "" {
			s.hub.Notify(ctx, ev.ConversationKey)
		}
	}
}

func (s *ChatService) changed(ctx context.Context, eventType, key, messageID, actorID string) {
	s.hub.Notify(ctx, key)
	s.events.Publish(ctx, kafka.Event{
		Type:            eventType,
		ConversationKey: key,
		MessageID:       messageID,
		ActorID:         actorID,
	})
}
