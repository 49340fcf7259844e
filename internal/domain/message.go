package domain

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
)

type MessageKind string

const (
	KindText       MessageKind = "text"
	KindMedia      MessageKind = "media"
	KindVoice      MessageKind = "voice"
	KindStoryReply MessageKind = "story_reply"
)

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// MediaRef points at an uploaded image or video.
type MediaRef struct {
	URL         string    `bson:"url" json:"url"`
	Key         string    `bson:"key" json:"key"`
	Type        MediaType `bson:"type" json:"type"`
	ContentType string    `bson:"content_type,omitempty" json:"content_type,omitempty"`
}

type VoiceRef struct {
	URL        string `bson:"url" json:"url"`
	Key        string `bson:"key" json:"key"`
	DurationMS int64  `bson:"duration_ms" json:"duration_ms"`
}

type StoryRef struct {
	StoryID  string `bson:"story_id" json:"story_id"`
	StoryURL string `bson:"story_url" json:"story_url"`
}

// Body is a tagged union keyed by Kind. Only the payload matching Kind is set.
type Body struct {
	Kind  MessageKind `bson:"kind" json:"kind"`
	Text  string      `bson:"text,omitempty" json:"text,omitempty"`
	Media *MediaRef   `bson:"media,omitempty" json:"media,omitempty"`
	Voice *VoiceRef   `bson:"voice,omitempty" json:"voice,omitempty"`
	Story *StoryRef   `bson:"story,omitempty" json:"story,omitempty"`
}

func TextBody(text string) Body {
	return Body{Kind: KindText, Text: text}
}

func MediaBody(ref MediaRef) Body {
	return Body{Kind: KindMedia, Media: &ref}
}

func VoiceBody(ref VoiceRef) Body {
	return Body{Kind: KindVoice, Voice: &ref}
}

func StoryReplyBody(story StoryRef, text string) Body {
	return Body{Kind: KindStoryReply, Story: &story, Text: text}
}

// Validate checks that exactly the payload of the tagged variant is present.
func (b Body) Validate() error {
	switch b.Kind {
	case KindText:
		if strings.TrimSpace(b.Text) == "" {
			return fmt.Errorf("%w: message body is empty", ErrValidation)
		}
		if b.Media != nil || b.Voice != nil || b.Story != nil {
			return fmt.Errorf("%w: text message carries a foreign payload", ErrValidation)
		}
	case KindMedia:
		if b.Media == nil || b.Media.URL == "" {
			return fmt.Errorf("%w: media reference is missing", ErrValidation)
		}
		if b.Media.Type != MediaImage && b.Media.Type != MediaVideo {
			return fmt.Errorf("%w: unknown media type %q", ErrValidation, b.Media.Type)
		}
		if b.Voice != nil || b.Story != nil {
			return fmt.Errorf("%w: media message carries a foreign payload", ErrValidation)
		}
	case KindVoice:
		if b.Voice == nil || b.Voice.URL == "" {
			return fmt.Errorf("%w: voice reference is missing", ErrValidation)
		}
		if b.Media != nil || b.Story != nil {
			return fmt.Errorf("%w: voice message carries a foreign payload", ErrValidation)
		}
	case KindStoryReply:
		if b.Story == nil || b.Story.StoryID == "" {
			return fmt.Errorf("%w: story reference is missing", ErrValidation)
		}
		if strings.TrimSpace(b.Text) == "" {
			return fmt.Errorf("%w: story reply text is empty", ErrValidation)
		}
		if b.Media != nil || b.Voice != nil {
			return fmt.Errorf("%w: story reply carries a foreign payload", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown message kind %q", ErrValidation, b.Kind)
	}
	return nil
}

// Preview is the short text shown in conversation lists.
func (b Body) Preview() string {
	switch b.Kind {
	case KindText, KindStoryReply:
		return b.Text
	case KindMedia:
		if b.Media != nil && b.Media.Type == MediaVideo {
			return "Video"
		}
		return "Photo"
	case KindVoice:
		return "Voice message"
	}
	return ""
}

type Message struct {
	ID              string    `bson:"_id" json:"id"`
	ConversationKey string    `bson:"conversation_key" json:"conversation_key"`
	SenderID        string    `bson:"sender_id" json:"sender_id"`
	ReceiverID      string    `bson:"receiver_id" json:"receiver_id"`
	Body            Body      `bson:"body" json:"body"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
	Read            bool      `bson:"read" json:"read"`
	DeletedFor      []string  `bson:"deleted_for" json:"deleted_for"`
}

func (m *Message) IsParticipant(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

func (m *Message) HiddenFor(userID string) bool {
	return slices.Contains(m.DeletedFor, userID)
}

// DeletedByBoth reports whether every participant has hidden the message.
func (m *Message) DeletedByBoth() bool {
	return m.HiddenFor(m.SenderID) && m.HiddenFor(m.ReceiverID)
}

func (m *Message) Clone() *Message {
	c := *m
	c.DeletedFor = slices.Clone(m.DeletedFor)
	if c.DeletedFor == nil {
		c.DeletedFor = []string{}
	}
	if m.Body.Media != nil {
		media := *m.Body.Media
		c.Body.Media = &media
	}
	if m.Body.Voice != nil {
		voice := *m.Body.Voice
		c.Body.Voice = &voice
	}
	if m.Body.Story != nil {
		story := *m.Body.Story
		c.Body.Story = &story
	}
	return &c
}

// VisibleTo drops messages the viewer has hidden and orders the rest newest first.
// Ties on CreatedAt fall back to the id so the order is total.
func VisibleTo(msgs []*Message, viewer string) []*Message {
	out := make([]*Message, 0, len(msgs))
	for _, m := range msgs {
		if m.HiddenFor(viewer) {
			continue
		}
		out = append(out, m)
	}
	SortNewestFirst(out)
	return out
}

func SortNewestFirst(msgs []*Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
		}
		return msgs[i].ID > msgs[j].ID
	})
}
