package domain

import (
	"slices"
	"time"
)

// LastMessage is the denormalized snapshot kept on a chat summary.
// The zero value is the neutral "no messages" state.
type LastMessage struct {
	MessageID string `bson:"message_id,omitempty" json:"message_id,omitempty"`
	SenderID  string `bson:"sender_id,omitempty" json:"sender_id,omitempty"`
	Body      *Body  `bson:"body,omitempty" json:"body,omitempty"`
	Preview   string `bson:"preview" json:"preview"`
}

func LastMessageOf(m *Message) LastMessage {
	body := m.Clone().Body
	return LastMessage{
		MessageID: m.ID,
		SenderID:  m.SenderID,
		Body:      &body,
		Preview:   body.Preview(),
	}
}

func (l LastMessage) IsEmpty() bool {
	return l.MessageID == ""
}

type ChatSummary struct {
	Key             string         `bson:"_id" json:"conversation_key"`
	Participants    []string       `bson:"participants" json:"participants"`
	LastMessage     LastMessage    `bson:"last_message" json:"last_message"`
	LastMessageTime time.Time      `bson:"last_message_time" json:"last_message_time"`
	UnreadCount     map[string]int `bson:"unread_count" json:"unread_count"`
	DeletedFor      []string       `bson:"deleted_for" json:"deleted_for"`
	CreatedAt       time.Time      `bson:"created_at" json:"created_at"`
}

func (c *ChatSummary) HiddenFor(userID string) bool {
	return slices.Contains(c.DeletedFor, userID)
}

// Peer returns the other participant of the summary.
func (c *ChatSummary) Peer(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}
