package kafka

import "time"

const (
	EventMessageSent      = "message.sent"
	EventMessageDeleted   = "message.deleted"
	EventConversationRead = "conversation.read"
	EventPhoneVerified    = "phone.verified"
)

// Event is the JSON record written to the chat events topic.
type Event struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	ConversationKey string    `json:"conversation_key,omitempty"`
	MessageID       string    `json:"message_id,omitempty"`
	ActorID         string    `json:"actor_id"`
	Origin          string    `json:"origin"`
	At              time.Time `json:"at"`
}
