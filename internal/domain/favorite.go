package domain

import (
	"sort"
	"time"
)

// Favorite is a standalone copy of a message. It is not linked to the
// source record and survives its deletion.
type Favorite struct {
	ID              string    `bson:"_id" json:"id"`
	UserID          string    `bson:"user_id" json:"user_id"`
	SourceMessageID string    `bson:"source_message_id" json:"source_message_id"`
	ConversationKey string    `bson:"conversation_key" json:"conversation_key"`
	SenderID        string    `bson:"sender_id" json:"sender_id"`
	ReceiverID      string    `bson:"receiver_id" json:"receiver_id"`
	Body            Body      `bson:"body" json:"body"`
	SentAt          time.Time `bson:"sent_at" json:"sent_at"`
	AddedAt         time.Time `bson:"added_at" json:"added_at"`
}

func SortFavoritesNewestFirst(favs []*Favorite) {
	sort.SliceStable(favs, func(i, j int) bool {
		return favs[i].AddedAt.After(favs[j].AddedAt)
	})
}
