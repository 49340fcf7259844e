package repository

import (
	"context"
	"time"

	"github.com/fathima-sithara/conversation-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoChatRepository struct {
	coll *mongo.Collection
}

func NewMongoChatRepository(db *mongo.Database) *MongoChatRepository {
	return &MongoChatRepository{coll: db.Collection("chats")}
}

func (r *MongoChatRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "participants", Value: 1}, {Key: "last_message_time", Value: -1}},
	})
	return mapErr("create chat indexes", err)
}

func (r *MongoChatRepository) UpsertOnSend(ctx context.Context, m *domain.Message) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	a, b, err := domain.Participants(m.ConversationKey)
	if err != nil {
		return err
	}
	update := bson.M{
		"$setOnInsert": bson.M{
			"participants":                []string{a, b},
			"created_at":                  m.CreatedAt,
			"unread_count." + m.SenderID: 0,
		},
		"$set": bson.M{
			"last_message":      domain.LastMessageOf(m),
			"last_message_time": m.CreatedAt,
			"deleted_for":       []string{},
		},
		"$inc": bson.M{"unread_count." + m.ReceiverID: 1},
	}
	_, err = r.coll.UpdateByID(ctx, m.ConversationKey, update, options.Update().SetUpsert(true))
	return mapErr("upsert chat", err)
}

func (r *MongoChatRepository) Get(ctx context.Context, key string) (*domain.ChatSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	var c domain.ChatSummary
	if err := r.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&c); err != nil {
		return nil, mapErr("get chat", err)
	}
	return normalizeChat(&c), nil
}

func (r *MongoChatRepository) ListForUser(ctx context.Context, userID string) ([]*domain.ChatSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	filter := bson.M{"participants": userID, "deleted_for": bson.M{"$ne": userID}}
	opts := options.Find().SetSort(bson.D{{Key: "last_message_time", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapErr("list chats", err)
	}
	defer cur.Close(ctx)

	out := []*domain.ChatSummary{}
	for cur.Next(ctx) {
		var c domain.ChatSummary
		if err := cur.Decode(&c); err != nil {
			return nil, mapErr("decode chat", err)
		}
		out = append(out, normalizeChat(&c))
	}
	return out, mapErr("iterate chats", cur.Err())
}

func (r *MongoChatRepository) ReplaceLastMessage(ctx context.Context, key, removedID string, last domain.LastMessage, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": key, "last_message.message_id": removedID},
		bson.M{"$set": bson.M{"last_message": last, "last_message_time": at}},
	)
	if err != nil {
		return false, mapErr("repair last message", err)
	}
	return res.MatchedCount > 0, nil
}

func (r *MongoChatRepository) ResetUnread(ctx context.Context, key, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := r.coll.UpdateByID(ctx, key, bson.M{"$set": bson.M{"unread_count." + userID: 0}})
	return mapErr("reset unread", err)
}

func (r *MongoChatRepository) Hide(ctx context.Context, key, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	res, err := r.coll.UpdateByID(ctx, key, bson.M{"$addToSet": bson.M{"deleted_for": userID}})
	if err != nil {
		return mapErr("hide chat", err)
	}
	if res.MatchedCount == 0 {
		return mapErr("hide chat", mongo.ErrNoDocuments)
	}
	return nil
}

func normalizeChat(c *domain.ChatSummary) *domain.ChatSummary {
	if c.UnreadCount == nil {
		c.UnreadCount = map[string]int{}
	}
	if c.DeletedFor == nil {
		c.DeletedFor = []string{}
	}
	return c
}
