package repository

import (
	"context"

	"github.com/fathima-sithara/conversation-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

type MongoMessageRepository struct {
	coll *mongo.Collection
}

func NewMongoMessageRepository(db *mongo.Database) *MongoMessageRepository {
	return &MongoMessageRepository{coll: db.Collection("messages")}
}

func (r *MongoMessageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "conversation_key", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "conversation_key", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "read", Value: 1}}},
	})
	return mapErr("create message indexes", err)
}

func (r *MongoMessageRepository) Insert(ctx context.Context, m *domain.Message) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if m.DeletedFor == nil {
		m.DeletedFor = []string{}
	}
	_, err := r.coll.InsertOne(ctx, m)
	return mapErr("insert message", err)
}

func (r *MongoMessageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	var m domain.Message
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, mapErr("get message", err)
	}
	return normalize(&m), nil
}

func (r *MongoMessageRepository) ListByConversation(ctx context.Context, key string) ([]*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{"conversation_key": key}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, mapErr("list messages", err)
	}
	defer cur.Close(ctx)

	out := []*domain.Message{}
	for cur.Next(ctx) {
		var m domain.Message
		if err := cur.Decode(&m); err != nil {
			return nil, mapErr("decode message", err)
		}
		out = append(out, normalize(&m))
	}
	return out, mapErr("iterate messages", cur.Err())
}

func (r *MongoMessageRepository) AddDeletedFor(ctx context.Context, id, userID string) (*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	res := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{"deleted_for": userID}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var m domain.Message
	if err := res.Decode(&m); err != nil {
		return nil, mapErr("tombstone message", err)
	}
	return normalize(&m), nil
}

func (r *MongoMessageRepository) Delete(ctx context.Context, id string) (*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	var m domain.Message
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, mapErr("delete message", err)
	}
	return normalize(&m), nil
}

func (r *MongoMessageRepository) Latest(ctx context.Context, key string) (*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	var m domain.Message
	opts := options.FindOne().SetSort(newestFirst)
	if err := r.coll.FindOne(ctx, bson.M{"conversation_key": key}, opts).Decode(&m); err != nil {
		return nil, mapErr("latest message", err)
	}
	return normalize(&m), nil
}

func unreadFilter(key, readerID string) bson.M {
	return bson.M{"conversation_key": key, "receiver_id": readerID, "read": false}
}

func (r *MongoMessageRepository) CountUnread(ctx context.Context, key, readerID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	n, err := r.coll.CountDocuments(ctx, unreadFilter(key, readerID))
	return n, mapErr("count unread", err)
}

func (r *MongoMessageRepository) MarkRead(ctx context.Context, key, readerID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	res, err := r.coll.UpdateMany(ctx, unreadFilter(key, readerID), bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, mapErr("mark read", err)
	}
	return res.ModifiedCount, nil
}

func normalize(m *domain.Message) *domain.Message {
	if m.DeletedFor == nil {
		m.DeletedFor = []string{}
	}
	return m
}
