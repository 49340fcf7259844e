package repository

import (
	"context"

	"github.com/fathima-sithara/conversation-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoFavoriteRepository struct {
	coll *mongo.Collection
}

func NewMongoFavoriteRepository(db *mongo.Database) *MongoFavoriteRepository {
	return &MongoFavoriteRepository{coll: db.Collection("favorites")}
}

func (r *MongoFavoriteRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "added_at", Value: -1}},
	})
	return mapErr("create favorite indexes", err)
}

func (r *MongoFavoriteRepository) Insert(ctx context.Context, f *domain.Favorite) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := r.coll.InsertOne(ctx, f)
	return mapErr("insert favorite", err)
}

// ListByUser returns the user's favorites in store order; callers sort.
func (r *MongoFavoriteRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Favorite, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, mapErr("list favorites", err)
	}
	defer cur.Close(ctx)

	out := []*domain.Favorite{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, mapErr("decode favorites", err)
	}
	return out, nil
}

func (r *MongoFavoriteRepository) Delete(ctx context.Context, userID, id string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return mapErr("delete favorite", err)
	}
	if res.DeletedCount == 0 {
		return mapErr("delete favorite", mongo.ErrNoDocuments)
	}
	return nil
}
