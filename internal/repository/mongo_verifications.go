package repository

import (
	"context"

	"github.com/fathima-sithara/conversation-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoVerificationRepository struct {
	coll *mongo.Collection
}

func NewMongoVerificationRepository(db *mongo.Database) *MongoVerificationRepository {
	return &MongoVerificationRepository{coll: db.Collection("phone_verifications")}
}

// EnsureIndexes installs a TTL index so expired codes are reclaimed by the server.
func (r *MongoVerificationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return mapErr("create verification indexes", err)
}

func (r *MongoVerificationRepository) Upsert(ctx context.Context, v *domain.PhoneVerification) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": v.ID}, v, options.Replace().SetUpsert(true))
	return mapErr("upsert verification", err)
}

func (r *MongoVerificationRepository) Get(ctx context.Context, id string) (*domain.PhoneVerification, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	var v domain.PhoneVerification
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&v); err != nil {
		return nil, mapErr("get verification", err)
	}
	return &v, nil
}

func (r *MongoVerificationRepository) IncrementAttempts(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := r.coll.UpdateByID(ctx, id, bson.M{"$inc": bson.M{"attempts": 1}})
	return mapErr("increment attempts", err)
}

func (r *MongoVerificationRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	return mapErr("delete verification", err)
}
