package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fathima-sithara/conversation-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoBlueTickRepository struct {
	coll *mongo.Collection
}

func NewMongoBlueTickRepository(db *mongo.Database) *MongoBlueTickRepository {
	return &MongoBlueTickRepository{coll: db.Collection("blue_tick")}
}

// EnsureIndexes allows at most one pending application per user.
func (r *MongoBlueTickRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("one_pending_per_user").
				SetPartialFilterExpression(bson.M{"status": domain.BlueTickPending}),
		},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
	})
	return mapErr("create blue tick indexes", err)
}

func (r *MongoBlueTickRepository) Insert(ctx context.Context, app *domain.BlueTickApplication) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := r.coll.InsertOne(ctx, app)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: an application is already pending", domain.ErrValidation)
	}
	return mapErr("insert blue tick application", err)
}

func (r *MongoBlueTickRepository) GetByID(ctx context.Context, id string) (*domain.BlueTickApplication, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	var app domain.BlueTickApplication
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&app); err != nil {
		return nil, mapErr("get blue tick application", err)
	}
	return &app, nil
}

func (r *MongoBlueTickRepository) LatestForUser(ctx context.Context, userID string) (*domain.BlueTickApplication, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	var app domain.BlueTickApplication
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if err := r.coll.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&app); err != nil {
		return nil, mapErr("latest blue tick application", err)
	}
	return &app, nil
}

func (r *MongoBlueTickRepository) ListByStatus(ctx context.Context, status domain.BlueTickStatus) ([]*domain.BlueTickApplication, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, mapErr("list blue tick applications", err)
	}
	defer cur.Close(ctx)

	out := []*domain.BlueTickApplication{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, mapErr("decode blue tick applications", err)
	}
	return out, nil
}

func (r *MongoBlueTickRepository) Review(ctx context.Context, id string, status domain.BlueTickStatus, reviewerID, note string, at time.Time) (*domain.BlueTickApplication, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	res := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id, "status": domain.BlueTickPending},
		bson.M{"$set": bson.M{
			"status":      status,
			"reviewer_id": reviewerID,
			"review_note": note,
			"reviewed_at": at,
			"updated_at":  at,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var app domain.BlueTickApplication
	if err := res.Decode(&app); err != nil {
		return nil, mapErr("review blue tick application", err)
	}
	return &app, nil
}
