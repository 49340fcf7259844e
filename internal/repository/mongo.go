package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoStore bundles the repositories that share one database handle.
type MongoStore struct {
	Messages      *MongoMessageRepository
	Chats         *MongoChatRepository
	Favorites     *MongoFavoriteRepository
	Verifications *MongoVerificationRepository
	BlueTicks     *MongoBlueTickRepository
	Tx            *MongoTransactor
}

func NewMongoStore(client *mongo.Client, dbName string, transactions bool) *MongoStore {
	db := client.Database(dbName)
	return &MongoStore{
		Messages:      NewMongoMessageRepository(db),
		Chats:         NewMongoChatRepository(db),
		Favorites:     NewMongoFavoriteRepository(db),
		Verifications: NewMongoVerificationRepository(db),
		BlueTicks:     NewMongoBlueTickRepository(db),
		Tx:            NewMongoTransactor(client, transactions),
	}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	for _, ensure := range []func(context.Context) error{
		s.Messages.EnsureIndexes,
		s.Chats.EnsureIndexes,
		s.Favorites.EnsureIndexes,
		s.Verifications.EnsureIndexes,
		s.BlueTicks.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return err
		}
	}
	return nil
}
