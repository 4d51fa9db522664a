package database

import (
	"context"
	"fmt"
	"time"

	"socialfeed/logging"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names. The recommendation service reads the same collections.
const (
	UsersCollection      = "users"
	PostsCollection      = "posts"
	CommentsCollection   = "comments"
	CategoriesCollection = "categories"
	HistoryCollection    = "userposthistories"
	PushCollection       = "pushsubscriptions"
)

// Connect dials MongoDB, retrying a few times before giving up.
func Connect(ctx context.Context, uri string, attempts int) (*mongo.Client, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		client, err := connectOnce(ctx, uri)
		if err == nil {
			return client, nil
		}
		lastErr = err
		logging.Warn().Err(err).Int("attempt", i).Msg("MongoDB connection attempt failed")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return nil, fmt.Errorf("connect to MongoDB: %w", lastErr)
}

func connectOnce(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func Disconnect(client *mongo.Client) error {
	if client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the queries rely on. Failures are logged
// and do not stop startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "followers", Value: 1}}},
			{Keys: bson.D{{Key: "following", Value: 1}}},
			{Keys: bson.D{{Key: "interests", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		PostsCollection: {
			{Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "likes", Value: 1}}},
			{Keys: bson.D{{Key: "hashtags", Value: 1}}},
			{Keys: bson.D{{Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "visibility", Value: 1}}},
		},
		CommentsCollection: {
			{Keys: bson.D{{Key: "post", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "parentComment", Value: 1}}},
		},
		CategoriesCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: unique},
		},
		HistoryCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "seenPosts", Value: 1}}},
			{Keys: bson.D{{Key: "lastUpdated", Value: -1}}},
		},
		PushCollection: {
			{Keys: bson.D{{Key: "endpoint", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "user", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			logging.Error().Err(err).Str("collection", name).Msg("Error creating indexes")
		}
	}
}

// Pinger reports whether the server is reachable.
type Pinger struct {
	Client *mongo.Client
}

func (p Pinger) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return p.Client.Ping(ctx, readpref.Primary())
}
