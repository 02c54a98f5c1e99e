package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	UsersCollection    = "users"
	BooksCollection    = "books"
	MessagesCollection = "messages"
)

// ErrNotFound is returned by stores when no document matches.
var ErrNotFound = errors.New("document not found")

type DB struct {
	Client   *mongo.Client
	Users    *mongo.Collection
	Books    *mongo.Collection
	Messages *mongo.Collection
	log      *slog.Logger
}

// Connect dials MongoDB, retrying a few times before giving up, and pings
// the primary.
func Connect(ctx context.Context, uri, name string, log *slog.Logger) (*DB, error) {
	var (
		client *mongo.Client
		err    error
	)
	for attempt := 1; attempt <= 3; attempt++ {
		client, err = connectOnce(ctx, uri)
		if err == nil {
			break
		}
		log.Warn("mongodb connection attempt failed", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	log.Info("connected to mongodb", "database", name)
	return New(client, client.Database(name), log), nil
}

func connectOnce(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func New(client *mongo.Client, db *mongo.Database, log *slog.Logger) *DB {
	return &DB{
		Client:   client,
		Users:    db.Collection(UsersCollection),
		Books:    db.Collection(BooksCollection),
		Messages: db.Collection(MessagesCollection),
		log:      log,
	}
}

func (d *DB) Ping(ctx context.Context) error {
	return d.Client.Ping(ctx, readpref.Primary())
}

func (d *DB) Disconnect(ctx context.Context) error {
	if d.Client == nil {
		return nil
	}
	if err := d.Client.Disconnect(ctx); err != nil {
		return err
	}
	d.log.Info("disconnected from mongodb")
	return nil
}

// EnsureIndexes creates the unique and query indexes the stores rely on.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	specs := map[*mongo.Collection][]mongo.IndexModel{
		d.Users: {
			{Keys: bson.D{{"email", 1}}, Options: options.Index().SetUnique(true)},
		},
		d.Books: {
			{Keys: bson.D{{"isbn", 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{"category", 1}}},
		},
		d.Messages: {
			{Keys: bson.D{{"type", 1}, {"senderId", 1}, {"receiverId", 1}, {"createdAt", 1}}},
			{Keys: bson.D{{"type", 1}, {"groupId", 1}, {"createdAt", 1}}},
		},
	}
	for coll, indexes := range specs {
		if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("creating indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}
