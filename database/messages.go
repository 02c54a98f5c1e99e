package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"libris/models"
)

// MessageStore is append-only: it exposes no update or delete.
type MessageStore struct {
	coll    *mongo.Collection
	timeout time.Duration
	now     func() time.Time
	log     *slog.Logger
}

func NewMessageStore(coll *mongo.Collection, timeout time.Duration, log *slog.Logger) *MessageStore {
	return &MessageStore{coll: coll, timeout: timeout, now: now, log: log}
}

var chronological = bson.D{{"createdAt", 1}, {"_id", 1}}

// Insert assigns the id and creation time and persists the message.
func (s *MessageStore) Insert(ctx context.Context, draft models.Draft) (models.Message, error) {
	message, err := models.NewMessage(draft, s.now())
	if err != nil {
		return models.Message{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.coll.InsertOne(ctx, message); err != nil {
		return models.Message{}, fmt.Errorf("inserting message: %w", err)
	}
	s.log.Debug("message stored", "id", message.ID.Hex(), "type", message.Type)
	return message, nil
}

// FindConversation returns the private messages exchanged between a and b in
// either direction, oldest first.
func (s *MessageStore) FindConversation(ctx context.Context, a, b primitive.ObjectID) ([]models.Message, error) {
	filter := bson.M{
		"type": models.MessageTypePrivate,
		"$or": bson.A{
			bson.M{"senderId": a, "receiverId": b},
			bson.M{"senderId": b, "receiverId": a},
		},
	}
	return s.find(ctx, filter)
}

// FindGroup returns the messages of a group feed, oldest first.
func (s *MessageStore) FindGroup(ctx context.Context, groupID string) ([]models.Message, error) {
	return s.find(ctx, bson.M{"type": models.MessageTypeGroup, "groupId": groupID})
}

func (s *MessageStore) find(ctx context.Context, filter bson.M) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cursor, err := s.coll.Find(ctx, filter, options.Find().SetSort(chronological))
	if err != nil {
		return nil, fmt.Errorf("finding messages: %w", err)
	}
	defer cursor.Close(ctx)

	messages := make([]models.Message, 0)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decoding messages: %w", err)
	}
	return messages, nil
}
