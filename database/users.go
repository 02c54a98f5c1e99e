package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"libris/models"
)

// UserStore is the account directory.
type UserStore struct {
	coll    *mongo.Collection
	timeout time.Duration
	now     func() time.Time
}

func NewUserStore(coll *mongo.Collection, timeout time.Duration) *UserStore {
	return &UserStore{coll: coll, timeout: timeout, now: now}
}

func now() time.Time {
	// MongoDB keeps millisecond precision; truncating keeps returned values
	// equal to what a later read yields.
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (s *UserStore) Create(ctx context.Context, user models.User) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ts := s.now()
	user.ID = primitive.NewObjectID()
	user.CreatedAt, user.UpdatedAt = ts, ts

	if _, err := s.coll.InsertOne(ctx, user); err != nil {
		return models.User{}, fmt.Errorf("inserting user: %w", err)
	}
	return user, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *UserStore) FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// Exists reports whether an account with id is registered.
func (s *UserStore) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	count, err := s.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("counting users: %w", err)
	}
	return count > 0, nil
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var user models.User
	err := s.coll.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("finding user: %w", err)
	}
	return user, nil
}
