package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"libris/models"
)

func TestUserStore_Exists(t *testing.T) {
	mt := newMock(t)

	mt.Run("true when the account is registered", func(mt *mtest.T) {
		store := NewUserStore(mt.Coll, time.Second)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, bson.D{{"n", int32(1)}}))

		ok, err := store.Exists(context.Background(), primitive.NewObjectID())

		require.NoError(mt, err)
		require.True(mt, ok)
	})

	mt.Run("false when no document matches", func(mt *mtest.T) {
		store := NewUserStore(mt.Coll, time.Second)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		ok, err := store.Exists(context.Background(), primitive.NewObjectID())

		require.NoError(mt, err)
		require.False(mt, ok)
	})
}

func TestUserStore_FindByEmail(t *testing.T) {
	mt := newMock(t)

	mt.Run("decodes the stored user", func(mt *mtest.T) {
		req := require.New(mt)
		store := NewUserStore(mt.Coll, time.Second)
		stored := models.User{ID: primitive.NewObjectID(), Name: "Admin User", Email: "admin@library.com", PasswordHash: "$2a$10$hash", Role: models.RoleAdmin}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, toDoc(mt, stored)))

		user, err := store.FindByEmail(context.Background(), "admin@library.com")

		req.NoError(err)
		req.Equal(stored.ID, user.ID)
		req.Equal("$2a$10$hash", user.PasswordHash)
		req.Equal(models.RoleAdmin, user.Role)
	})

	mt.Run("maps no documents to ErrNotFound", func(mt *mtest.T) {
		store := NewUserStore(mt.Coll, time.Second)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		_, err := store.FindByEmail(context.Background(), "ghost@library.com")
		require.ErrorIs(mt, err, ErrNotFound)
	})
}

func TestUserStore_Create(t *testing.T) {
	mt := newMock(t)

	mt.Run("assigns identity and timestamps", func(mt *mtest.T) {
		req := require.New(mt)
		store := NewUserStore(mt.Coll, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		user, err := store.Create(context.Background(), models.User{Name: "Librarian One", Email: "one@library.com", Role: models.RoleStaff})

		req.NoError(err)
		req.False(user.ID.IsZero())
		req.False(user.CreatedAt.IsZero())
	})

	mt.Run("surfaces duplicate emails", func(mt *mtest.T) {
		store := NewUserStore(mt.Coll, time.Second)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error index: email_1"}))

		_, err := store.Create(context.Background(), models.User{Email: "one@library.com"})
		require.True(mt, mongo.IsDuplicateKeyError(err))
	})
}
