package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"libris/models"
)

type BookStore struct {
	coll    *mongo.Collection
	timeout time.Duration
	now     func() time.Time
}

func NewBookStore(coll *mongo.Collection, timeout time.Duration) *BookStore {
	return &BookStore{coll: coll, timeout: timeout, now: now}
}

func (s *BookStore) Create(ctx context.Context, book models.Book) (models.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ts := s.now()
	book.ID = primitive.NewObjectID()
	book.CreatedBy = nil
	book.CreatedAt, book.UpdatedAt = ts, ts

	if _, err := s.coll.InsertOne(ctx, book); err != nil {
		return models.Book{}, fmt.Errorf("inserting book: %w", err)
	}
	return book, nil
}

// FindByID returns the book with its creator populated.
func (s *BookStore) FindByID(ctx context.Context, id primitive.ObjectID) (models.Book, error) {
	books, err := s.aggregate(ctx, bson.M{"_id": id})
	if err != nil {
		return models.Book{}, err
	}
	if len(books) == 0 {
		return models.Book{}, ErrNotFound
	}
	return books[0], nil
}

func (s *BookStore) FindByISBN(ctx context.Context, isbn string) (models.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var book models.Book
	err := s.coll.FindOne(ctx, bson.M{"isbn": isbn}).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Book{}, ErrNotFound
	}
	if err != nil {
		return models.Book{}, fmt.Errorf("finding book by isbn: %w", err)
	}
	return book, nil
}

// List returns books matching filter, newest first, creators populated.
func (s *BookStore) List(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	return s.aggregate(ctx, listFilter(filter))
}

func listFilter(filter models.BookFilter) bson.M {
	match := bson.M{}
	if filter.Category != "" {
		match["category"] = filter.Category
	}
	if filter.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		match["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"author": pattern},
		}
	}
	return match
}

// Update applies patch and returns the book as stored afterwards.
func (s *BookStore) Update(ctx context.Context, id primitive.ObjectID, patch models.BookPatch) (models.Book, error) {
	set := bson.M{"updatedAt": s.now()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Author != nil {
		set["author"] = *patch.Author
	}
	if patch.ISBN != nil {
		set["isbn"] = *patch.ISBN
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Quantity != nil {
		set["quantity"] = *patch.Quantity
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var book models.Book
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Book{}, ErrNotFound
	}
	if err != nil {
		return models.Book{}, fmt.Errorf("updating book: %w", err)
	}
	return book, nil
}

func (s *BookStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting book: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *BookStore) aggregate(ctx context.Context, match bson.M) ([]models.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{"$match", match}},
		{{"$sort", bson.D{{"createdAt", -1}, {"_id", -1}}}},
		{{"$lookup", bson.D{
			{"from", UsersCollection},
			{"localField", "userId"},
			{"foreignField", "_id"},
			{"as", "createdBy"},
		}}},
		{{"$unwind", bson.D{
			{"path", "$createdBy"},
			{"preserveNullAndEmptyArrays", true},
		}}},
		{{"$project", bson.D{
			{"createdBy.password", 0},
			{"createdBy.role", 0},
		}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregating books: %w", err)
	}
	defer cursor.Close(ctx)

	books := make([]models.Book, 0)
	if err := cursor.All(ctx, &books); err != nil {
		return nil, fmt.Errorf("decoding books: %w", err)
	}
	return books, nil
}
