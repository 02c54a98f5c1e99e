//go:generate go run go.uber.org/mock/mockgen -source=books.go -destination=../mocks/mock_books.go -package=mocks
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"libris/apperrors"
	"libris/database"
	"libris/models"
)

var (
	ErrBookNotFound = apperrors.NotFound("Book not found")
	ErrISBNExists   = apperrors.Conflict("ISBN already exists")
	ErrNotBookOwner = apperrors.Forbidden("Not authorized to update this book")
)

type BookStore interface {
	Create(ctx context.Context, book models.Book) (models.Book, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Book, error)
	FindByISBN(ctx context.Context, isbn string) (models.Book, error)
	List(ctx context.Context, filter models.BookFilter) ([]models.Book, error)
	Update(ctx context.Context, id primitive.ObjectID, patch models.BookPatch) (models.Book, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   primitive.ObjectID
	Role models.Role
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

type BookService struct {
	store BookStore
	log   *slog.Logger
}

func NewBookService(store BookStore, log *slog.Logger) *BookService {
	return &BookService{store: store, log: log}
}

func (s *BookService) Create(ctx context.Context, book models.Book, actor Actor) (models.Book, error) {
	if err := s.ensureISBNFree(ctx, book.ISBN, primitive.NilObjectID); err != nil {
		return models.Book{}, err
	}
	if book.Category == "" {
		book.Category = models.CategoryOther
	}
	book.UserID = actor.ID

	created, err := s.store.Create(ctx, book)
	if mongo.IsDuplicateKeyError(err) {
		return models.Book{}, ErrISBNExists
	}
	if err != nil {
		return models.Book{}, fmt.Errorf("creating book: %w", err)
	}
	s.log.Info("book created", "book_id", created.ID.Hex(), "user_id", actor.ID.Hex())
	return created, nil
}

func (s *BookService) List(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	return s.store.List(ctx, filter)
}

func (s *BookService) Get(ctx context.Context, id primitive.ObjectID) (models.Book, error) {
	book, err := s.store.FindByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return models.Book{}, ErrBookNotFound
	}
	return book, err
}

// Update applies patch. Only the creator of the book or an admin may update it.
func (s *BookService) Update(ctx context.Context, id primitive.ObjectID, patch models.BookPatch, actor Actor) (models.Book, error) {
	book, err := s.Get(ctx, id)
	if err != nil {
		return models.Book{}, err
	}
	if !actor.IsAdmin() && book.UserID != actor.ID {
		return models.Book{}, ErrNotBookOwner
	}
	if patch.ISBN != nil && *patch.ISBN != book.ISBN {
		if err := s.ensureISBNFree(ctx, *patch.ISBN, id); err != nil {
			return models.Book{}, err
		}
	}

	updated, err := s.store.Update(ctx, id, patch)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return models.Book{}, ErrBookNotFound
	case mongo.IsDuplicateKeyError(err):
		return models.Book{}, ErrISBNExists
	case err != nil:
		return models.Book{}, fmt.Errorf("updating book: %w", err)
	}
	return updated, nil
}

func (s *BookService) Delete(ctx context.Context, id primitive.ObjectID) error {
	err := s.store.Delete(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return ErrBookNotFound
	}
	return err
}

func (s *BookService) ensureISBNFree(ctx context.Context, isbn string, self primitive.ObjectID) error {
	existing, err := s.store.FindByISBN(ctx, isbn)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking isbn: %w", err)
	}
	if existing.ID != self {
		return ErrISBNExists
	}
	return nil
}
