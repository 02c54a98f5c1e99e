//go:generate go run go.uber.org/mock/mockgen -source=auth.go -destination=../mocks/mock_auth.go -package=mocks
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"

	"libris/apperrors"
	"libris/auth"
	"libris/database"
	"libris/models"
)

var (
	ErrEmailInUse         = apperrors.Conflict("Email already in use")
	ErrInvalidCredentials = apperrors.Unauthorized("Invalid credentials")
)

type UserStore interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

type TokenIssuer interface {
	Generate(user models.User) (string, error)
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

type AuthService struct {
	users  UserStore
	tokens TokenIssuer
	log    *slog.Logger
}

func NewAuthService(users UserStore, tokens TokenIssuer, log *slog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, log: log}
}

// Register creates a staff account unless another role is requested.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	email := normalizeEmail(in.Email)

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return models.User{}, ErrEmailInUse
	case !errors.Is(err, database.ErrNotFound):
		return models.User{}, fmt.Errorf("checking email: %w", err)
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hashing password: %w", err)
	}

	role := in.Role
	if role == "" {
		role = models.RoleStaff
	}

	user, err := s.users.Create(ctx, models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hashed,
		Role:         role,
	})
	if mongo.IsDuplicateKeyError(err) {
		return models.User{}, ErrEmailInUse
	}
	if err != nil {
		return models.User{}, fmt.Errorf("creating user: %w", err)
	}

	s.log.Info("user registered", "user_id", user.ID.Hex(), "role", user.Role)
	return user, nil
}

// Login checks the credentials and returns the account with a signed token.
// Unknown emails and wrong passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (models.User, string, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, database.ErrNotFound) {
		return models.User{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, "", fmt.Errorf("finding user: %w", err)
	}

	ok, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil {
		return models.User{}, "", fmt.Errorf("comparing password: %w", err)
	}
	if !ok {
		return models.User{}, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return models.User{}, "", err
	}
	return user, token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
