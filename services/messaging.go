//go:generate go run go.uber.org/mock/mockgen -source=messaging.go -destination=../mocks/mock_messaging.go -package=mocks
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"libris/apperrors"
	"libris/metrics"
	"libris/models"
)

// EventNewMessage is the realtime event emitted for every created message.
const EventNewMessage = "new_message"

var (
	ErrRecipientNotFound = apperrors.NotFound("Receiver not found")
	ErrUserNotFound      = apperrors.NotFound("User not found")

	ErrChannelUnavailable = errors.New("notification channel not initialized")
)

type MessageStore interface {
	Insert(ctx context.Context, draft models.Draft) (models.Message, error)
	FindConversation(ctx context.Context, a, b primitive.ObjectID) ([]models.Message, error)
	FindGroup(ctx context.Context, groupID string) ([]models.Message, error)
}

// Directory answers whether an account exists.
type Directory interface {
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
}

// Notifier delivers an event to whoever is currently joined to room.
// Delivery is best-effort; an empty room is not an error.
type Notifier interface {
	Publish(room, event string, payload any) error
}

type unavailableNotifier struct{}

func (unavailableNotifier) Publish(string, string, any) error { return ErrChannelUnavailable }

// MessagingService is the only writer of messages and the only publisher of
// message events.
type MessagingService struct {
	store     MessageStore
	directory Directory
	notifier  Notifier
	log       *slog.Logger
}

func NewMessagingService(store MessageStore, directory Directory, notifier Notifier, log *slog.Logger) *MessagingService {
	if notifier == nil {
		notifier = unavailableNotifier{}
	}
	return &MessagingService{store: store, directory: directory, notifier: notifier, log: log}
}

// SendMessage persists draft and then notifies the receiver's room, or the
// group room for group messages. The sender's own room is never notified.
// A failed notification is logged and does not undo the write.
func (s *MessagingService) SendMessage(ctx context.Context, draft models.Draft) (models.Message, error) {
	if private, ok := draft.To.(models.Private); ok {
		exists, err := s.directory.Exists(ctx, private.ReceiverID)
		if err != nil {
			return models.Message{}, fmt.Errorf("looking up receiver: %w", err)
		}
		if !exists {
			return models.Message{}, ErrRecipientNotFound
		}
	}

	message, err := s.store.Insert(ctx, draft)
	if err != nil {
		return models.Message{}, fmt.Errorf("storing message: %w", err)
	}
	metrics.MessagesSent.WithLabelValues(string(message.Type)).Inc()

	s.notify(message)
	return message, nil
}

func (s *MessagingService) notify(message models.Message) {
	to := message.Recipient()
	if to == nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		s.log.Warn("message stored but has no recipient to notify",
			"message_id", message.ID.Hex(),
			"type", message.Type)
		return
	}

	room := to.Room()
	if err := s.notifier.Publish(room, EventNewMessage, message.Event()); err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		s.log.Warn("message stored but realtime delivery failed",
			"message_id", message.ID.Hex(),
			"room", room,
			"error", err)
		return
	}
	metrics.Notifications.WithLabelValues("published").Inc()
}

// GetPrivateMessages returns the conversation between current and other,
// oldest first. other must be a registered account.
func (s *MessagingService) GetPrivateMessages(ctx context.Context, current, other primitive.ObjectID) ([]models.Message, error) {
	exists, err := s.directory.Exists(ctx, other)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}
	return s.store.FindConversation(ctx, current, other)
}

// GetGroupMessages returns the main group feed, oldest first.
func (s *MessagingService) GetGroupMessages(ctx context.Context) ([]models.Message, error) {
	return s.store.FindGroup(ctx, models.MainGroup)
}
