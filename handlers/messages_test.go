package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"

	"libris/models"
	"libris/services"
)

func insertAt(ts time.Time) func(context.Context, models.Draft) (models.Message, error) {
	return func(_ context.Context, d models.Draft) (models.Message, error) {
		return models.NewMessage(d, ts)
	}
}

func TestSendMessage_Private(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	sender, receiver := staff(), admin()
	ts := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	e.directory.EXPECT().Exists(gomock.Any(), receiver.ID).Return(true, nil)
	e.messages.EXPECT().Insert(gomock.Any(), models.Draft{
		SenderID: sender.ID,
		To:       models.Private{ReceiverID: receiver.ID},
		Text:     "hi",
	}).DoAndReturn(insertAt(ts))
	e.notifier.EXPECT().Publish(receiver.ID.Hex(), services.EventNewMessage, models.MessageEvent{
		SenderID:  sender.ID.Hex(),
		Text:      "hi",
		Type:      models.MessageTypePrivate,
		CreatedAt: ts,
	}).Return(nil)

	w := e.do(t, http.MethodPost, "/messages", e.token(t, sender), map[string]any{
		"type":       "private",
		"receiverId": receiver.ID.Hex(),
		"text":       "  hi  ",
	})
	req.Equal(http.StatusCreated, w.Code, w.Body.String())

	body := decode[struct {
		Message string         `json:"message"`
		Data    models.Message `json:"data"`
	}](t, w)
	req.Equal("Message sent successfully", body.Message)
	req.Equal(models.MessageTypePrivate, body.Data.Type)
	req.Equal(receiver.ID, *body.Data.ReceiverID)
	req.Nil(body.Data.GroupID)
}

func TestSendMessage_GroupDefaultsToMainGroup(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)

	e.messages.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(insertAt(time.Now().UTC()))
	e.notifier.EXPECT().Publish(models.MainGroup, services.EventNewMessage, gomock.Any()).Return(nil)

	w := e.do(t, http.MethodPost, "/messages", e.token(t, staff()), map[string]any{
		"type": "group",
		"text": "hello team",
	})
	req.Equal(http.StatusCreated, w.Code, w.Body.String())

	body := decode[struct {
		Data models.Message `json:"data"`
	}](t, w)
	req.Equal(models.MainGroup, *body.Data.GroupID)
	req.Nil(body.Data.ReceiverID)
}

func TestSendMessage_PublishFailureStillCreated(t *testing.T) {
	e := newEnv(t)

	e.messages.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(insertAt(time.Now().UTC()))
	e.notifier.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("hub closed"))

	w := e.do(t, http.MethodPost, "/messages", e.token(t, staff()), map[string]any{"type": "group", "text": "still here"})
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestSendMessage_Validation(t *testing.T) {
	receiver := primitive.NewObjectID().Hex()

	tests := []struct {
		name        string
		body        map[string]any
		wantMessage string
	}{
		{"missing type", map[string]any{"text": "hi"}, "type is required"},
		{"unknown type", map[string]any{"type": "broadcast", "text": "hi"}, "type must be one of: private, group"},
		{"private without receiver", map[string]any{"type": "private", "text": "hi"}, "receiverId is required"},
		{"private with bad receiver", map[string]any{"type": "private", "receiverId": "ghost", "text": "hi"}, "receiverId must be a valid ID"},
		{"private with group", map[string]any{"type": "private", "receiverId": receiver, "groupId": "main_group", "text": "hi"}, "groupId is not allowed"},
		{"group with receiver", map[string]any{"type": "group", "receiverId": receiver, "text": "hi"}, "receiverId is not allowed"},
		{"unknown group", map[string]any{"type": "group", "groupId": "book_club", "text": "hi"}, "groupId must be one of: main_group"},
		{"blank text", map[string]any{"type": "group", "text": "   "}, "text is required"},
		{"long text", map[string]any{"type": "group", "text": strings.Repeat("a", 1001)}, "text must be at most 1000 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			w := e.do(t, http.MethodPost, "/messages", e.token(t, staff()), tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			require.Equal(t, tt.wantMessage, decode[errorResponse](t, w).Message)
		})
	}
}

func TestSendMessage_UnknownReceiver(t *testing.T) {
	e := newEnv(t)
	ghost := primitive.NewObjectID()

	e.directory.EXPECT().Exists(gomock.Any(), ghost).Return(false, nil)

	w := e.do(t, http.MethodPost, "/messages", e.token(t, staff()), map[string]any{
		"type": "private", "receiverId": ghost.Hex(), "text": "hi",
	})
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Receiver not found", decode[errorResponse](t, w).Message)
}

func TestPrivateMessages(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	me, other := staff(), admin()

	first, err := models.NewMessage(models.Draft{SenderID: me.ID, To: models.Private{ReceiverID: other.ID}, Text: "one"}, time.Now().UTC())
	req.NoError(err)
	e.directory.EXPECT().Exists(gomock.Any(), other.ID).Return(true, nil)
	e.messages.EXPECT().FindConversation(gomock.Any(), me.ID, other.ID).Return([]models.Message{first}, nil)

	w := e.do(t, http.MethodGet, "/messages/private/"+other.ID.Hex(), e.token(t, me), nil)
	req.Equal(http.StatusOK, w.Code)

	body := decode[struct {
		Count int              `json:"count"`
		Data  []models.Message `json:"data"`
	}](t, w)
	req.Equal(1, body.Count)
	req.Equal(first.ID, body.Data[0].ID)
}

func TestPrivateMessages_Errors(t *testing.T) {
	e := newEnv(t)
	token := e.token(t, staff())

	w := e.do(t, http.MethodGet, "/messages/private/not-an-id", token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Invalid user ID format", decode[errorResponse](t, w).Message)

	ghost := primitive.NewObjectID()
	e.directory.EXPECT().Exists(gomock.Any(), ghost).Return(false, nil)
	w = e.do(t, http.MethodGet, "/messages/private/"+ghost.Hex(), token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "User not found", decode[errorResponse](t, w).Message)
}

func TestGroupMessages_Empty(t *testing.T) {
	e := newEnv(t)
	e.messages.EXPECT().FindGroup(gomock.Any(), models.MainGroup).Return([]models.Message{}, nil)

	w := e.do(t, http.MethodGet, "/messages/group", e.token(t, staff()), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"count":0,"data":[]}`, w.Body.String())
}
