package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"

	"libris/auth"
	"libris/logger"
	"libris/middleware"
	"libris/mocks"
	"libris/models"
	"libris/services"
)

type env struct {
	router    *gin.Engine
	tokens    *auth.TokenManager
	users     *mocks.MockUserStore
	books     *mocks.MockBookStore
	messages  *mocks.MockMessageStore
	directory *mocks.MockDirectory
	notifier  *mocks.MockNotifier
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	SetupValidator()

	ctrl := gomock.NewController(t)
	log := logger.Discard()
	e := &env{
		tokens:    auth.NewTokenManager("handlers-test-secret", time.Hour),
		users:     mocks.NewMockUserStore(ctrl),
		books:     mocks.NewMockBookStore(ctrl),
		messages:  mocks.NewMockMessageStore(ctrl),
		directory: mocks.NewMockDirectory(ctrl),
		notifier:  mocks.NewMockNotifier(ctrl),
	}

	authH := NewAuthHandler(services.NewAuthService(e.users, e.tokens, log))
	bookH := NewBookHandler(services.NewBookService(e.books, log))
	msgH := NewMessageHandler(services.NewMessagingService(e.messages, e.directory, e.notifier, log))

	r := gin.New()
	r.Use(middleware.ErrorHandler(log))
	r.POST("/auth/register", authH.Register)
	r.POST("/auth/login", authH.Login)

	protected := r.Group("", middleware.Authenticate(e.tokens))
	protected.POST("/book", bookH.Create)
	protected.GET("/book", bookH.List)
	protected.GET("/book/:id", bookH.Get)
	protected.PUT("/book/:id", bookH.Update)
	protected.DELETE("/book/:id", bookH.Delete)
	protected.POST("/messages", msgH.Send)
	protected.GET("/messages/private/:userId", msgH.Private)
	protected.GET("/messages/group", msgH.Group)

	e.router = r
	return e
}

func (e *env) token(t *testing.T, user models.User) string {
	t.Helper()
	token, err := e.tokens.Generate(user)
	require.NoError(t, err)
	return token
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func staff() models.User {
	return models.User{ID: primitive.NewObjectID(), Name: "Sam", Email: "sam@library.test", Role: models.RoleStaff}
}

func admin() models.User {
	return models.User{ID: primitive.NewObjectID(), Name: "Ada", Email: "ada@library.test", Role: models.RoleAdmin}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorResponse struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}
