package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"libris/models"
	"libris/services"
)

type sendMessageRequest struct {
	Type       models.MessageType `json:"type" binding:"required,oneof=private group"`
	ReceiverID string             `json:"receiverId" binding:"required_if=Type private,excluded_if=Type group,omitempty,mongodb"`
	GroupID    string             `json:"groupId" binding:"excluded_if=Type private,omitempty,oneof=main_group"`
	Text       string             `json:"text" binding:"required,min=1,max=1000"`
}

func (r *sendMessageRequest) normalize() {
	r.Text = strings.TrimSpace(r.Text)
	r.ReceiverID = strings.TrimSpace(r.ReceiverID)
	if r.Type == models.MessageTypeGroup && r.GroupID == "" {
		r.GroupID = models.MainGroup
	}
}

// recipient converts a validated request into its addressee.
func (r sendMessageRequest) recipient() (models.Recipient, error) {
	if r.Type == models.MessageTypeGroup {
		return models.Group{GroupID: r.GroupID}, nil
	}
	id, err := primitive.ObjectIDFromHex(r.ReceiverID)
	if err != nil {
		return nil, err
	}
	return models.Private{ReceiverID: id}, nil
}

type MessageHandler struct {
	messages *services.MessagingService
}

func NewMessageHandler(messages *services.MessagingService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

func (h *MessageHandler) Send(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		c.Error(err)
		return
	}

	var req sendMessageRequest
	if err := bindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	to, err := req.recipient()
	if err != nil {
		c.Error(err)
		return
	}

	message, err := h.messages.SendMessage(c.Request.Context(), models.Draft{
		SenderID: actor.ID,
		To:       to,
		Text:     req.Text,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Message sent successfully",
		"data":    message,
	})
}

func (h *MessageHandler) Private(c *gin.Context) {
	other, err := parseID(c, "userId", "Invalid user ID format")
	if err != nil {
		c.Error(err)
		return
	}
	actor, err := currentActor(c)
	if err != nil {
		c.Error(err)
		return
	}

	messages, err := h.messages.GetPrivateMessages(c.Request.Context(), actor.ID, other)
	if err != nil {
		c.Error(err)
		return
	}
	respondList(c, messages)
}

func (h *MessageHandler) Group(c *gin.Context) {
	messages, err := h.messages.GetGroupMessages(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	respondList(c, messages)
}

func respondList(c *gin.Context, messages []models.Message) {
	c.JSON(http.StatusOK, gin.H{
		"count": len(messages),
		"data":  messages,
	})
}
