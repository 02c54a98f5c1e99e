package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageType string

const (
	MessageTypePrivate MessageType = "private"
	MessageTypeGroup   MessageType = "group"
)

// MainGroup is the single supported group channel.
const MainGroup = "main_group"

var ErrInvalidRecipient = errors.New("message recipient is invalid")

// Recipient addresses a message. It is either Private or Group.
type Recipient interface {
	Type() MessageType
	// Room is the notification room that learns about the message.
	Room() string
	valid() bool
}

type Private struct {
	ReceiverID primitive.ObjectID
}

func (Private) Type() MessageType { return MessageTypePrivate }
func (p Private) Room() string    { return p.ReceiverID.Hex() }
func (p Private) valid() bool     { return !p.ReceiverID.IsZero() }

type Group struct {
	GroupID string
}

func (Group) Type() MessageType { return MessageTypeGroup }
func (g Group) Room() string    { return g.GroupID }
func (g Group) valid() bool     { return g.GroupID == MainGroup }

// Draft is a message that has not been persisted yet.
type Draft struct {
	SenderID primitive.ObjectID
	To       Recipient
	Text     string
}

type Message struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	SenderID   primitive.ObjectID  `bson:"senderId" json:"senderId"`
	Type       MessageType         `bson:"type" json:"type"`
	ReceiverID *primitive.ObjectID `bson:"receiverId" json:"receiverId"`
	GroupID    *string             `bson:"groupId" json:"groupId"`
	Text       string              `bson:"text" json:"text"`
	CreatedAt  time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// NewMessage builds the stored form of d. Exactly one of ReceiverID and
// GroupID is set, matching Type.
func NewMessage(d Draft, now time.Time) (Message, error) {
	if d.SenderID.IsZero() || d.To == nil || !d.To.valid() || d.Text == "" {
		return Message{}, ErrInvalidRecipient
	}
	m := Message{
		ID:        primitive.NewObjectID(),
		SenderID:  d.SenderID,
		Type:      d.To.Type(),
		Text:      d.Text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch to := d.To.(type) {
	case Private:
		id := to.ReceiverID
		m.ReceiverID = &id
	case Group:
		group := to.GroupID
		m.GroupID = &group
	}
	return m, nil
}

// Recipient reconstructs the addressee of a stored message.
func (m Message) Recipient() Recipient {
	switch m.Type {
	case MessageTypePrivate:
		if m.ReceiverID != nil {
			return Private{ReceiverID: *m.ReceiverID}
		}
	case MessageTypeGroup:
		if m.GroupID != nil {
			return Group{GroupID: *m.GroupID}
		}
	}
	return nil
}

// MessageEvent is the realtime payload published when a message is created.
type MessageEvent struct {
	SenderID  string      `json:"senderId"`
	Text      string      `json:"text"`
	Type      MessageType `json:"type"`
	CreatedAt time.Time   `json:"createdAt"`
}

func (m Message) Event() MessageEvent {
	return MessageEvent{
		SenderID:  m.SenderID.Hex(),
		Text:      m.Text,
		Type:      m.Type,
		CreatedAt: m.CreatedAt,
	}
}
