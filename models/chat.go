package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MessagesCollection      = "messages"
	ConversationsCollection = "conversations"
)

// Message is one chat message between two users.
type Message struct {
	ID             primitive.ObjectID  `json:"_id,omitempty" bson:"_id,omitempty"`
	ConversationID string              `json:"conversationId" bson:"conversationId"`
	SenderID       primitive.ObjectID  `json:"senderId" bson:"senderId"`
	RecipientID    primitive.ObjectID  `json:"recipientId" bson:"recipientId"`
	ListingID      *primitive.ObjectID `json:"listingId,omitempty" bson:"listingId,omitempty"`
	Text           string              `json:"text" bson:"text"`
	Read           bool                `json:"read" bson:"read"`
	CreatedAt      time.Time           `json:"createdAt" bson:"createdAt"`
}

// Conversation summarises the message thread between two users. Its ID is
// ConversationKey of the two participants.
type Conversation struct {
	ID            string               `json:"_id" bson:"_id"`
	Participants  []primitive.ObjectID `json:"participants" bson:"participants"`
	LastMessage   string               `json:"lastMessage" bson:"lastMessage"`
	LastSenderID  primitive.ObjectID   `json:"lastSenderId" bson:"lastSenderId"`
	LastMessageAt time.Time            `json:"lastMessageAt" bson:"lastMessageAt"`
	ListingID     *primitive.ObjectID  `json:"listingId,omitempty" bson:"listingId,omitempty"`
	Unread        map[string]int64     `json:"unread" bson:"unread"`
}

// ConversationKey returns the order-independent key for a pair of users.
func ConversationKey(a, b primitive.ObjectID) string {
	x, y := a.Hex(), b.Hex()
	if x > y {
		x, y = y, x
	}
	return x + ":" + y
}

type SendMessageRequest struct {
	RecipientID string `json:"recipientId" validate:"required"`
	Text        string `json:"text" validate:"required,max=2000"`
	ListingID   string `json:"listingId"`
}
