package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is a chat message exchanged over a conversation channel between a
// tenant and a landlord, usually around a viewing appointment.
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MessageID      string             `bson:"messageId" json:"messageId"`
	ConversationID string             `bson:"conversationId" json:"conversationId"`
	SenderID       primitive.ObjectID `bson:"senderId" json:"senderId"`
	Body           string             `bson:"body" json:"body"`
	SentAt         time.Time          `bson:"sentAt" json:"sentAt"`
}
