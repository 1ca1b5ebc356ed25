package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConversationChunkFormat values. TEXT is the only format the API currently
// produces or consumes.
const (
	ChunkFormatText = "TEXT"
)

// ConversationAssistant points a conversation at a named provider-side
// assistant instead of a raw model.
type ConversationAssistant struct {
	ID   string `bson:"id,omitempty" json:"id,omitempty"`
	Name string `bson:"name,omitempty" json:"name,omitempty"`
}

// Conversation is one persisted dialogue session. Exactly one of Model /
// Assistant is set; the create validator enforces the exclusivity.
type Conversation struct {
	ID             primitive.ObjectID     `bson:"_id,omitempty" json:"-"`
	ConversationID string                 `bson:"conversation_id" json:"conversationId"`
	Name           string                 `bson:"name" json:"name"`
	Type           string                 `bson:"type" json:"type"`
	Origin         string                 `bson:"origin" json:"origin"`
	Model          string                 `bson:"model,omitempty" json:"model,omitempty"`
	Assistant      *ConversationAssistant `bson:"assistant,omitempty" json:"assistant,omitempty"`
	UserID         string                 `bson:"user_id,omitempty" json:"userId,omitempty"`
	WalletID       string                 `bson:"wallet_id,omitempty" json:"walletId,omitempty"`
	IsActive       bool                   `bson:"is_active" json:"isActive"`
	CreatedAt      time.Time              `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time              `bson:"updated_at" json:"updatedAt"`
}

// ConversationChunk is one message turn inside a conversation. Chunks are
// append-only and ordered by creation time.
type ConversationChunk struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ConversationID string             `bson:"conversation_id" json:"conversationId"`
	Role           string             `bson:"role" json:"role"`
	Value          string             `bson:"value" json:"value"`
	Format         string             `bson:"format" json:"format"`
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
}
