package handlers

import (
	"context"

	"github.com/numengames/numinia-conversations-api/db/models"
	"github.com/numengames/numinia-conversations-api/services"
)

// conversationStore is the slice of the conversation store gateway the
// handlers consume. services.ConversationService implements it; tests plug in
// an in-memory fake.
type conversationStore interface {
	GetByConversationID(ctx context.Context, conversationID string) (*models.Conversation, error)
	GetChunkList(ctx context.Context, conversationID string) ([]models.ConversationChunk, error)
	CreateConversation(ctx context.Context, params services.CreateConversationParams) (*models.Conversation, error)
	CreateChunk(ctx context.Context, params services.CreateChunkParams) error
}

// modelClient is the streaming contract of the model client adapter.
type modelClient interface {
	SendMessage(ctx context.Context, params services.SendMessageParams, onFragment services.FragmentFunc) (string, error)
	SendMessageToAssistant(ctx context.Context, params services.AssistantMessageParams, onFragment services.FragmentFunc) (string, error)
	CreateSpeech(ctx context.Context, message string) ([]byte, error)
}
