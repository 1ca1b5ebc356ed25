package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/numengames/numinia-conversations-api/apperrors"
	"github.com/numengames/numinia-conversations-api/db"
	"github.com/numengames/numinia-conversations-api/db/models"
)

// CreateConversationParams carries the validated input of the start
// conversation operation. Exactly one of Model / Assistant is set.
type CreateConversationParams struct {
	ConversationID string
	Name           string
	Type           string
	Origin         string
	Model          string
	Assistant      *models.ConversationAssistant
	WalletID       string
}

// CreateChunkParams carries one message turn to append to a conversation.
type CreateChunkParams struct {
	ConversationID string
	Role           string
	Value          string
	Format         string
}

// walletResolver resolves a wallet identifier to its owning user. A nil
// resolver leaves every conversation ownerless.
type walletResolver interface {
	GetUserByWalletID(ctx context.Context, walletID string) (*models.User, error)
}

// ConversationService is the read/write gateway to conversation and
// conversation-chunk documents. All operations are independent reads and
// writes on their own collection; there are no cross-entity transactions.
type ConversationService struct {
	store  *db.Mongo
	users  walletResolver
	logger *zap.SugaredLogger
}

func NewConversationService(store *db.Mongo, users walletResolver, logger *zap.SugaredLogger) *ConversationService {
	return &ConversationService{store: store, users: users, logger: logger}
}

// ExistsByConversationID reports whether a conversation document exists. Used
// as a precondition gate before chunk reads and writes.
func (s *ConversationService) ExistsByConversationID(ctx context.Context, conversationID string) (bool, error) {
	s.logger.Infow("existsByConversationId - trying to get a conversation",
		"conversationId", conversationID)

	count, err := s.store.Conversations.CountDocuments(ctx,
		bson.M{"conversation_id": conversationID},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("count conversations: %w", err)
	}

	return count > 0, nil
}

// GetByConversationID fetches a single conversation as a lean projection.
func (s *ConversationService) GetByConversationID(ctx context.Context, conversationID string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := s.store.Conversations.FindOne(ctx, bson.M{"conversation_id": conversationID}).Decode(&conversation)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.ConversationNotExist()
		}
		return nil, fmt.Errorf("find conversation: %w", err)
	}

	return &conversation, nil
}

// GetChunkList returns the conversation's chunks in insertion order. The
// parent conversation is checked first; a conversation without chunks yields
// an empty slice, not an error. The existence check and the chunk query are
// two sequential reads, not one snapshot.
func (s *ConversationService) GetChunkList(ctx context.Context, conversationID string) ([]models.ConversationChunk, error) {
	exists, err := s.ExistsByConversationID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.ConversationNotExist()
	}

	s.logger.Infow("getChunkList - trying to get all the messages of a conversation",
		"conversationId", conversationID)

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.store.ConversationChunks.Find(ctx, bson.M{"conversation_id": conversationID}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("find conversation chunks: %w", err)
	}

	chunks := make([]models.ConversationChunk, 0)
	if err := cursor.All(ctx, &chunks); err != nil {
		return nil, fmt.Errorf("decode conversation chunks: %w", err)
	}

	return chunks, nil
}

// CreateConversation inserts a new conversation document. When a wallet id is
// supplied and resolvable, the owning user is attached; otherwise the
// conversation is ownerless. Duplicate conversation ids surface as a generic
// write failure through the store's unique index.
func (s *ConversationService) CreateConversation(ctx context.Context, params CreateConversationParams) (*models.Conversation, error) {
	s.logger.Infow("createConversation - creating a new conversation document")

	now := time.Now().UTC()
	conversation := models.Conversation{
		ConversationID: params.ConversationID,
		Name:           params.Name,
		Type:           params.Type,
		Origin:         params.Origin,
		Model:          params.Model,
		Assistant:      params.Assistant,
		WalletID:       params.WalletID,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if params.WalletID != "" && s.users != nil {
		user, err := s.users.GetUserByWalletID(ctx, params.WalletID)
		if err != nil {
			return nil, err
		}
		if user != nil {
			conversation.UserID = user.ID
		}
	}

	result, err := s.store.Conversations.InsertOne(ctx, conversation)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	s.logger.Infow("createConversation - a new conversation document has been created",
		"id", result.InsertedID)

	return &conversation, nil
}

// CreateChunk appends one message turn to an existing conversation. The
// parent conversation must exist; chunks are never mutated after creation.
func (s *ConversationService) CreateChunk(ctx context.Context, params CreateChunkParams) error {
	exists, err := s.ExistsByConversationID(ctx, params.ConversationID)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.ConversationNotExist()
	}

	s.logger.Infow("createChunk - creating a new message document for an existing conversation")

	chunk := models.ConversationChunk{
		ConversationID: params.ConversationID,
		Role:           params.Role,
		Value:          params.Value,
		Format:         params.Format,
		CreatedAt:      time.Now().UTC(),
	}

	result, err := s.store.ConversationChunks.InsertOne(ctx, chunk)
	if err != nil {
		return fmt.Errorf("insert conversation chunk: %w", err)
	}

	s.logger.Infow("createChunk - a new message document has been created",
		"id", result.InsertedID)

	return nil
}
