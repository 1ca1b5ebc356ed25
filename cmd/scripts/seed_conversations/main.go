// Seeds a demo conversation with a short message history, for local testing
// of the streaming endpoints.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/numengames/numinia-conversations-api/config"
	"github.com/numengames/numinia-conversations-api/db"
	"github.com/numengames/numinia-conversations-api/logging"
	"github.com/numengames/numinia-conversations-api/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: failed to load: %v", err)
	}

	logger := logging.MustNewLogger(cfg.Logging)
	defer logger.Sync()

	sugar := logger.Sugar()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mongoStore, err := db.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		sugar.Fatalf("mongo: failed to connect: %v", err)
	}
	defer mongoStore.Close(context.Background())

	if err := mongoStore.EnsureCollections(ctx); err != nil {
		sugar.Fatalf("mongo: ensure collections: %v", err)
	}

	conversations := services.NewConversationService(mongoStore, nil, sugar.Named("ConversationService"))

	conversationID := fmt.Sprintf("conversation-%s", uuid.NewString())

	if _, err := conversations.CreateConversation(ctx, services.CreateConversationParams{
		ConversationID: conversationID,
		Name:           "Seeded conversation",
		Type:           "CHATGPT",
		Origin:         "WEB",
		Model:          cfg.OpenAI.DefaultModel,
	}); err != nil {
		sugar.Fatalf("seed: create conversation: %v", err)
	}

	seedChunks := []services.CreateChunkParams{
		{ConversationID: conversationID, Role: "user", Value: "Hello there!", Format: "TEXT"},
		{ConversationID: conversationID, Role: "assistant", Value: "Hi! How can I help you today?", Format: "TEXT"},
	}

	for _, chunk := range seedChunks {
		if err := conversations.CreateChunk(ctx, chunk); err != nil {
			sugar.Fatalf("seed: create chunk: %v", err)
		}
	}

	sugar.Infof("seeded conversation %s with %d chunks", conversationID, len(seedChunks))
}
