package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/numengames/numinia-conversations-api/config"
	"github.com/numengames/numinia-conversations-api/db"
	"github.com/numengames/numinia-conversations-api/handlers"
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

	ctx := context.Background()

	mongoStore, err := db.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		sugar.Fatalf("mongo: failed to connect: %v", err)
	}
	defer func() {
		if err := mongoStore.Close(context.Background()); err != nil {
			sugar.Warnf("mongo: close error: %v", err)
		}
	}()

	if err := mongoStore.EnsureCollections(ctx); err != nil {
		sugar.Fatalf("mongo: ensure collections: %v", err)
	}

	var conversationService *services.ConversationService
	if cfg.HasUserStore() {
		postgres, err := db.NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			sugar.Fatalf("postgres: failed to connect: %v", err)
		}
		defer postgres.Close()

		if err := postgres.EnsureSchema(ctx); err != nil {
			sugar.Fatalf("postgres: ensure schema: %v", err)
		}

		userService := services.NewUserService(postgres.Pool, sugar.Named("UserService"))
		conversationService = services.NewConversationService(mongoStore, userService, sugar.Named("ConversationService"))
	} else {
		sugar.Infow("postgres: DATABASE_URL not set, conversations will be created without an owner")
		conversationService = services.NewConversationService(mongoStore, nil, sugar.Named("ConversationService"))
	}

	openAIService := services.NewOpenAIService(cfg.OpenAI, sugar.Named("OpenAIService"))
	discordService := services.NewDiscordService(cfg.Discord, sugar.Named("DiscordService"))

	router := setupRouter(conversationService, openAIService, discordService, sugar)

	server := &http.Server{
		Addr:        cfg.ServerAddr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: completion streams stay open for as long as the
		// model keeps producing fragments
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		sugar.Infof("server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("server crashed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Warnf("graceful shutdown failed: %v", err)
	}

	sugar.Infow("server stopped cleanly")
}

func setupRouter(
	conversationService *services.ConversationService,
	openAIService *services.OpenAIService,
	discordService *services.DiscordService,
	sugar *zap.SugaredLogger,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	api := router.Group("/api/v1")

	handlers.NewConversationHandler(conversationService, sugar.Named("ConversationHandler")).
		RegisterRoutes(api.Group("/conversation"))
	handlers.NewOpenAIHandler(conversationService, openAIService, sugar.Named("OpenAIHandler")).
		RegisterRoutes(api.Group("/openai"))
	handlers.NewDiscordHandler(discordService, sugar.Named("DiscordHandler")).
		RegisterRoutes(api.Group("/discord"))
	handlers.NewMonitHandler(sugar.Named("MonitHandler")).
		RegisterRoutes(api.Group("/monit"))

	return router
}
