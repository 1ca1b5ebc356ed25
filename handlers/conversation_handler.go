package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/numengames/numinia-conversations-api/apperrors"
	"github.com/numengames/numinia-conversations-api/db/models"
	"github.com/numengames/numinia-conversations-api/services"
)

// ConversationHandler exposes the conversation CRUD surface: start a
// conversation, stack a message onto it, fetch it back.
type ConversationHandler struct {
	conversations conversationStore
	logger        *zap.SugaredLogger
}

func NewConversationHandler(conversations conversationStore, logger *zap.SugaredLogger) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, logger: logger}
}

func (h *ConversationHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("", h.CreateConversation)
	group.POST("/message", h.StackMessageToConversation)
	group.GET("/:conversationId", h.GetConversation)
}

type assistantPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type createConversationRequest struct {
	Name           string            `json:"name"`
	Type           string            `json:"type"`
	Origin         string            `json:"origin"`
	ConversationID string            `json:"conversationId"`
	WalletID       string            `json:"walletId"`
	Model          string            `json:"model"`
	Assistant      *assistantPayload `json:"assistant"`
}

func (r *createConversationRequest) validate() (*services.CreateConversationParams, error) {
	name := strings.TrimSpace(r.Name)
	convType := strings.TrimSpace(r.Type)
	origin := strings.TrimSpace(r.Origin)
	conversationID := strings.TrimSpace(r.ConversationID)

	switch {
	case name == "":
		return nil, apperrors.BadData("name is required")
	case convType == "":
		return nil, apperrors.BadData("type is required")
	case origin == "":
		return nil, apperrors.BadData("origin is required")
	case conversationID == "":
		return nil, apperrors.BadData("conversationId is required")
	}

	model := strings.TrimSpace(r.Model)

	// single exclusivity rule so the failure message names the violation
	if (model == "") == (r.Assistant == nil) {
		return nil, apperrors.BadData("exactly one of model or assistant must be provided")
	}

	params := &services.CreateConversationParams{
		ConversationID: conversationID,
		Name:           name,
		Type:           convType,
		Origin:         origin,
		Model:          model,
		WalletID:       strings.TrimSpace(r.WalletID),
	}

	if r.Assistant != nil {
		params.Assistant = &models.ConversationAssistant{
			ID:   strings.TrimSpace(r.Assistant.ID),
			Name: strings.TrimSpace(r.Assistant.Name),
		}
	}

	return params, nil
}

func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	h.logger.Infow("createConversation")

	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, h.logger, apperrors.BadData("invalid request payload").WithCause(err))
		return
	}

	params, err := req.validate()
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	conversation, err := h.conversations.CreateConversation(c.Request.Context(), *params)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, conversation)
}

type stackMessageRequest struct {
	Role           string `json:"role"`
	Format         string `json:"format"`
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

func (r *stackMessageRequest) validate() (*services.CreateChunkParams, error) {
	role := strings.TrimSpace(r.Role)
	format := strings.TrimSpace(r.Format)
	message := strings.TrimSpace(r.Message)
	conversationID := strings.TrimSpace(r.ConversationID)

	switch {
	case role == "":
		return nil, apperrors.BadData("role is required")
	case format == "":
		return nil, apperrors.BadData("format is required")
	case message == "":
		return nil, apperrors.BadData("message is required")
	case conversationID == "":
		return nil, apperrors.BadData("conversationId is required")
	}

	return &services.CreateChunkParams{
		ConversationID: conversationID,
		Role:           role,
		Value:          message,
		Format:         format,
	}, nil
}

func (h *ConversationHandler) StackMessageToConversation(c *gin.Context) {
	h.logger.Infow("stackMessageToConversation")

	var req stackMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, h.logger, apperrors.BadData("invalid request payload").WithCause(err))
		return
	}

	params, err := req.validate()
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	if err := h.conversations.CreateChunk(c.Request.Context(), *params); err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.Status(http.StatusCreated)
}

func (h *ConversationHandler) GetConversation(c *gin.Context) {
	conversationID := strings.TrimSpace(c.Param("conversationId"))
	if conversationID == "" {
		handleError(c, h.logger, apperrors.BadData("conversationId is required"))
		return
	}

	conversation, err := h.conversations.GetByConversationID(c.Request.Context(), conversationID)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, conversation)
}
