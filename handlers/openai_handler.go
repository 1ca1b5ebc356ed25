package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/numengames/numinia-conversations-api/apperrors"
	"github.com/numengames/numinia-conversations-api/db/models"
	"github.com/numengames/numinia-conversations-api/services"
)

// OpenAIHandler orchestrates one conversational exchange per request:
// validate the input, rebuild the message history from the store, drive the
// model client while relaying fragments to the response writer, then persist
// both halves of the exchange. Each request is stateless; all history is
// rehydrated from the store.
type OpenAIHandler struct {
	conversations conversationStore
	openai        modelClient
	logger        *zap.SugaredLogger
}

func NewOpenAIHandler(conversations conversationStore, openai modelClient, logger *zap.SugaredLogger) *OpenAIHandler {
	return &OpenAIHandler{conversations: conversations, openai: openai, logger: logger}
}

func (h *OpenAIHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/conversation/text/:conversationId", h.HandleTextConversation)
	group.POST("/conversation/assistant/text/:conversationId", h.HandleAssistantTextConversation)
	group.POST("/conversation/voice/:conversationId", h.HandleVoiceConversation)
	group.POST("/conversation/assistant/voice/:conversationId", h.HandleAssistantVoiceConversation)
}

type textConversationRequest struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// textConversationInput is the validated form of one exchange request. Role
// is canonicalized to the provider wire format.
type textConversationInput struct {
	ConversationID string
	Role           string
	Message        string
}

func parseTextConversationInput(c *gin.Context) (*textConversationInput, error) {
	var req textConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, apperrors.BadData("invalid request payload").WithCause(err)
	}

	role, ok := services.ResolveRole(req.Role)
	if !ok {
		return nil, apperrors.BadData(fmt.Sprintf("role must be one of [TOOL, USER, SYSTEM, FUNCTION, ASSISTANT], got %q", req.Role))
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, apperrors.BadData("message is required")
	}

	conversationID := strings.TrimSpace(c.Param("conversationId"))
	if conversationID == "" {
		return nil, apperrors.BadData("conversationId is required")
	}

	return &textConversationInput{
		ConversationID: conversationID,
		Role:           role,
		Message:        message,
	}, nil
}

// HandleTextConversation streams a direct chat-completion exchange as plain
// text.
func (h *OpenAIHandler) HandleTextConversation(c *gin.Context) {
	h.logger.Infow("handleTextConversation")

	if err := h.textConversation(c, true); err != nil {
		handleError(c, h.logger, err)
	}
}

// HandleVoiceConversation runs the same exchange in buffered mode and
// responds with the synthesised audio of the full reply.
func (h *OpenAIHandler) HandleVoiceConversation(c *gin.Context) {
	h.logger.Infow("handleVoiceConversation")

	if err := h.textConversation(c, false); err != nil {
		handleError(c, h.logger, err)
	}
}

func (h *OpenAIHandler) textConversation(c *gin.Context, isStreamResponse bool) error {
	input, err := parseTextConversationInput(c)
	if err != nil {
		return err
	}

	ctx := c.Request.Context()

	chunkList, err := h.conversations.GetChunkList(ctx, input.ConversationID)
	if err != nil {
		return err
	}

	messageList := projectChunkList(chunkList, input.Role, input.Message)

	var relay services.FragmentFunc
	if isStreamResponse {
		relay = h.textRelay(c)
	}

	reply, err := h.openai.SendMessage(ctx, services.SendMessageParams{Messages: messageList}, relay)
	if err != nil {
		return err
	}

	if err := h.persistExchange(ctx, input, reply); err != nil {
		return err
	}

	if isStreamResponse {
		h.closeStream(c)
		return nil
	}

	return h.respondWithSpeech(c, reply)
}

// HandleAssistantTextConversation streams an assistant-thread exchange; the
// target assistant is resolved from the conversation record.
func (h *OpenAIHandler) HandleAssistantTextConversation(c *gin.Context) {
	h.logger.Infow("handleAssistantTextConversation")

	if err := h.assistantConversation(c, true); err != nil {
		handleError(c, h.logger, err)
	}
}

func (h *OpenAIHandler) HandleAssistantVoiceConversation(c *gin.Context) {
	h.logger.Infow("handleAssistantVoiceConversation")

	if err := h.assistantConversation(c, false); err != nil {
		handleError(c, h.logger, err)
	}
}

func (h *OpenAIHandler) assistantConversation(c *gin.Context, isStreamResponse bool) error {
	input, err := parseTextConversationInput(c)
	if err != nil {
		return err
	}

	ctx := c.Request.Context()

	conversation, err := h.conversations.GetByConversationID(ctx, input.ConversationID)
	if err != nil {
		return err
	}

	assistantKey, err := assistantKeyFromConversation(conversation)
	if err != nil {
		return err
	}

	chunkList, err := h.conversations.GetChunkList(ctx, input.ConversationID)
	if err != nil {
		return err
	}

	messageList := projectChunkList(chunkList, input.Role, input.Message)

	var relay services.FragmentFunc
	if isStreamResponse {
		relay = h.textRelay(c)
	}

	reply, err := h.openai.SendMessageToAssistant(ctx, services.AssistantMessageParams{
		Messages:  messageList,
		Assistant: assistantKey,
	}, relay)
	if err != nil {
		return err
	}

	if err := h.persistExchange(ctx, input, reply); err != nil {
		return err
	}

	if isStreamResponse {
		h.closeStream(c)
		return nil
	}

	return h.respondWithSpeech(c, reply)
}

// assistantKeyFromConversation validates that the conversation targets a
// known assistant before the adapter is ever invoked.
func assistantKeyFromConversation(conversation *models.Conversation) (string, error) {
	if conversation.Assistant == nil || strings.TrimSpace(conversation.Assistant.Name) == "" {
		return "", apperrors.BadData("conversation is not bound to an assistant")
	}

	key := strings.ToUpper(strings.TrimSpace(conversation.Assistant.Name))
	if _, ok := services.ResolveAssistant(key); !ok {
		return "", apperrors.BadData(fmt.Sprintf("unknown assistant %q", conversation.Assistant.Name))
	}

	return key, nil
}

// projectChunkList turns the stored history into the ordered provider
// message list, appending the new input as the final entry. Order is
// preserved; stored chunks are never mutated.
func projectChunkList(chunks []models.ConversationChunk, role, message string) []services.Message {
	messageList := make([]services.Message, 0, len(chunks)+1)
	for _, chunk := range chunks {
		messageList = append(messageList, services.Message{Role: chunk.Role, Content: chunk.Value})
	}
	return append(messageList, services.Message{Role: role, Content: message})
}

// textRelay forwards each fragment to the client as soon as it arrives.
// Writes after a client disconnect fail silently at the transport layer; the
// exchange still runs to completion and is persisted.
func (h *OpenAIHandler) textRelay(c *gin.Context) services.FragmentFunc {
	return func(text string) {
		if !c.Writer.Written() {
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Status(http.StatusOK)
		}
		if _, err := c.Writer.WriteString(text); err != nil {
			return
		}
		c.Writer.Flush()
	}
}

// persistExchange writes the inbound chunk, then the outbound one. Both
// writes happen only after the model call fully resolved, so a model failure
// persists nothing.
func (h *OpenAIHandler) persistExchange(ctx context.Context, input *textConversationInput, reply string) error {
	err := h.conversations.CreateChunk(ctx, services.CreateChunkParams{
		ConversationID: input.ConversationID,
		Role:           input.Role,
		Value:          input.Message,
		Format:         models.ChunkFormatText,
	})
	if err != nil {
		return err
	}

	return h.conversations.CreateChunk(ctx, services.CreateChunkParams{
		ConversationID: input.ConversationID,
		Role:           services.Roles["ASSISTANT"],
		Value:          reply,
		Format:         models.ChunkFormatText,
	})
}

// closeStream terminates the plain-text stream. When the model produced no
// fragments at all, the empty 200 is still committed here.
func (h *OpenAIHandler) closeStream(c *gin.Context) {
	if !c.Writer.Written() {
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Status(http.StatusOK)
		c.Writer.WriteHeaderNow()
		return
	}
	c.Writer.Flush()
}

func (h *OpenAIHandler) respondWithSpeech(c *gin.Context, reply string) error {
	audio, err := h.openai.CreateSpeech(c.Request.Context(), reply)
	if err != nil {
		return err
	}

	c.Data(http.StatusOK, "audio/mpeg", audio)
	return nil
}
