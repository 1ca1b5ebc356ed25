package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/numengames/numinia-conversations-api/apperrors"
	"github.com/numengames/numinia-conversations-api/db/models"
	"github.com/numengames/numinia-conversations-api/services"
)

// fakeStore is an in-memory conversation store keeping chunks in insertion
// order, mirroring the gateway's contract.
type fakeStore struct {
	conversations map[string]*models.Conversation
	chunks        map[string][]models.ConversationChunk

	createChunkErr error
	clock          time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		conversations: make(map[string]*models.Conversation),
		chunks:        make(map[string][]models.ConversationChunk),
		clock:         time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *fakeStore) addConversation(conversation *models.Conversation) {
	s.conversations[conversation.ConversationID] = conversation
}

func (s *fakeStore) GetByConversationID(_ context.Context, conversationID string) (*models.Conversation, error) {
	conversation, ok := s.conversations[conversationID]
	if !ok {
		return nil, apperrors.ConversationNotExist()
	}
	return conversation, nil
}

func (s *fakeStore) GetChunkList(_ context.Context, conversationID string) ([]models.ConversationChunk, error) {
	if _, ok := s.conversations[conversationID]; !ok {
		return nil, apperrors.ConversationNotExist()
	}
	return append([]models.ConversationChunk(nil), s.chunks[conversationID]...), nil
}

func (s *fakeStore) CreateConversation(_ context.Context, params services.CreateConversationParams) (*models.Conversation, error) {
	conversation := &models.Conversation{
		ConversationID: params.ConversationID,
		Name:           params.Name,
		Type:           params.Type,
		Origin:         params.Origin,
		Model:          params.Model,
		Assistant:      params.Assistant,
		WalletID:       params.WalletID,
		IsActive:       true,
		CreatedAt:      s.tick(),
		UpdatedAt:      s.clock,
	}
	s.conversations[params.ConversationID] = conversation
	return conversation, nil
}

func (s *fakeStore) CreateChunk(_ context.Context, params services.CreateChunkParams) error {
	if s.createChunkErr != nil {
		return s.createChunkErr
	}
	if _, ok := s.conversations[params.ConversationID]; !ok {
		return apperrors.ConversationNotExist()
	}
	s.chunks[params.ConversationID] = append(s.chunks[params.ConversationID], models.ConversationChunk{
		ConversationID: params.ConversationID,
		Role:           params.Role,
		Value:          params.Value,
		Format:         params.Format,
		CreatedAt:      s.tick(),
	})
	return nil
}

func (s *fakeStore) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

// fakeModel replays a scripted fragment stream and records how it was
// invoked.
type fakeModel struct {
	fragments []string
	err       error
	speech    []byte

	calls          int
	streamed       bool
	gotMessages    []services.Message
	gotAssistant   string
	speechRequests []string
}

func (m *fakeModel) produce(onFragment services.FragmentFunc) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}

	var reply string
	for _, fragment := range m.fragments {
		if fragment == "" {
			continue
		}
		reply += fragment
		if onFragment != nil {
			m.streamed = true
			onFragment(fragment)
		}
	}
	return reply, nil
}

func (m *fakeModel) SendMessage(_ context.Context, params services.SendMessageParams, onFragment services.FragmentFunc) (string, error) {
	m.gotMessages = params.Messages
	return m.produce(onFragment)
}

func (m *fakeModel) SendMessageToAssistant(_ context.Context, params services.AssistantMessageParams, onFragment services.FragmentFunc) (string, error) {
	m.gotMessages = params.Messages
	m.gotAssistant = params.Assistant
	return m.produce(onFragment)
}

func (m *fakeModel) CreateSpeech(_ context.Context, message string) ([]byte, error) {
	m.speechRequests = append(m.speechRequests, message)
	if m.speech == nil {
		return nil, apperrors.FailedDependency("no speech configured")
	}
	return m.speech, nil
}

func setupTestRouter(t *testing.T, store *fakeStore, model *fakeModel) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop().Sugar()

	router := gin.New()
	api := router.Group("/api/v1")

	NewConversationHandler(store, logger).RegisterRoutes(api.Group("/conversation"))
	NewOpenAIHandler(store, model, logger).RegisterRoutes(api.Group("/openai"))
	NewMonitHandler(logger).RegisterRoutes(api.Group("/monit"))

	return router
}

func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}

	req, err := http.NewRequest(method, path, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, data []byte, out any) {
	t.Helper()
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}
