package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/numengames/numinia-conversations-api/apperrors"
	"github.com/numengames/numinia-conversations-api/db/models"
)

func TestHandleTextConversationStreamsAndPersists(t *testing.T) {
	store := newFakeStore()
	store.addConversation(&models.Conversation{ConversationID: "conv-1", Name: "test", Model: "gpt-4o"})

	for _, seed := range []struct{ role, value string }{
		{"user", "Hello"},
		{"assistant", "Hi! How can I help?"},
	} {
		store.chunks["conv-1"] = append(store.chunks["conv-1"], models.ConversationChunk{
			ConversationID: "conv-1", Role: seed.role, Value: seed.value, Format: models.ChunkFormatText, CreatedAt: store.tick(),
		})
	}

	model := &fakeModel{fragments: []string{"Hi ", "there"}}
	router := setupTestRouter(t, store, model)

	w := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPost, "/api/v1/openai/conversation/text/conv-1", gin.H{
		"role": "USER", "message": "Can you say hi?",
	})
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != "Hi there" {
		t.Fatalf("expected streamed body %q, got %q", "Hi there", got)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}

	if !model.streamed {
		t.Fatal("expected fragments to be relayed while streaming")
	}
	if len(model.gotMessages) != 3 {
		t.Fatalf("expected 3 projected messages, got %d", len(model.gotMessages))
	}
	last := model.gotMessages[2]
	if last.Role != "user" || last.Content != "Can you say hi?" {
		t.Fatalf("expected new input as final message, got %+v", last)
	}

	chunks := store.chunks["conv-1"]
	if len(chunks) != 4 {
		t.Fatalf("expected 4 stored chunks, got %d", len(chunks))
	}
	inbound, outbound := chunks[2], chunks[3]
	if inbound.Role != "user" || inbound.Value != "Can you say hi?" {
		t.Fatalf("unexpected inbound chunk %+v", inbound)
	}
	if outbound.Role != "assistant" || outbound.Value != "Hi there" {
		t.Fatalf("unexpected outbound chunk %+v", outbound)
	}
	if !inbound.CreatedAt.Before(outbound.CreatedAt) {
		t.Fatal("inbound chunk must be persisted before outbound chunk")
	}
}

func TestHandleTextConversationValidation(t *testing.T) {
	tests := []struct {
		name string
		body gin.H
	}{
		{"missing role", gin.H{"message": "hello"}},
		{"unknown role", gin.H{"role": "ROBOT", "message": "hello"}},
		{"missing message", gin.H{"role": "USER"}},
		{"blank message", gin.H{"role": "USER", "message": "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.addConversation(&models.Conversation{ConversationID: "conv-1", Model: "gpt-4o"})
			model := &fakeModel{fragments: []string{"unused"}}
			router := setupTestRouter(t, store, model)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/api/v1/openai/conversation/text/conv-1", tt.body))

			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
			}
			if model.calls != 0 {
				t.Fatal("model must not be invoked on invalid input")
			}
			if len(store.chunks["conv-1"]) != 0 {
				t.Fatal("no chunks may be persisted on invalid input")
			}

			var payload map[string]any
			decodeBody(t, w.Body.Bytes(), &payload)
			if payload["statusCode"] != float64(http.StatusUnprocessableEntity) {
				t.Fatalf("unexpected error payload: %v", payload)
			}
		})
	}
}

func TestHandleTextConversationUnknownConversation(t *testing.T) {
	store := newFakeStore()
	model := &fakeModel{fragments: []string{"unused"}}
	router := setupTestRouter(t, store, model)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/api/v1/openai/conversation/text/nope", gin.H{
		"role": "USER", "message": "hello",
	}))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
	if model.calls != 0 {
		t.Fatal("model must not be invoked when the conversation does not exist")
	}

	var payload map[string]any
	decodeBody(t, w.Body.Bytes(), &payload)
	if payload["message"] != "conversation does not exist" {
		t.Fatalf("unexpected error payload: %v", payload)
	}
}

func TestHandleTextConversationModelFailurePersistsNothing(t *testing.T) {
	store := newFakeStore()
	store.addConversation(&models.Conversation{ConversationID: "conv-1", Model: "gpt-4o"})
	model := &fakeModel{err: apperrors.FailedDependency("chat completion request failed")}
	router := setupTestRouter(t, store, model)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/api/v1/openai/conversation/text/conv-1", gin.H{
		"role": "USER", "message": "hello",
	}))

	if w.Code != http.StatusFailedDependency {
		t.Fatalf("expected 424, got %d: %s", w.Code, w.Body.String())
	}
	if len(store.chunks["conv-1"]) != 0 {
		t.Fatal("no chunks may be persisted when the model call fails")
	}

	var payload map[string]any
	decodeBody(t, w.Body.Bytes(), &payload)
	if payload["error"] != "Failed Dependency" {
		t.Fatalf("unexpected error payload: %v", payload)
	}
}

func TestHandleAssistantTextConversation(t *testing.T) {
	store := newFakeStore()
	store.addConversation(&models.Conversation{
		ConversationID: "conv-1",
		Assistant:      &models.ConversationAssistant{ID: "a-1", Name: "boba"},
	})
	model := &fakeModel{fragments: []string{"Greetings ", "traveller"}}
	router := setupTestRouter(t, store, model)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/api/v1/openai/conversation/assistant/text/conv-1", gin.H{
		"role": "user", "message": "Who are you?",
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != "Greetings traveller" {
		t.Fatalf("unexpected body %q", got)
	}
	if model.gotAssistant != "BOBA" {
		t.Fatalf("expected assistant key BOBA, got %q", model.gotAssistant)
	}

	chunks := store.chunks["conv-1"]
	if len(chunks) != 2 {
		t.Fatalf("expected 2 stored chunks, got %d", len(chunks))
	}
	if chunks[1].Value != "Greetings traveller" {
		t.Fatalf("unexpected outbound chunk %+v", chunks[1])
	}
}

func TestHandleAssistantTextConversationWithoutAssistant(t *testing.T) {
	tests := []struct {
		name      string
		assistant *models.ConversationAssistant
	}{
		{"no assistant bound", nil},
		{"unknown assistant", &models.ConversationAssistant{Name: "NOBODY"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.addConversation(&models.Conversation{ConversationID: "conv-1", Assistant: tt.assistant})
			model := &fakeModel{fragments: []string{"unused"}}
			router := setupTestRouter(t, store, model)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/api/v1/openai/conversation/assistant/text/conv-1", gin.H{
				"role": "USER", "message": "hello",
			}))

			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
			}
			if model.calls != 0 {
				t.Fatal("model must not be invoked for an unresolved assistant")
			}
		})
	}
}

func TestHandleVoiceConversationBuffersReply(t *testing.T) {
	store := newFakeStore()
	store.addConversation(&models.Conversation{ConversationID: "conv-1", Model: "gpt-4o"})
	model := &fakeModel{
		fragments: []string{"Hi ", "there"},
		speech:    []byte("mp3-bytes"),
	}
	router := setupTestRouter(t, store, model)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/api/v1/openai/conversation/voice/conv-1", gin.H{
		"role": "USER", "message": "Say hi",
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if got := w.Body.String(); got != "mp3-bytes" {
		t.Fatalf("unexpected audio body %q", got)
	}
	if model.streamed {
		t.Fatal("voice mode must buffer the reply instead of relaying fragments")
	}
	if len(model.speechRequests) != 1 || model.speechRequests[0] != "Hi there" {
		t.Fatalf("expected speech synthesis of the full reply, got %v", model.speechRequests)
	}
	if len(store.chunks["conv-1"]) != 2 {
		t.Fatalf("expected 2 stored chunks, got %d", len(store.chunks["conv-1"]))
	}
}

func TestHandleTextConversationChunkWriteFailureAfterStream(t *testing.T) {
	store := newFakeStore()
	store.addConversation(&models.Conversation{ConversationID: "conv-1", Model: "gpt-4o"})
	store.createChunkErr = errors.New("write conflict")
	model := &fakeModel{fragments: []string{"Hi ", "there"}}
	router := setupTestRouter(t, store, model)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/api/v1/openai/conversation/text/conv-1", gin.H{
		"role": "USER", "message": "Can you say hi?",
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("committed status must survive a store failure, got %d", w.Code)
	}
	if got := w.Body.String(); got != "Hi there" {
		t.Fatalf("streamed bytes must survive a store failure, got %q", got)
	}
	if len(store.chunks["conv-1"]) != 0 {
		t.Fatalf("expected no stored chunks, got %d", len(store.chunks["conv-1"]))
	}
}

func TestHandleVoiceConversationChunkWriteFailure(t *testing.T) {
	store := newFakeStore()
	store.addConversation(&models.Conversation{ConversationID: "conv-1", Model: "gpt-4o"})
	store.createChunkErr = errors.New("write conflict")
	model := &fakeModel{
		fragments: []string{"Hi ", "there"},
		speech:    []byte("mp3-bytes"),
	}
	router := setupTestRouter(t, store, model)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/api/v1/openai/conversation/voice/conv-1", gin.H{
		"role": "USER", "message": "Say hi",
	}))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
	}
	if len(model.speechRequests) != 0 {
		t.Fatal("speech must not be synthesised when persistence fails")
	}

	var payload map[string]any
	decodeBody(t, w.Body.Bytes(), &payload)
	if payload["statusCode"] != float64(http.StatusInternalServerError) {
		t.Fatalf("unexpected error payload: %v", payload)
	}
	if payload["message"] != "An internal server error occurred" {
		t.Fatalf("internal details must not leak, got %v", payload)
	}
}

func TestHandleTextConversationEmptyReplyStillCommits(t *testing.T) {
	store := newFakeStore()
	store.addConversation(&models.Conversation{ConversationID: "conv-1", Model: "gpt-4o"})
	model := &fakeModel{}
	router := setupTestRouter(t, store, model)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/api/v1/openai/conversation/text/conv-1", gin.H{
		"role": "USER", "message": "hello",
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on empty reply, got %d", w.Code)
	}
	chunks := store.chunks["conv-1"]
	if len(chunks) != 2 || chunks[1].Value != "" {
		t.Fatalf("expected empty outbound chunk to be persisted, got %+v", chunks)
	}
}
