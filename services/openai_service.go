package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/numengames/numinia-conversations-api/apperrors"
	"github.com/numengames/numinia-conversations-api/config"
)

// Message is the transient {role, content} pair sent to the model provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SendMessageParams drives a direct chat-completion exchange.
type SendMessageParams struct {
	Messages    []Message
	Model       string
	Temperature string
}

// AssistantMessageParams drives an assistant-thread exchange. Assistant is an
// uppercase key into the static assistant table.
type AssistantMessageParams struct {
	Messages    []Message
	Assistant   string
	Temperature string
}

// FragmentFunc receives each non-empty text fragment as it arrives from the
// provider stream. A nil FragmentFunc switches the call to buffered mode:
// fragments are accumulated only and the final text is the sole output.
type FragmentFunc func(text string)

// OpenAIService normalizes the provider's two interaction styles (direct
// completion and assistant thread) behind one streaming contract. It holds a
// single authenticated HTTP client reused across requests and keeps no other
// state between calls.
type OpenAIService struct {
	baseURL      string
	apiKey       string
	defaultModel string
	client       httpDoer
	logger       *zap.SugaredLogger
}

func NewOpenAIService(cfg config.OpenAIConfig, logger *zap.SugaredLogger) *OpenAIService {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}

	model := strings.TrimSpace(cfg.DefaultModel)
	if model == "" {
		model = "gpt-4o"
	}

	return &OpenAIService{
		baseURL:      base,
		apiKey:       cfg.APIKey,
		defaultModel: model,
		client:       newDefaultHTTPClient(cfg.Timeout),
		logger:       logger,
	}
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream"`
}

type chatCompletionDelta struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// SendMessage streams a chat completion for the full message list. The
// accumulated reply is always returned; onFragment, when non-nil, receives
// every non-empty delta as soon as it is read off the wire.
func (s *OpenAIService) SendMessage(ctx context.Context, params SendMessageParams, onFragment FragmentFunc) (string, error) {
	model := strings.TrimSpace(params.Model)
	if model == "" {
		model = s.defaultModel
	}

	payload := chatCompletionRequest{
		Model:       model,
		Messages:    params.Messages,
		Temperature: resolveTemperature(params.Temperature),
		Stream:      true,
	}

	response, err := s.postJSON(ctx, "/chat/completions", payload, false)
	if err != nil {
		s.logger.Errorw("sendMessage - there is a problem sending a message", "error", err)
		return "", err
	}
	defer response.Body.Close()

	if err := s.checkResponse(response); err != nil {
		s.logger.Errorw("sendMessage - there is a problem sending a message", "error", err)
		return "", err
	}

	var message strings.Builder

	scanner := newSSEScanner(response.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var delta chatCompletionDelta
		if err := json.Unmarshal([]byte(data), &delta); err != nil {
			continue
		}

		if len(delta.Choices) == 0 {
			continue
		}

		fragment := delta.Choices[0].Delta.Content
		if fragment == "" {
			continue
		}

		message.WriteString(fragment)
		if onFragment != nil {
			onFragment(fragment)
		}
	}

	if err := scanner.Err(); err != nil {
		appErr := apperrors.FailedDependency("reading completion stream: " + err.Error()).WithCause(err)
		s.logger.Errorw("sendMessage - there is a problem sending a message", "error", err)
		return "", appErr
	}

	return message.String(), nil
}

type threadCreateRequest struct {
	Messages []Message `json:"messages"`
}

type threadCreateResponse struct {
	ID string `json:"id"`
}

type runCreateRequest struct {
	AssistantID string  `json:"assistant_id"`
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature,omitempty"`
}

type threadMessageDelta struct {
	Delta struct {
		Content []struct {
			Type string `json:"type"`
			Text struct {
				Value string `json:"value"`
			} `json:"text"`
		} `json:"content"`
	} `json:"delta"`
}

// SendMessageToAssistant seeds a fresh provider-side thread with the full
// message list, starts a streaming run against the named assistant and
// relays every message delta. Only thread.message.delta events carry text.
func (s *OpenAIService) SendMessageToAssistant(ctx context.Context, params AssistantMessageParams, onFragment FragmentFunc) (string, error) {
	assistant, ok := ResolveAssistant(params.Assistant)
	if !ok {
		return "", apperrors.BadData(fmt.Sprintf("unknown assistant %q", params.Assistant))
	}

	s.logger.Infow("sendMessageToAssistant - creating the thread")

	threadResp, err := s.postJSON(ctx, "/threads", threadCreateRequest{Messages: params.Messages}, true)
	if err != nil {
		s.logger.Errorw("sendMessageToAssistant - there is a problem sending a message", "error", err)
		return "", err
	}

	thread, err := decodeThread(threadResp)
	if err != nil {
		s.logger.Errorw("sendMessageToAssistant - there is a problem sending a message", "error", err)
		return "", err
	}

	s.logger.Infow("sendMessageToAssistant - trying to send a message to the assistant",
		"assistant", assistant.Name, "assistantId", assistant.OpenAIID)

	runPayload := runCreateRequest{
		AssistantID: assistant.OpenAIID,
		Stream:      true,
		Temperature: resolveTemperature(params.Temperature),
	}

	response, err := s.postJSON(ctx, "/threads/"+thread.ID+"/runs", runPayload, true)
	if err != nil {
		s.logger.Errorw("sendMessageToAssistant - there is a problem sending a message", "error", err)
		return "", err
	}
	defer response.Body.Close()

	if err := s.checkResponse(response); err != nil {
		s.logger.Errorw("sendMessageToAssistant - there is a problem sending a message", "error", err)
		return "", err
	}

	var message strings.Builder
	var event string

	scanner := newSSEScanner(response.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" || event != "thread.message.delta" {
				continue
			}

			var delta threadMessageDelta
			if err := json.Unmarshal([]byte(data), &delta); err != nil {
				continue
			}

			if len(delta.Delta.Content) == 0 {
				continue
			}

			fragment := delta.Delta.Content[0].Text.Value
			if fragment == "" {
				continue
			}

			message.WriteString(fragment)
			if onFragment != nil {
				onFragment(fragment)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		appErr := apperrors.FailedDependency("reading run stream: " + err.Error()).WithCause(err)
		s.logger.Errorw("sendMessageToAssistant - there is a problem sending a message", "error", err)
		return "", appErr
	}

	return message.String(), nil
}

type speechRequest struct {
	Model string `json:"model"`
	Voice string `json:"voice"`
	Input string `json:"input"`
}

// CreateSpeech synthesises the given text and returns the raw audio bytes.
// Used by the voice endpoints once the buffered reply is complete.
func (s *OpenAIService) CreateSpeech(ctx context.Context, message string) ([]byte, error) {
	payload := speechRequest{
		Model: "tts-1",
		Voice: "alloy",
		Input: message,
	}

	response, err := s.postJSON(ctx, "/audio/speech", payload, false)
	if err != nil {
		s.logger.Errorw("createSpeech - there is a problem synthesising the message", "error", err)
		return nil, err
	}
	defer response.Body.Close()

	if err := s.checkResponse(response); err != nil {
		s.logger.Errorw("createSpeech - there is a problem synthesising the message", "error", err)
		return nil, err
	}

	audio, err := io.ReadAll(response.Body)
	if err != nil {
		appErr := apperrors.FailedDependency("reading audio response: " + err.Error()).WithCause(err)
		s.logger.Errorw("createSpeech - there is a problem synthesising the message", "error", err)
		return nil, appErr
	}

	return audio, nil
}

func (s *OpenAIService) postJSON(ctx context.Context, path string, payload any, beta bool) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	request.Header.Set("Authorization", "Bearer "+s.apiKey)
	request.Header.Set("Content-Type", "application/json")
	if beta {
		request.Header.Set("OpenAI-Beta", "assistants=v2")
	}

	response, err := s.client.Do(request)
	if err != nil {
		return nil, apperrors.FailedDependency("calling openai: " + err.Error()).WithCause(err)
	}

	return response, nil
}

// checkResponse consumes the body on non-2xx statuses and classifies the
// failure as an upstream-dependency error.
func (s *OpenAIService) checkResponse(response *http.Response) error {
	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(response.Body)
	return buildOpenAIAPIError(response.StatusCode, body)
}

func decodeThread(response *http.Response) (*threadCreateResponse, error) {
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		body, _ := io.ReadAll(response.Body)
		return nil, buildOpenAIAPIError(response.StatusCode, body)
	}

	var thread threadCreateResponse
	if err := json.NewDecoder(response.Body).Decode(&thread); err != nil {
		return nil, apperrors.FailedDependency("decoding thread response: " + err.Error()).WithCause(err)
	}

	if thread.ID == "" {
		return nil, apperrors.FailedDependency("thread response contained no id")
	}

	return &thread, nil
}

func newSSEScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return scanner
}
