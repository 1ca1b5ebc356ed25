package services

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/numengames/numinia-conversations-api/apperrors"
)

const defaultOpenAIHTTPTimeout = 120 * time.Second

type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

type openaiAPIError struct {
	Code    string `json:"code,omitempty"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}

type openaiErrorEnvelope struct {
	Error *openaiAPIError `json:"error,omitempty"`
}

func newDefaultHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultOpenAIHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

func decodeOpenAIError(body []byte) *openaiAPIError {
	if len(body) == 0 {
		return nil
	}

	var envelope openaiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}

	if envelope.Error == nil {
		return nil
	}

	envelope.Error.Message = strings.TrimSpace(envelope.Error.Message)
	return envelope.Error
}

// buildOpenAIAPIError maps an upstream non-2xx response onto the failed
// dependency kind, threading the provider's error code when present.
func buildOpenAIAPIError(statusCode int, body []byte) *apperrors.Error {
	if apiErr := decodeOpenAIError(body); apiErr != nil {
		message := apiErr.Message
		if message == "" {
			message = http.StatusText(statusCode)
		}

		appErr := apperrors.FailedDependency(message)
		if apiErr.Code != "" {
			appErr = appErr.WithErrorCode(apiErr.Code)
		} else if apiErr.Type != "" {
			appErr = appErr.WithErrorCode(apiErr.Type)
		}
		return appErr
	}

	snippet := strings.TrimSpace(string(body))
	if snippet == "" {
		snippet = http.StatusText(statusCode)
	}
	if len(snippet) > 256 {
		snippet = snippet[:256]
	}

	return apperrors.FailedDependency(snippet)
}
