package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/numengames/numinia-conversations-api/apperrors"
	"github.com/numengames/numinia-conversations-api/config"
)

// SpaceEventParams describes a user entering a space, forwarded verbatim to
// the Discord webhook.
type SpaceEventParams struct {
	Season    string
	SpaceName string
	SpaceURL  string
	WalletID  string
	UserName  string
}

// DiscordService posts event notifications to a configured webhook. It is a
// stateless fire-and-forget notifier with no orchestration logic.
type DiscordService struct {
	webhookURL string
	client     httpDoer
	logger     *zap.SugaredLogger
}

func NewDiscordService(cfg config.DiscordConfig, logger *zap.SugaredLogger) *DiscordService {
	return &DiscordService{
		webhookURL: cfg.WebhookURL,
		client:     newDefaultHTTPClient(15 * time.Second),
		logger:     logger,
	}
}

type discordWebhookPayload struct {
	Content string `json:"content"`
}

// SendSpaceEvent posts a formatted message about a space entry.
func (s *DiscordService) SendSpaceEvent(ctx context.Context, params SpaceEventParams) error {
	if s.webhookURL == "" {
		return errors.New("discord webhook url is not configured")
	}

	content := fmt.Sprintf(
		"An user enter the space: %s with a url: %s as a user with walletId: %s, userName: %s (season %s)",
		params.SpaceName, params.SpaceURL, params.WalletID, params.UserName, params.Season,
	)

	s.logger.Infow("sendSpaceEvent - forwarding event to discord",
		"spaceName", params.SpaceName, "season", params.Season)

	body, err := json.Marshal(discordWebhookPayload{Content: content})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := s.client.Do(request)
	if err != nil {
		return apperrors.FailedDependency("calling discord webhook: " + err.Error()).WithCause(err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(response.Body, 256))
		return apperrors.FailedDependency(fmt.Sprintf("discord webhook returned %d: %s", response.StatusCode, snippet))
	}

	return nil
}
