package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/numengames/numinia-conversations-api/apperrors"
	"github.com/numengames/numinia-conversations-api/services"
)

type spaceEventNotifier interface {
	SendSpaceEvent(ctx context.Context, params services.SpaceEventParams) error
}

// DiscordHandler forwards space-entry events to the Discord webhook.
type DiscordHandler struct {
	discord spaceEventNotifier
	logger  *zap.SugaredLogger
}

func NewDiscordHandler(discord spaceEventNotifier, logger *zap.SugaredLogger) *DiscordHandler {
	return &DiscordHandler{discord: discord, logger: logger}
}

func (h *DiscordHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/text-message-webhook", h.SendWebhook)
}

type spaceEventRequest struct {
	Season    string `json:"season"`
	SpaceName string `json:"spaceName"`
	SpaceURL  string `json:"spaceUrl"`
	WalletID  string `json:"walletId"`
	UserName  string `json:"userName"`
}

func (h *DiscordHandler) SendWebhook(c *gin.Context) {
	var req spaceEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, h.logger, apperrors.BadData("invalid request payload").WithCause(err))
		return
	}

	season := strings.TrimSpace(req.Season)
	spaceName := strings.TrimSpace(req.SpaceName)
	spaceURL := strings.TrimSpace(req.SpaceURL)

	switch {
	case season == "":
		handleError(c, h.logger, apperrors.BadData("season is required"))
		return
	case spaceName == "":
		handleError(c, h.logger, apperrors.BadData("spaceName is required"))
		return
	case spaceURL == "":
		handleError(c, h.logger, apperrors.BadData("spaceUrl is required"))
		return
	}

	err := h.discord.SendSpaceEvent(c.Request.Context(), services.SpaceEventParams{
		Season:    season,
		SpaceName: spaceName,
		SpaceURL:  spaceURL,
		WalletID:  strings.TrimSpace(req.WalletID),
		UserName:  strings.TrimSpace(req.UserName),
	})
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}
