package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MonitHandler answers liveness probes.
type MonitHandler struct {
	logger *zap.SugaredLogger
}

func NewMonitHandler(logger *zap.SugaredLogger) *MonitHandler {
	return &MonitHandler{logger: logger}
}

func (h *MonitHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/health", h.GetHealthStatus)
}

func (h *MonitHandler) GetHealthStatus(c *gin.Context) {
	h.logger.Infow("health status OK")
	c.Status(http.StatusOK)
}
