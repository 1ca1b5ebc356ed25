package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/numengames/numinia-conversations-api/apperrors"
)

// handleError converts any error into the uniform JSON payload. When the
// response stream is already committed (partial text has been written), no
// structured payload can be delivered anymore; the error is only logged.
func handleError(c *gin.Context, logger *zap.SugaredLogger, err error) {
	appErr := apperrors.From(err)

	logger.Errorw(c.Request.URL.Path+" - error", "error", err, "statusCode", appErr.StatusCode)

	if c.Writer.Written() {
		c.Abort()
		return
	}

	c.JSON(appErr.StatusCode, appErr)
}
