package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aIcoder504/apbmt-2025-conference-system/config"
	"github.com/aIcoder504/apbmt-2025-conference-system/services"
)

// RequestIDKey is the gin context key holding the pipeline request id.
const RequestIDKey = "requestID"

// PipelineRecovery turns a panic in the status-update routes into a
// well-formed 200 ERROR body; clients of these routes branch on the body.
func PipelineRecovery(database string) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			requestID := c.GetString(RequestIDKey)
			config.Logger.Error().
				Str("request_id", requestID).
				Str("panic", fmt.Sprint(r)).
				Str("path", c.Request.URL.Path).
				Msg("recovered panic in status update route")

			resp := services.BuildErrorResponse(requestID, database, fmt.Sprintf("processing error: %v", r), time.Since(started))
			c.Header("X-Request-ID", requestID)
			c.Header("X-Operation-Status", resp.OperationStatus)
			c.Header("X-API-Version", services.APIVersion)
			c.AbortWithStatusJSON(http.StatusOK, resp)
		}()
		c.Next()
	}
}
