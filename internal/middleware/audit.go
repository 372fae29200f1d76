package middleware

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/r2suporte/interalpha-api/internal/models"
	"github.com/r2suporte/interalpha-api/internal/service"
)

// Audit creates a middleware that records an audit entry after successful
// requests. Failed requests (4xx/5xx) are recorded with a failure result
// so denied attempts stay visible.
func Audit(audit *service.AuditService, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		actorID := "anonymous"
		actorKind := models.ActorKindClient
		if claimsValue, ok := c.Get(ContextUserKey); ok {
			claims := claimsValue.(*models.JWTClaims)
			actorID = claims.UserID
			if claims.Role != models.RoleClient {
				actorKind = models.ActorKindEmployee
			}
		}

		result := models.AuditResultSuccess
		var reason *string
		if c.Writer.Status() >= 400 {
			result = models.AuditResultFailure
			msg := c.Errors.String()
			if msg == "" {
				msg = "request failed"
			}
			reason = &msg
		}

		metadata, _ := json.Marshal(map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
		})

		var resourceID *string
		if id := c.Param("id"); id != "" {
			resourceID = &id
		}

		_, _ = audit.LogAction(c.Request.Context(), &models.AuditEntry{
			ActorID:    actorID,
			ActorKind:  actorKind,
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID,
			Result:     result,
			Reason:     reason,
			IPAddress:  c.ClientIP(),
			UserAgent:  c.GetHeader("User-Agent"),
			Metadata:   metadata,
		})
	}
}
