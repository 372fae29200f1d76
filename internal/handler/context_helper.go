package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/r2suporte/interalpha-api/internal/middleware"
	"github.com/r2suporte/interalpha-api/internal/models"
	"github.com/r2suporte/interalpha-api/internal/service"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func actorFromContext(c *gin.Context) service.Actor {
	actor := service.Actor{
		ID:        "anonymous",
		Kind:      models.ActorKindClient,
		IP:        c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
	if claims := claimsFromContext(c); claims != nil {
		actor.ID = claims.UserID
		if claims.Role != models.RoleClient {
			actor.Kind = models.ActorKindEmployee
		}
	}
	return actor
}

// parseTime parses an optional RFC3339 query value. Empty input and
// malformed input both yield nil; filters treat that as "not set".
func parseTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}
