// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file extracts the acting-user context every write must carry. Row
// metadata (createdByUserId / updatedByUserId) is stamped from this identity,
// so a mutating request without it is rejected up front with a structured
// validation error instead of failing deep inside the write path.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// actorIDKey is the Gin context key under which the acting user is stored.
	actorIDKey = "actorID"
	// HeaderActingUser carries the acting user's id on every write request.
	HeaderActingUser = "X-Acting-User-ID"
)

// ActorContext reads the acting-user header into the Gin context. The header
// is optional at this layer — read endpoints do not need it — but when
// present it must be UUID-shaped; a malformed value is rejected here so
// writes never reach a service with a corrupt actor identity.
func ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(HeaderActingUser))
		if actor != "" {
			if _, err := uuid.Parse(actor); err != nil {
				c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
					"errors": []gin.H{{
						"message":    "acting user id must be a UUID",
						"code":       "actor.invalid",
						"parameters": []gin.H{{"key": "actorId", "value": actor}},
					}},
				})
				return
			}
			c.Set(actorIDKey, actor)
		}
		c.Next()
	}
}

// ActorFrom returns the acting user id stored by ActorContext, or "" when
// the request carried none. Handlers for write endpoints treat "" as a
// validation failure.
func ActorFrom(c *gin.Context) string {
	if v, ok := c.Get(actorIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
