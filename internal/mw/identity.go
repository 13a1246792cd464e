package mw

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderActorID   = "X-Actor-ID"

	requestIDKey = "mw.request_id"
	actorIDKey   = "mw.actor_id"
)

// RequestID tags every request with an id, reusing the caller's X-Request-ID
// when it is a valid UUID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestIDFrom returns the id set by RequestID, or "".
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Actor requires a positive numeric X-Actor-ID header identifying the
// operator performing a mutation.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader(HeaderActorID), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid " + HeaderActorID, "code": "unauthorized"})
			return
		}
		c.Set(actorIDKey, id)
		c.Next()
	}
}

// ActorIDFrom returns the id set by Actor, or 0.
func ActorIDFrom(c *gin.Context) int64 {
	return c.GetInt64(actorIDKey)
}
