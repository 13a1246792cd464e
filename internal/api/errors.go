package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dorm-allocation-backend/internal/allocation"
	"dorm-allocation-backend/internal/mw"
	"dorm-allocation-backend/internal/store"
)

const msgTryAgain = "service temporarily unavailable, try again"

func statusOf(kind allocation.Kind) int {
	switch kind {
	case allocation.KindValidation:
		return http.StatusBadRequest
	case allocation.KindNotFound:
		return http.StatusNotFound
	case allocation.KindConflict:
		return http.StatusConflict
	default:
		// Busy and internal failures applied nothing and may be retried.
		return http.StatusServiceUnavailable
	}
}

// abortWithEngineError writes the response for an error returned by the
// allocation engine.
func (h *Handler) abortWithEngineError(c *gin.Context, err error) {
	kind := allocation.KindOf(err)
	code := allocation.Code(err)

	if kind == allocation.KindInternal {
		h.log.Error("allocation failed",
			zap.String("request_id", mw.RequestIDFrom(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.AbortWithStatusJSON(statusOf(kind), gin.H{"error": msgTryAgain, "code": code})
		return
	}

	body := gin.H{"error": err.Error(), "code": code}
	var short *allocation.InsufficientBedsError
	if errors.As(err, &short) {
		body["requested"] = short.Requested
		body["available"] = short.Available
		body["shortfall"] = short.Shortfall()
	}
	c.AbortWithStatusJSON(statusOf(kind), body)
}

// abortWithStoreError handles errors from read-only store queries.
// notFoundCode is reported when the record does not exist.
func (h *Handler) abortWithStoreError(c *gin.Context, err error, notFoundCode string) {
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": notFoundCode})
		return
	}
	h.log.Error("query failed",
		zap.String("request_id", mw.RequestIDFrom(c)),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": msgTryAgain, "code": "internal"})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "code": "invalid_request"})
}
