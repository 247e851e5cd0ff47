package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/villacheck/server/apperr"
	mw "github.com/villacheck/server/middleware"
	"go.uber.org/zap"
)

// writeError maps a service error onto the response and returns the status
// it wrote. Store details only go to the log.
func writeError(c *gin.Context, logger *zap.Logger, err error) int {
	var (
		ve *apperr.ValidationError
		ae *apperr.AuthError
		pw *apperr.PartialWriteError
	)
	traceID := zap.String("trace_id", mw.GetTraceID(c))
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
		return http.StatusBadRequest
	case errors.As(err, &ae):
		c.JSON(http.StatusUnauthorized, gin.H{"error": ae.Reason})
		return http.StatusUnauthorized
	// PartialWriteError also matches ErrStoreUnavailable.
	case errors.As(err, &pw):
		logger.Error("checklist run written without log entries",
			zap.String("run_id", pw.RunID),
			zap.String("property_id", pw.PropertyID),
			zap.Error(err), traceID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "partial write", "run_id": pw.RunID})
		return http.StatusInternalServerError
	case errors.Is(err, apperr.ErrStoreUnavailable):
		logger.Warn("store unavailable", zap.Error(err), traceID)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		return http.StatusServiceUnavailable
	default:
		logger.Error("request failed", zap.Error(err), traceID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return http.StatusInternalServerError
	}
}

// bindJSON decodes the request body into v with encoding/json so custom
// UnmarshalJSON errors reach writeError unchanged.
func bindJSON(c *gin.Context, v any) error {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		return apperr.Invalid("", "unreadable body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			return ve
		}
		return apperr.Invalid("", "malformed JSON body")
	}
	return nil
}

// storeContext bounds the store work of one request. A zero timeout leaves
// the request context as is.
func storeContext(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

// queryAlias returns the first non-empty query parameter among names.
func queryAlias(c *gin.Context, names ...string) string {
	for _, n := range names {
		if v := c.Query(n); v != "" {
			return v
		}
	}
	return ""
}
