package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Readiness reports whether the remote store answered its last probe.
type Readiness interface {
	Ready() bool
}

// HealthHandler serves GET /health.
type HealthHandler struct {
	store Readiness
	now   func() time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(store Readiness) *HealthHandler {
	return &HealthHandler{store: store, now: time.Now}
}

// Health always answers 200; "store" carries readiness.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"store":     h.store.Ready(),
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}
