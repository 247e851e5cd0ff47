package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/villacheck/server/audit"
	"github.com/villacheck/server/checkin"
	"go.uber.org/zap"
)

// CheckInHandler lists and creates guest check-ins.
type CheckInHandler struct {
	checkins *checkin.Service
	audit    Auditor
	timeout  time.Duration
	logger   *zap.Logger
}

// NewCheckInHandler creates a CheckInHandler.
func NewCheckInHandler(svc *checkin.Service, a Auditor, timeout time.Duration, logger *zap.Logger) *CheckInHandler {
	return &CheckInHandler{checkins: svc, audit: orNop(a), timeout: timeout, logger: logger}
}

// List handles GET /api/check-ins?property_id=&from=&to=.
func (h *CheckInHandler) List(c *gin.Context) {
	f := checkin.Filter{
		PropertyID: queryAlias(c, "property_id", "propertyId"),
		From:       c.Query("from"),
		To:         c.Query("to"),
	}
	ctx, cancel := storeContext(c, h.timeout)
	defer cancel()
	list, err := h.checkins.List(ctx, f)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Create handles POST /api/check-ins. Requires Auth.
func (h *CheckInHandler) Create(c *gin.Context) {
	start := time.Now()
	var req checkin.Request
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}

	ctx, cancel := storeContext(c, h.timeout)
	defer cancel()
	id, err := h.checkins.Create(ctx, req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	e := auditEntry(c, audit.ActionCheckInCreate, start)
	e.PropertyID = strings.TrimSpace(req.PropertyID)
	e.Subject = id
	e.Request = req
	h.audit.Log(e)

	c.JSON(http.StatusOK, gin.H{"ok": true, "check_in_id": id})
}
