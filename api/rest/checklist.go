package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/villacheck/server/apperr"
	"github.com/villacheck/server/audit"
	"github.com/villacheck/server/checklist"
	mw "github.com/villacheck/server/middleware"
	"go.uber.org/zap"
)

// ChecklistHandler records checklist runs.
type ChecklistHandler struct {
	checklist *checklist.Service
	audit     Auditor
	timeout   time.Duration
	logger    *zap.Logger
}

// NewChecklistHandler creates a ChecklistHandler.
func NewChecklistHandler(svc *checklist.Service, a Auditor, timeout time.Duration, logger *zap.Logger) *ChecklistHandler {
	return &ChecklistHandler{checklist: svc, audit: orNop(a), timeout: timeout, logger: logger}
}

// Submit handles POST /api/check-runs. Requires Auth.
func (h *ChecklistHandler) Submit(c *gin.Context) {
	start := time.Now()
	id, _ := mw.GetIdentity(c)

	var sub checklist.Submission
	if err := bindJSON(c, &sub); err != nil {
		writeError(c, h.logger, err)
		return
	}

	ctx, cancel := storeContext(c, h.timeout)
	defer cancel()
	res, err := h.checklist.SubmitRun(ctx, id, sub)
	if err != nil {
		var pw *apperr.PartialWriteError
		if errors.As(err, &pw) {
			e := auditEntry(c, audit.ActionPartialWrite, start)
			e.PropertyID = pw.PropertyID
			e.Subject = pw.RunID
			e.Request = gin.H{"items": len(sub.Items)}
			e.Error = err.Error()
			h.audit.Log(e)
		}
		writeError(c, h.logger, err)
		return
	}

	e := auditEntry(c, audit.ActionChecklistSubmit, start)
	e.PropertyID = sub.PropertyID
	e.Subject = res.RunID
	e.Request = gin.H{"items": len(sub.Items)}
	e.Response = res
	h.audit.Log(e)

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"run_id":     res.RunID,
		"checked_at": res.CheckedAt,
		"entries":    res.Entries,
	})
}
