package rest

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/villacheck/server/audit"
	mw "github.com/villacheck/server/middleware"
)

// Auditor receives audit entries. *audit.Service implements it.
type Auditor interface {
	Log(entry audit.Entry)
}

type nopAuditor struct{}

func (nopAuditor) Log(audit.Entry) {}

func orNop(a Auditor) Auditor {
	if a == nil {
		return nopAuditor{}
	}
	return a
}

// auditEntry fills the request-scoped fields of an audit entry.
func auditEntry(c *gin.Context, action string, start time.Time) audit.Entry {
	e := audit.Entry{
		TraceID:    mw.GetTraceID(c),
		Action:     action,
		IP:         c.ClientIP(),
		DurationMs: int(time.Since(start).Milliseconds()),
	}
	if id, ok := mw.GetIdentity(c); ok {
		e.StaffID = id.StaffID
		e.Login = id.Login
	}
	return e
}
