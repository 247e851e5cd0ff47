package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records staff actions and write failures that need manual
// reconciliation.
type AuditLog struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID    string         `gorm:"index:idx_audit_trace;size:36" json:"trace_id"`
	StaffID    string         `gorm:"index:idx_audit_staff;size:64" json:"staff_id"`
	Login      string         `gorm:"size:64" json:"login"`
	Action     string         `gorm:"index:idx_audit_action;size:64;not null" json:"action"`
	PropertyID string         `gorm:"size:64" json:"property_id"`
	Subject    string         `gorm:"size:128" json:"subject"`
	Request    datatypes.JSON `json:"request"`
	Response   datatypes.JSON `json:"response"`
	Error      string         `gorm:"type:text" json:"error"`
	IP         string         `gorm:"size:45" json:"ip"`
	DurationMs int            `json:"duration_ms"`
	CreatedAt  time.Time      `gorm:"index:idx_audit_created;autoCreateTime:milli" json:"created_at"`
}
