package model

// Status values of a checklist entry.
const (
	StatusOK         = "OK"
	StatusMissing    = "Missing"
	StatusDamaged    = "Damaged"
	StatusNotChecked = "Not checked"
)

var statuses = []string{StatusOK, StatusMissing, StatusDamaged, StatusNotChecked}

// CanonicalStatus matches s case-insensitively against the known statuses.
func CanonicalStatus(s string) (string, bool) {
	for _, st := range statuses {
		if equalFoldTrim(s, st) {
			return st, true
		}
	}
	return "", false
}

// ChecklistRun is one sweep of a property. Written once.
type ChecklistRun struct {
	RunID       string `json:"run_id"`
	PropertyID  string `json:"property_id"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at"`
	PerformedBy string `json:"performed_by"`
}

func (r ChecklistRun) Row() []any {
	return strs(r.RunID, r.PropertyID, r.StartedAt, r.CompletedAt, r.PerformedBy)
}

// ChecklistLogEntry records the state of one item in a run.
type ChecklistLogEntry struct {
	EntryID    string `json:"entry_id"`
	PropertyID string `json:"property_id"`
	ItemID     string `json:"item_id"`
	RunID      string `json:"run_id"`
	CheckedAt  string `json:"checked_at"`
	ItemName   string `json:"item_name"`
	Status     string `json:"status"`
	QuantityOK string `json:"quantity_ok"`
	Notes      string `json:"notes"`
	CheckedBy  string `json:"checked_by"`
}

func (e ChecklistLogEntry) Row() []any {
	return strs(e.EntryID, e.PropertyID, e.ItemID, e.RunID, e.CheckedAt,
		e.ItemName, e.Status, e.QuantityOK, e.Notes, e.CheckedBy)
}
