package model

import (
	"github.com/villacheck/server/config"
	"github.com/villacheck/server/store"
)

// Header rows. Writes are positional: Row() methods emit cells in exactly
// this order.
var (
	PropertiesHeader    = []string{"property_id", "display_name", "notes"}
	InventoryHeader     = []string{"item_id", "property_id", "category", "name", "quantity", "unit", "sort_order", "is_active"}
	ChecklistRunsHeader = []string{"run_id", "property_id", "started_at", "completed_at", "performed_by"}
	ChecklistLogHeader  = []string{"entry_id", "property_id", "item_id", "run_id", "checked_at", "item_name", "status", "quantity_ok", "notes", "checked_by"}
	CheckInsHeader      = []string{"check_in_id", "property_id", "check_in_date", "check_out_date", "guest_name", "number_of_nights", "booking_platform"}
	StaffHeader         = []string{"staff_id", "name", "login", "password"}
)

// TableSpecs pairs the configured table names with their headers.
func TableSpecs(t config.TablesConfig) []store.TableSpec {
	return []store.TableSpec{
		{Name: t.Properties, Header: PropertiesHeader},
		{Name: t.Inventory, Header: InventoryHeader},
		{Name: t.ChecklistRuns, Header: ChecklistRunsHeader},
		{Name: t.ChecklistLog, Header: ChecklistLogHeader},
		{Name: t.CheckIns, Header: CheckInsHeader},
		{Name: t.Staff, Header: StaffHeader},
	}
}

func strs(vals ...string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
