package model

import (
	"strconv"
	"strings"

	"github.com/villacheck/server/rows"
)

// Property is a villa. Read-only.
type Property struct {
	PropertyID  string `json:"property_id"`
	DisplayName string `json:"display_name"`
	Notes       string `json:"notes"`
}

func PropertyFromRecord(r rows.Record) Property {
	return Property{
		PropertyID:  r.String("property_id"),
		DisplayName: r.String("display_name"),
		Notes:       r.String("notes"),
	}
}

// InventoryItem is one thing to check at a property. Read-only.
type InventoryItem struct {
	ItemID     string `json:"item_id"`
	PropertyID string `json:"property_id"`
	Category   string `json:"category"`
	Name       string `json:"name"`
	Quantity   string `json:"quantity"`
	Unit       string `json:"unit"`
	SortOrder  string `json:"sort_order"`
	IsActive   string `json:"is_active"`
}

// InventoryItemFromRecord also accepts the older "item_name" column.
func InventoryItemFromRecord(r rows.Record) InventoryItem {
	return InventoryItem{
		ItemID:     r.String("item_id"),
		PropertyID: r.String("property_id"),
		Category:   r.String("category"),
		Name:       r.First("name", "item_name"),
		Quantity:   r.String("quantity"),
		Unit:       r.String("unit"),
		SortOrder:  r.String("sort_order"),
		IsActive:   r.String("is_active"),
	}
}

// Active is false only for an explicit FALSE or 0.
func (i InventoryItem) Active() bool {
	v := strings.TrimSpace(i.IsActive)
	return !strings.EqualFold(v, "false") && v != "0"
}

// Order is sort_order as a number; blank or non-numeric values sort as 0.
func (i InventoryItem) Order() float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(i.SortOrder), 64)
	if err != nil {
		return 0
	}
	return f
}
