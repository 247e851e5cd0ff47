package checklist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/villacheck/server/apperr"
)

// Item is one checked inventory item as submitted by a client.
type Item struct {
	ItemID     string `json:"item_id" validate:"required"`
	ItemName   string `json:"item_name"`
	Status     string `json:"status"`
	QuantityOK string `json:"quantity_ok"`
	Notes      string `json:"notes"`
}

// wireItem lists every spelling clients have used. Each pair collapses into
// one Item field in UnmarshalJSON.
type wireItem struct {
	ItemID      json.RawMessage `json:"item_id"`
	ItemIDAlt   json.RawMessage `json:"itemId"`
	ItemName    json.RawMessage `json:"item_name"`
	ItemNameAlt json.RawMessage `json:"itemName"`
	Status      json.RawMessage `json:"status"`
	QtyOK       json.RawMessage `json:"quantity_ok"`
	QtyOKAlt    json.RawMessage `json:"quantityOk"`
	Notes       json.RawMessage `json:"notes"`
}

// UnmarshalJSON accepts item_id/itemId, item_name/itemName and
// quantity_ok/quantityOk. Values may be any JSON scalar; they are stored as
// text. When both spellings are present itemId, item_name and quantityOk
// win.
func (it *Item) UnmarshalJSON(data []byte) error {
	var w wireItem
	if err := json.Unmarshal(data, &w); err != nil {
		return apperr.Invalid("items", "each item must be an object")
	}
	fields := []struct {
		dst  *string
		name string
		raw  []json.RawMessage
	}{
		{&it.ItemID, "item_id", []json.RawMessage{w.ItemIDAlt, w.ItemID}},
		{&it.ItemName, "item_name", []json.RawMessage{w.ItemName, w.ItemNameAlt}},
		{&it.Status, "status", []json.RawMessage{w.Status}},
		{&it.QuantityOK, "quantity_ok", []json.RawMessage{w.QtyOKAlt, w.QtyOK}},
		{&it.Notes, "notes", []json.RawMessage{w.Notes}},
	}
	for _, f := range fields {
		for _, raw := range f.raw {
			s, ok, err := scalar(raw)
			if err != nil {
				return apperr.Invalid(f.name, err.Error())
			}
			if ok {
				*f.dst = s
				break
			}
		}
	}
	return nil
}

// scalar renders a JSON string, number or boolean as text. Absent and null
// values report ok=false.
func scalar(raw json.RawMessage) (string, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false, nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, err
		}
		return s, true, nil
	case '{', '[':
		return "", false, fmt.Errorf("must be a scalar")
	default:
		// numbers and booleans keep their JSON spelling
		return string(raw), true, nil
	}
}

// Submission is the body of a checklist run.
type Submission struct {
	PropertyID string `json:"property_id" validate:"required"`
	Items      []Item `json:"items" validate:"required,min=1,dive"`
}

// UnmarshalJSON also accepts propertyId.
func (s *Submission) UnmarshalJSON(data []byte) error {
	var w struct {
		PropertyID    json.RawMessage `json:"property_id"`
		PropertyIDAlt json.RawMessage `json:"propertyId"`
		Items         json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return apperr.Invalid("", "body must be a JSON object")
	}
	for _, raw := range []json.RawMessage{w.PropertyID, w.PropertyIDAlt} {
		v, ok, err := scalar(raw)
		if err != nil {
			return apperr.Invalid("property_id", err.Error())
		}
		if ok {
			s.PropertyID = v
			break
		}
	}
	if len(bytes.TrimSpace(w.Items)) > 0 && !bytes.Equal(bytes.TrimSpace(w.Items), []byte("null")) {
		if bytes.TrimSpace(w.Items)[0] != '[' {
			return apperr.Invalid("items", "must be an array")
		}
		if err := json.Unmarshal(w.Items, &s.Items); err != nil {
			return err
		}
	}
	return nil
}

func (s *Submission) normalize() {
	s.PropertyID = strings.TrimSpace(s.PropertyID)
	for i := range s.Items {
		it := &s.Items[i]
		it.ItemID = strings.TrimSpace(it.ItemID)
		it.ItemName = strings.TrimSpace(it.ItemName)
		it.Status = strings.TrimSpace(it.Status)
		it.Notes = strings.TrimSpace(it.Notes)
	}
}
