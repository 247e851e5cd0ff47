// Package checkin records and lists guest check-ins.
package checkin

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"
	"strings"

	"github.com/villacheck/server/apperr"
	"github.com/villacheck/server/ident"
	"github.com/villacheck/server/model"
	"github.com/villacheck/server/rows"
	"github.com/villacheck/server/store"
	"go.uber.org/zap"
)

// Request is the body of a new check-in.
type Request struct {
	PropertyID      string `json:"property_id" validate:"required"`
	CheckInDate     string `json:"check_in_date" validate:"required"`
	CheckOutDate    string `json:"check_out_date" validate:"required"`
	GuestName       string `json:"guest_name" validate:"required"`
	NumberOfNights  string `json:"number_of_nights"`
	BookingPlatform string `json:"booking_platform"`
}

// UnmarshalJSON accepts the older camelCase names (propertyId, checkIn,
// checkOut, name, numberOfNights, bookingPlatform) and numbers for
// number_of_nights.
func (r *Request) UnmarshalJSON(data []byte) error {
	var w map[string]json.RawMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return apperr.Invalid("", "body must be a JSON object")
	}
	fields := []struct {
		dst   *string
		names []string
	}{
		{&r.PropertyID, []string{"property_id", "propertyId"}},
		{&r.CheckInDate, []string{"check_in_date", "checkIn"}},
		{&r.CheckOutDate, []string{"check_out_date", "checkOut"}},
		{&r.GuestName, []string{"guest_name", "name"}},
		{&r.NumberOfNights, []string{"number_of_nights", "numberOfNights"}},
		{&r.BookingPlatform, []string{"booking_platform", "bookingPlatform"}},
	}
	for _, f := range fields {
		for _, name := range f.names {
			raw := bytes.TrimSpace(w[name])
			if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
				continue
			}
			if raw[0] == '"' {
				if err := json.Unmarshal(raw, f.dst); err != nil {
					return apperr.Invalid(f.names[0], "must be text")
				}
			} else if raw[0] == '{' || raw[0] == '[' {
				return apperr.Invalid(f.names[0], "must be a scalar")
			} else {
				*f.dst = string(raw)
			}
			break
		}
	}
	return nil
}

func (r *Request) normalize() {
	for _, p := range []*string{&r.PropertyID, &r.CheckInDate, &r.CheckOutDate, &r.GuestName, &r.NumberOfNights, &r.BookingPlatform} {
		*p = strings.TrimSpace(*p)
	}
}

// Filter narrows List. Empty fields do not filter.
type Filter struct {
	PropertyID string
	// From keeps stays with check_in_date >= From.
	From string
	// To keeps stays with check_out_date <= To.
	To string
}

// Service creates and lists check-ins.
type Service struct {
	store  *store.Client
	ids    *ident.Generator
	table  string
	logger *zap.Logger
}

// NewService creates a Service over table.
func NewService(st *store.Client, ids *ident.Generator, table string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, ids: ids, table: table, logger: logger}
}

// Create appends one check-in and returns its ID. The ID scan and the append
// run under the table lock, so concurrent creations in one process get
// distinct sequence numbers.
func (s *Service) Create(ctx context.Context, req Request) (string, error) {
	req.normalize()
	if err := apperr.Validate(req); err != nil {
		return "", err
	}

	var id string
	err := s.store.Mutate(ctx, s.table, func(tx *store.Tx) error {
		grid, err := tx.Read(ctx, "A:A")
		if err != nil {
			return err
		}
		existing := make([]string, 0, len(grid))
		for _, rec := range rows.ToRecords(grid, 0) {
			existing = append(existing, rec.String("check_in_id"))
		}
		id = s.ids.NextCheckInID(existing)

		row := model.CheckIn{
			CheckInID:       id,
			PropertyID:      req.PropertyID,
			CheckInDate:     req.CheckInDate,
			CheckOutDate:    req.CheckOutDate,
			GuestName:       req.GuestName,
			NumberOfNights:  req.NumberOfNights,
			BookingPlatform: req.BookingPlatform,
		}.Row()
		_, err = tx.AppendOne(ctx, row)
		return err
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("check-in stored", zap.String("check_in_id", id), zap.String("property_id", req.PropertyID))
	return id, nil
}

// List returns stored check-ins matching f, latest check-in date first.
// Dates compare as text, so they must be ISO formatted.
func (s *Service) List(ctx context.Context, f Filter) ([]model.CheckIn, error) {
	grid, err := s.store.Read(ctx, s.table, "")
	if err != nil {
		return nil, err
	}
	f.PropertyID = strings.TrimSpace(f.PropertyID)
	f.From = strings.TrimSpace(f.From)
	f.To = strings.TrimSpace(f.To)

	out := []model.CheckIn{}
	for _, rec := range rows.ToRecords(grid, 0) {
		c := model.CheckInFromRecord(rec)
		if c.CheckInID == "" {
			continue
		}
		if f.PropertyID != "" && !model.SameProperty(c.PropertyID, f.PropertyID) {
			continue
		}
		if f.From != "" && (c.CheckInDate == "" || c.CheckInDate < f.From) {
			continue
		}
		if f.To != "" && (c.CheckOutDate == "" || c.CheckOutDate > f.To) {
			continue
		}
		out = append(out, c)
	}
	slices.SortStableFunc(out, func(a, b model.CheckIn) int {
		return strings.Compare(b.CheckInDate, a.CheckInDate)
	})
	return out, nil
}
