package model

import (
	"strings"

	"github.com/villacheck/server/rows"
)

// CheckIn is a guest stay. Written once.
type CheckIn struct {
	CheckInID       string `json:"check_in_id"`
	PropertyID      string `json:"property_id"`
	CheckInDate     string `json:"check_in_date"`
	CheckOutDate    string `json:"check_out_date"`
	GuestName       string `json:"guest_name"`
	NumberOfNights  string `json:"number_of_nights"`
	BookingPlatform string `json:"booking_platform"`
}

func (c CheckIn) Row() []any {
	return strs(c.CheckInID, c.PropertyID, c.CheckInDate, c.CheckOutDate,
		c.GuestName, c.NumberOfNights, c.BookingPlatform)
}

func CheckInFromRecord(r rows.Record) CheckIn {
	return CheckIn{
		CheckInID:       r.String("check_in_id"),
		PropertyID:      r.String("property_id"),
		CheckInDate:     r.String("check_in_date"),
		CheckOutDate:    r.String("check_out_date"),
		GuestName:       r.String("guest_name"),
		NumberOfNights:  r.String("number_of_nights"),
		BookingPlatform: r.String("booking_platform"),
	}
}

func equalFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// SameProperty compares property IDs the way every filter does: trimmed and
// case-insensitive.
func SameProperty(a, b string) bool {
	return equalFoldTrim(a, b)
}
