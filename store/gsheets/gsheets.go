// Package gsheets is the table backend for a Google Sheets spreadsheet.
package gsheets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and the service-account credentials.
// CredentialsJSON wins over CredentialsFile when both are set.
type Config struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
}

// Backend talks to one spreadsheet.
type Backend struct {
	svc           *sheets.Service
	spreadsheetID string
}

// New authenticates and returns a Backend. No request is made to the
// spreadsheet until the first call.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("gsheets: spreadsheet id is required")
	}
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	switch {
	case strings.HasPrefix(strings.TrimSpace(cfg.CredentialsJSON), "{"):
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsJSON != "":
		return nil, errors.New("gsheets: credentials json is not a JSON object")
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	return newBackend(ctx, cfg.SpreadsheetID, opts...)
}

func newBackend(ctx context.Context, id string, opts ...option.ClientOption) (*Backend, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gsheets: new service: %w", err)
	}
	return &Backend{svc: svc, spreadsheetID: id}, nil
}

func (b *Backend) Get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := b.svc.Spreadsheets.Values.Get(b.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (b *Backend) Update(ctx context.Context, rng string, values [][]any) error {
	vr := &sheets.ValueRange{Range: rng, Values: literal(values)}
	_, err := b.svc.Spreadsheets.Values.Update(b.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	return err
}

// literal copies values, prefixing text that USER_ENTERED would parse as a
// formula with an apostrophe. Sheets stores such cells as plain text and
// returns them without the apostrophe. Negative numbers are left alone.
func literal(values [][]any) [][]any {
	out := make([][]any, len(values))
	for i, row := range values {
		cells := make([]any, len(row))
		for j, v := range row {
			if s, ok := v.(string); ok && formulaLike(s) {
				v = "'" + s
			}
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}

func formulaLike(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case '=', '+', '@':
		return true
	case '-':
		_, err := strconv.ParseFloat(s, 64)
		return err != nil
	}
	return false
}

// Ping fetches the spreadsheet id only, which checks credentials and access.
func (b *Backend) Ping(ctx context.Context) error {
	_, err := b.svc.Spreadsheets.Get(b.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	return err
}
