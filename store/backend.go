package store

import (
	"context"
	"fmt"

	"github.com/villacheck/server/config"
	"github.com/villacheck/server/store/gsheets"
	"github.com/villacheck/server/store/memory"
	"github.com/villacheck/server/store/xlsx"
)

const (
	ModeSheets = "sheets"
	ModeXLSX   = "xlsx"
	ModeMemory = "memory"
)

// TableSpec names a table and its header row. Local backends create missing
// tables from it; the remote spreadsheet must already have them.
type TableSpec struct {
	Name   string
	Header []string
}

// OpenBackend returns the Backend for cfg.Mode.
func OpenBackend(ctx context.Context, cfg config.StoreConfig, tables ...TableSpec) (Backend, error) {
	switch cfg.Mode {
	case ModeSheets:
		return gsheets.New(ctx, gsheets.Config{
			SpreadsheetID:   cfg.SpreadsheetID,
			CredentialsJSON: cfg.CredentialsJSON,
			CredentialsFile: cfg.CredentialsFile,
		})
	case ModeXLSX:
		b, err := xlsx.Open(cfg.XLSXPath)
		if err != nil {
			return nil, err
		}
		for _, t := range tables {
			if err := b.EnsureTable(t.Name, t.Header...); err != nil {
				_ = b.Close()
				return nil, err
			}
		}
		return b, nil
	case ModeMemory:
		b := memory.New()
		for _, t := range tables {
			b.AddTable(t.Name, t.Header...)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("store: unknown mode %q", cfg.Mode)
	}
}
