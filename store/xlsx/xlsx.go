// Package xlsx backs the table client with a local workbook, one worksheet
// per table. It is meant for development and demos without a remote store.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/villacheck/server/store/a1"
	"github.com/xuri/excelize/v2"
)

var errClosed = errors.New("xlsx: workbook closed")

// Backend serializes all access to the workbook and saves after each update.
type Backend struct {
	mu   sync.Mutex
	path string
	f    *excelize.File
}

// Open loads the workbook at path, or starts a new one if it does not exist.
func Open(path string) (*Backend, error) {
	var f *excelize.File
	if _, err := os.Stat(path); err == nil {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("xlsx: open %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		f = excelize.NewFile()
	} else {
		return nil, fmt.Errorf("xlsx: stat %s: %w", path, err)
	}
	return &Backend{path: path, f: f}, nil
}

// EnsureTable creates the worksheet with the given header if it is missing.
// Existing worksheets are left untouched.
func (b *Backend) EnsureTable(name string, header ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if idx, _ := b.f.GetSheetIndex(name); idx >= 0 {
		return nil
	}
	if _, err := b.f.NewSheet(name); err != nil {
		return fmt.Errorf("xlsx: new sheet %s: %w", name, err)
	}
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := b.f.SetSheetRow(name, "A1", &row); err != nil {
		return fmt.Errorf("xlsx: header %s: %w", name, err)
	}
	return b.f.SaveAs(b.path)
}

func (b *Backend) Get(_ context.Context, rng string) ([][]any, error) {
	r, err := a1.ParseRange(rng)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.f == nil {
		return nil, errClosed
	}
	if idx, _ := b.f.GetSheetIndex(r.Table); idx < 0 {
		return nil, fmt.Errorf("xlsx: unable to parse range: %s", rng)
	}
	raw, err := b.f.GetRows(r.Table)
	if err != nil {
		return nil, fmt.Errorf("xlsx: read %s: %w", r.Table, err)
	}
	grid := make([][]any, len(raw))
	for i, row := range raw {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		grid[i] = cells
	}
	return a1.Window(grid, r), nil
}

func (b *Backend) Update(_ context.Context, rng string, values [][]any) error {
	r, err := a1.ParseRange(rng)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.f == nil {
		return errClosed
	}
	if idx, _ := b.f.GetSheetIndex(r.Table); idx < 0 {
		return fmt.Errorf("xlsx: unable to parse range: %s", rng)
	}
	for i, vals := range values {
		cell, err := excelize.CoordinatesToCellName(r.StartCol, r.StartRow+i)
		if err != nil {
			return fmt.Errorf("xlsx: %w", err)
		}
		row := vals
		if err := b.f.SetSheetRow(r.Table, cell, &row); err != nil {
			return fmt.Errorf("xlsx: write %s: %w", cell, err)
		}
	}
	if err := b.f.SaveAs(b.path); err != nil {
		return fmt.Errorf("xlsx: save %s: %w", b.path, err)
	}
	return nil
}

// Ping reports whether the workbook is open.
func (b *Backend) Ping(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.f == nil {
		return errClosed
	}
	return nil
}

// Close releases the workbook.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.f == nil {
		return nil
	}
	err := b.f.Close()
	b.f = nil
	return err
}
