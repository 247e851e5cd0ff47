// Package memory is an in-process table backend. It stores sparse grids per
// table and answers range reads the way the remote store does.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/villacheck/server/store/a1"
)

// FaultFn is consulted before every Get ("get") and Update ("update").
// A non-nil return aborts the call with that error.
type FaultFn func(op string, r a1.Range) error

// Backend is safe for concurrent use.
type Backend struct {
	mu     sync.RWMutex
	tables map[string][][]any
	fault  FaultFn
}

// New creates an empty Backend.
func New() *Backend {
	return &Backend{tables: make(map[string][][]any)}
}

// AddTable declares a table and writes its header row.
func (b *Backend) AddTable(name string, header ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var grid [][]any
	if len(header) > 0 {
		row := make([]any, len(header))
		for i, h := range header {
			row[i] = h
		}
		grid = append(grid, row)
	}
	b.tables[name] = grid
}

// SetFault installs (or clears, with nil) a fault hook.
func (b *Backend) SetFault(fn FaultFn) {
	b.mu.Lock()
	b.fault = fn
	b.mu.Unlock()
}

// Rows returns a copy of the full grid of a table, header included.
func (b *Backend) Rows(name string) [][]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	src := b.tables[name]
	out := make([][]any, len(src))
	for i, row := range src {
		out[i] = append([]any(nil), row...)
	}
	return out
}

func (b *Backend) Get(_ context.Context, rng string) ([][]any, error) {
	r, err := a1.ParseRange(rng)
	if err != nil {
		return nil, err
	}
	if err := b.checkFault("get", r); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	grid, ok := b.tables[r.Table]
	if !ok {
		return nil, fmt.Errorf("memory: unable to parse range: %s", rng)
	}
	return a1.Window(grid, r), nil
}

func (b *Backend) Update(_ context.Context, rng string, values [][]any) error {
	r, err := a1.ParseRange(rng)
	if err != nil {
		return err
	}
	if err := b.checkFault("update", r); err != nil {
		return err
	}
	if r.EndRow != 0 && len(values) > r.EndRow-r.StartRow+1 {
		return fmt.Errorf("memory: %d rows do not fit range %s", len(values), rng)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	grid, ok := b.tables[r.Table]
	if !ok {
		return fmt.Errorf("memory: unable to parse range: %s", rng)
	}
	for i, vals := range values {
		if len(vals) > r.EndCol-r.StartCol+1 {
			return fmt.Errorf("memory: row %d wider than range %s", i, rng)
		}
		rowIdx := r.StartRow - 1 + i
		for len(grid) <= rowIdx {
			grid = append(grid, nil)
		}
		row := grid[rowIdx]
		need := r.StartCol - 1 + len(vals)
		for len(row) < need {
			row = append(row, nil)
		}
		copy(row[r.StartCol-1:], vals)
		grid[rowIdx] = row
	}
	b.tables[r.Table] = grid
	return nil
}

// Ping always succeeds.
func (b *Backend) Ping(context.Context) error { return nil }

func (b *Backend) checkFault(op string, r a1.Range) error {
	b.mu.RLock()
	fn := b.fault
	b.mu.RUnlock()
	if fn == nil {
		return nil
	}
	return fn(op, r)
}
