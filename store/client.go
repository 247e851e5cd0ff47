// Package store is the table client: range reads and header-aware appends
// on top of a range-addressed backend that has no transactions.
package store

import (
	"context"

	"github.com/villacheck/server/apperr"
	"github.com/villacheck/server/lock"
	"github.com/villacheck/server/store/a1"
	"go.uber.org/zap"
)

// DefaultCells is the range read when none is given.
const DefaultCells = "A:Z"

// Backend is the remote store seen as a black box.
type Backend interface {
	Get(ctx context.Context, rng string) ([][]any, error)
	Update(ctx context.Context, rng string, values [][]any) error
	Ping(ctx context.Context) error
}

// Client adds table addressing, append-row computation and per-table
// locking to a Backend.
//
// An append reads column A to find the first free row and then writes
// there. Two appends that interleave between those steps would pick the same
// row, so every append runs under the table's lock. With a local Locker this
// only holds inside one process.
type Client struct {
	backend Backend
	locker  lock.Locker
	logger  *zap.Logger
}

// NewClient creates a Client. A nil locker disables locking.
func NewClient(b Backend, l lock.Locker, logger *zap.Logger) *Client {
	if l == nil {
		l = lock.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{backend: b, locker: l, logger: logger}
}

// Read returns the raw cells of table in cells (A1 without the table part).
func (c *Client) Read(ctx context.Context, table, cells string) ([][]any, error) {
	if cells == "" {
		cells = DefaultCells
	}
	grid, err := c.backend.Get(ctx, a1.Ref(table, cells))
	if err != nil {
		return nil, &apperr.StoreError{Op: "read", Table: table, Err: err}
	}
	return grid, nil
}

// AppendOne writes row after the last used row and returns its 1-based index.
func (c *Client) AppendOne(ctx context.Context, table string, row []any) (int, error) {
	var at int
	err := c.Mutate(ctx, table, func(tx *Tx) error {
		var err error
		at, err = tx.AppendOne(ctx, row)
		return err
	})
	return at, err
}

// AppendMany writes rows as one contiguous block and returns the index of the
// first one.
func (c *Client) AppendMany(ctx context.Context, table string, rows [][]any) (int, error) {
	var at int
	err := c.Mutate(ctx, table, func(tx *Tx) error {
		var err error
		at, err = tx.AppendMany(ctx, rows)
		return err
	})
	return at, err
}

// Mutate runs fn while holding the lock of table. Reads and appends that
// must not interleave with other writers (ID scans, for instance) go
// through the Tx.
func (c *Client) Mutate(ctx context.Context, table string, fn func(tx *Tx) error) error {
	release, err := c.locker.Acquire(ctx, "table:"+table)
	if err != nil {
		return &apperr.StoreError{Op: "lock", Table: table, Err: err}
	}
	defer release()
	return fn(&Tx{c: c, table: table})
}

// Ping checks that the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.backend.Ping(ctx); err != nil {
		return &apperr.StoreError{Op: "ping", Err: err}
	}
	return nil
}

// Tx is the view of one table handed to a Mutate callback. Its methods do
// not lock.
type Tx struct {
	c     *Client
	table string
}

// Read reads cells of the locked table.
func (tx *Tx) Read(ctx context.Context, cells string) ([][]any, error) {
	return tx.c.Read(ctx, tx.table, cells)
}

// AppendOne is Client.AppendOne without locking.
func (tx *Tx) AppendOne(ctx context.Context, row []any) (int, error) {
	return tx.AppendMany(ctx, [][]any{row})
}

// AppendMany is Client.AppendMany without locking.
func (tx *Tx) AppendMany(ctx context.Context, rows [][]any) (int, error) {
	if len(rows) == 0 {
		return 0, apperr.Invalid("rows", "nothing to append")
	}
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	if width == 0 {
		return 0, apperr.Invalid("rows", "rows have no cells")
	}

	start, err := tx.nextRow(ctx)
	if err != nil {
		return 0, err
	}
	rng := a1.Ref(tx.table, a1.Block(start, len(rows), width))
	if err := tx.c.backend.Update(ctx, rng, rows); err != nil {
		return 0, &apperr.StoreError{Op: "append", Table: tx.table, Err: err}
	}
	tx.c.logger.Debug("rows appended",
		zap.String("table", tx.table),
		zap.Int("row", start),
		zap.Int("count", len(rows)),
	)
	return start, nil
}

// nextRow is max(2, used rows in column A + 1); row 1 holds the header.
func (tx *Tx) nextRow(ctx context.Context) (int, error) {
	col, err := tx.Read(ctx, "A:A")
	if err != nil {
		return 0, err
	}
	return max(2, len(col)+1), nil
}
