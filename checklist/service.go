// Package checklist records checklist runs: one ChecklistRuns row per
// submission followed by one ChecklistLog row per item.
package checklist

import (
	"context"
	"fmt"

	"github.com/villacheck/server/apperr"
	"github.com/villacheck/server/ident"
	"github.com/villacheck/server/model"
	"github.com/villacheck/server/session"
	"github.com/villacheck/server/store"
	"go.uber.org/zap"
)

// Result describes a stored run.
type Result struct {
	RunID     string `json:"run_id"`
	CheckedAt string `json:"checked_at"`
	Entries   int    `json:"entries"`
}

// Options for NewService.
type Options struct {
	RunsTable string
	LogTable  string
}

// Service submits checklist runs.
type Service struct {
	store  *store.Client
	ids    *ident.Generator
	opts   Options
	logger *zap.Logger
}

// NewService creates a Service.
func NewService(st *store.Client, ids *ident.Generator, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, ids: ids, opts: opts, logger: logger}
}

// SubmitRun validates sub and writes the run row, then all log rows in one
// block. The run and every entry share one run_id and one checked_at.
//
// If the log append fails after the run row was written, the run row stays
// in the table and a *apperr.PartialWriteError naming it is returned.
func (s *Service) SubmitRun(ctx context.Context, by session.Identity, sub Submission) (*Result, error) {
	sub.normalize()
	if err := apperr.Validate(sub); err != nil {
		return nil, err
	}
	for i := range sub.Items {
		it := &sub.Items[i]
		if it.Status == "" {
			it.Status = model.StatusOK
			continue
		}
		st, ok := model.CanonicalStatus(it.Status)
		if !ok {
			return nil, apperr.Invalid(fmt.Sprintf("items[%d].status", i), "unknown status "+it.Status)
		}
		it.Status = st
	}

	now := s.ids.Now()
	runID := s.ids.RunID(now, sub.PropertyID)
	checkedAt := s.ids.CheckedAt(now)
	performer := by.DisplayName()

	run := model.ChecklistRun{
		RunID:       runID,
		PropertyID:  sub.PropertyID,
		StartedAt:   checkedAt,
		CompletedAt: checkedAt,
		PerformedBy: performer,
	}
	if _, err := s.store.AppendOne(ctx, s.opts.RunsTable, run.Row()); err != nil {
		return nil, err
	}

	entries := make([][]any, len(sub.Items))
	for i, it := range sub.Items {
		entries[i] = model.ChecklistLogEntry{
			EntryID:    ident.EntryID(runID, i),
			PropertyID: sub.PropertyID,
			ItemID:     it.ItemID,
			RunID:      runID,
			CheckedAt:  checkedAt,
			ItemName:   it.ItemName,
			Status:     it.Status,
			QuantityOK: it.QuantityOK,
			Notes:      it.Notes,
			CheckedBy:  performer,
		}.Row()
	}
	if _, err := s.store.AppendMany(ctx, s.opts.LogTable, entries); err != nil {
		s.logger.Error("checklist run written without log entries",
			zap.String("run_id", runID),
			zap.String("property_id", sub.PropertyID),
			zap.Int("entries", len(entries)),
			zap.Error(err),
		)
		return nil, &apperr.PartialWriteError{RunID: runID, PropertyID: sub.PropertyID, Err: err}
	}

	s.logger.Info("checklist run stored",
		zap.String("run_id", runID),
		zap.String("property_id", sub.PropertyID),
		zap.Int("entries", len(entries)),
	)
	return &Result{RunID: runID, CheckedAt: checkedAt, Entries: len(entries)}, nil
}
