// Package catalog serves the read-only Properties and Inventory tables.
package catalog

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/villacheck/server/apperr"
	"github.com/villacheck/server/cache"
	"github.com/villacheck/server/model"
	"github.com/villacheck/server/rows"
	"github.com/villacheck/server/store"
	"go.uber.org/zap"
)

const (
	keyProperties = "catalog:properties"
	keyInventory  = "catalog:inventory"
)

// Options for NewService.
type Options struct {
	PropertiesTable string
	InventoryTable  string
	// CacheTTL keeps table reads in the cache; 0 reads the store every time.
	CacheTTL time.Duration
}

// Service lists properties and inventory.
type Service struct {
	store  *store.Client
	cache  cache.Cache
	opts   Options
	logger *zap.Logger
}

// NewService creates a Service. c may be nil when opts.CacheTTL is 0.
func NewService(st *store.Client, c cache.Cache, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		opts.CacheTTL = 0
	}
	return &Service{store: st, cache: c, opts: opts, logger: logger}
}

// ListProperties returns every property that has an ID, in table order.
func (s *Service) ListProperties(ctx context.Context) ([]model.Property, error) {
	return cached(ctx, s, keyProperties, func(ctx context.Context) ([]model.Property, error) {
		grid, err := s.store.Read(ctx, s.opts.PropertiesTable, "")
		if err != nil {
			return nil, err
		}
		out := []model.Property{}
		for _, rec := range rows.ToRecords(grid, 0) {
			p := model.PropertyFromRecord(rec)
			if p.PropertyID != "" {
				out = append(out, p)
			}
		}
		return out, nil
	})
}

// ListInventory returns the active items of propertyID ordered by
// sort_order, then category, then name.
func (s *Service) ListInventory(ctx context.Context, propertyID string) ([]model.InventoryItem, error) {
	propertyID = strings.TrimSpace(propertyID)
	if propertyID == "" {
		return nil, apperr.Invalid("property_id", "required")
	}
	all, err := s.inventory(ctx)
	if err != nil {
		return nil, err
	}

	out := []model.InventoryItem{}
	for _, it := range all {
		if model.SameProperty(it.PropertyID, propertyID) && it.Active() {
			out = append(out, it)
		}
	}
	slices.SortStableFunc(out, func(a, b model.InventoryItem) int {
		return cmp.Or(
			cmp.Compare(a.Order(), b.Order()),
			strings.Compare(a.Category, b.Category),
			strings.Compare(a.Name, b.Name),
		)
	})
	return out, nil
}

// Warm refreshes both cached tables. It is a no-op without a cache.
func (s *Service) Warm(ctx context.Context) error {
	if s.opts.CacheTTL <= 0 {
		return nil
	}
	if err := s.cache.Del(ctx, keyProperties, keyInventory); err != nil {
		return err
	}
	if _, err := s.ListProperties(ctx); err != nil {
		return err
	}
	_, err := s.inventory(ctx)
	return err
}

func (s *Service) inventory(ctx context.Context) ([]model.InventoryItem, error) {
	return cached(ctx, s, keyInventory, func(ctx context.Context) ([]model.InventoryItem, error) {
		grid, err := s.store.Read(ctx, s.opts.InventoryTable, "")
		if err != nil {
			return nil, err
		}
		recs := rows.ToRecords(grid, 0)
		items := make([]model.InventoryItem, 0, len(recs))
		for _, rec := range recs {
			items = append(items, model.InventoryItemFromRecord(rec))
		}
		return items, nil
	})
}

// cached wraps load with a read-through cache. Cache failures fall back to
// the store.
func cached[T any](ctx context.Context, s *Service, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	if s.opts.CacheTTL <= 0 {
		return load(ctx)
	}
	if raw, err := s.cache.Get(ctx, key); err == nil {
		var out []T
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			return out, nil
		}
	} else if !cache.IsNotFound(err) {
		s.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
	}

	out, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(out); err == nil {
		if err := s.cache.Set(ctx, key, string(raw), s.opts.CacheTTL); err != nil {
			s.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return out, nil
}
