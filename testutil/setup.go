package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/villacheck/server/cache"
	"github.com/villacheck/server/config"
	dbadapter "github.com/villacheck/server/db"
	"github.com/villacheck/server/ident"
	"github.com/villacheck/server/lock"
	"github.com/villacheck/server/model"
	"github.com/villacheck/server/store"
	"github.com/villacheck/server/store/memory"
	"gorm.io/gorm"
)

// Tables uses the default worksheet names.
var Tables = config.TablesConfig{
	Properties:    "Properties",
	Inventory:     "Inventory",
	ChecklistRuns: "ChecklistRuns",
	ChecklistLog:  "ChecklistLog",
	CheckIns:      "CheckIns",
	Staff:         "Staff",
}

// Clock is the fixed time returned by FixedClock: 2024-01-01 09:05:42 UTC.
var Clock = time.Date(2024, 1, 1, 9, 5, 42, 0, time.UTC)

// FixedClock always returns Clock.
func FixedClock() time.Time { return Clock }

// SetupTestDB opens a private shared-cache in-memory SQLite database and
// runs AutoMigrate. No external services are needed.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode:       dbadapter.ModeSQLiteMemory,
		SQLitePath: name,
	})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SetupTestCache creates a local cache (no Redis required).
func SetupTestCache(t *testing.T) cache.Cache {
	t.Helper()
	c := cache.NewLocal(time.Minute)
	t.Cleanup(c.Close)
	return c
}

// SetupTestStore returns a memory backend holding every table with its
// header row, and a locked client over it.
func SetupTestStore(t *testing.T) (*store.Client, *memory.Backend) {
	t.Helper()
	b, err := store.OpenBackend(context.Background(), config.StoreConfig{Mode: store.ModeMemory}, model.TableSpecs(Tables)...)
	require.NoError(t, err, "SetupTestStore: OpenBackend")
	mb := b.(*memory.Backend)
	return store.NewClient(mb, lock.NewLocal(), nil), mb
}

// Generator is an ident.Generator pinned to Clock in UTC.
func Generator() *ident.Generator {
	return ident.NewGenerator(ident.WithClock(FixedClock), ident.WithLocation(time.UTC))
}

// Seed appends rows (cells in header order) to a table of b.
func Seed(t *testing.T, b *memory.Backend, table string, rows ...[]string) {
	t.Helper()
	c := store.NewClient(b, nil, nil)
	for _, r := range rows {
		row := make([]any, len(r))
		for i, v := range r {
			row[i] = v
		}
		_, err := c.AppendOne(context.Background(), table, row)
		require.NoError(t, err, "Seed")
	}
}
