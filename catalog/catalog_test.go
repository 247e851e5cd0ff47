package catalog_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/villacheck/server/apperr"
	"github.com/villacheck/server/catalog"
	"github.com/villacheck/server/model"
	"github.com/villacheck/server/store/a1"
	"github.com/villacheck/server/store/memory"
	"github.com/villacheck/server/testutil"
)

func setup(t *testing.T, ttl time.Duration) (*catalog.Service, *memory.Backend) {
	t.Helper()
	st, b := testutil.SetupTestStore(t)
	testutil.Seed(t, b, testutil.Tables.Properties,
		[]string{"V1", "Villa Satu", ""},
		[]string{"V2", "Villa Dua", "pool"},
		[]string{"", "Orphan", "no id"},
	)
	testutil.Seed(t, b, testutil.Tables.Inventory,
		[]string{"I1", "V1", "Kitchen", "Spoon", "6", "pcs", "2", "TRUE"},
		[]string{"I2", "v1", "Bath", "Towel", "4", "pcs", "1", ""},
		[]string{"I3", "V1", "Bath", "Robe", "2", "pcs", "1", "false"},
		[]string{"I4", "V1", "Bath", "Mat", "1", "pcs", "1", "1"},
		[]string{"I5", "V1", "Aaa", "Zed", "1", "pcs", "", "0"},
		[]string{"I6", "V1", "Aaa", "Lamp", "1", "pcs", "", "yes"},
		[]string{"I7", "V2", "Bath", "Towel", "8", "pcs", "1", "TRUE"},
	)
	opts := catalog.Options{
		PropertiesTable: testutil.Tables.Properties,
		InventoryTable:  testutil.Tables.Inventory,
		CacheTTL:        ttl,
	}
	return catalog.NewService(st, testutil.SetupTestCache(t), opts, nil), b
}

func ids(items []model.InventoryItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ItemID
	}
	return out
}

func TestListProperties(t *testing.T) {
	svc, _ := setup(t, 0)
	got, err := svc.ListProperties(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.Property{PropertyID: "V2", DisplayName: "Villa Dua", Notes: "pool"}, got[1])
}

func TestListInventory_FilterAndOrder(t *testing.T) {
	svc, _ := setup(t, 0)
	got, err := svc.ListInventory(context.Background(), " V1 ")
	require.NoError(t, err)
	// Blank sort_order counts as 0; ties fall back to category then name.
	assert.Equal(t, []string{"I6", "I4", "I2", "I1"}, ids(got))
}

func TestListInventory_Validation(t *testing.T) {
	svc, _ := setup(t, 0)
	_, err := svc.ListInventory(context.Background(), "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, err := svc.ListInventory(context.Background(), "V9")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReadThroughCache(t *testing.T) {
	svc, b := setup(t, time.Minute)
	var reads atomic.Int32
	b.SetFault(func(op string, _ a1.Range) error {
		if op == "get" {
			reads.Add(1)
		}
		return nil
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.ListInventory(ctx, "V1")
		require.NoError(t, err)
		_, err = svc.ListProperties(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), reads.Load())

	// Warm refetches both tables.
	require.NoError(t, svc.Warm(ctx))
	assert.Equal(t, int32(4), reads.Load())
}

func TestNoCache_StoreErrorsPropagate(t *testing.T) {
	svc, b := setup(t, 0)
	b.SetFault(func(string, a1.Range) error { return errors.New("quota") })
	_, err := svc.ListProperties(context.Background())
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	_, err = svc.ListInventory(context.Background(), "V1")
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	assert.NoError(t, svc.Warm(context.Background()))
}
