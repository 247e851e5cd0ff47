package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/villacheck/server/audit"
	"github.com/villacheck/server/lock"
	"github.com/villacheck/server/rows"
	"github.com/villacheck/server/store"
	"github.com/villacheck/server/store/xlsx"
	"go.uber.org/zap"
)

func TestStaffFlow(t *testing.T) {
	ts := NewTestServer(t)

	// 1. Browse without a session.
	resp := ts.Get(t, "/api/properties", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var props []map[string]string
	ReadJSON(t, resp, &props)
	require.Len(t, props, 2)

	resp = ts.Get(t, "/api/inventory?property_id=V1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var inv []map[string]string
	ReadJSON(t, resp, &inv)
	require.Len(t, inv, 2)

	// 2. Writing needs a session.
	resp = ts.PostJSON(t, "/api/check-runs", map[string]any{"property_id": "V1"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	token := ts.Login(t, "maria", "pw1")

	// 3. Submit a run covering the inventory.
	items := make([]map[string]any, 0, len(inv))
	for _, it := range inv {
		items = append(items, map[string]any{"item_id": it["item_id"], "item_name": it["name"], "quantity_ok": true})
	}
	resp = ts.PostJSON(t, "/api/check-runs", map[string]any{"property_id": "V1", "items": items}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var run struct {
		RunID   string `json:"run_id"`
		Entries int    `json:"entries"`
	}
	ReadJSON(t, resp, &run)
	assert.Regexp(t, `^RUN-\d{6}-\d{4}$`, run.RunID)
	assert.Equal(t, 2, run.Entries)

	// 4. Record a stay and find it again.
	guest := UniqueID("guest")
	resp = ts.PostJSON(t, "/api/check-ins", map[string]any{
		"property_id":      "V2",
		"check_in_date":    "2024-03-01",
		"check_out_date":   "2024-03-04",
		"guest_name":       guest,
		"number_of_nights": 3,
	}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created struct {
		CheckInID string `json:"check_in_id"`
	}
	ReadJSON(t, resp, &created)
	assert.Regexp(t, `^CI-\d{6}-001$`, created.CheckInID)

	resp = ts.Get(t, "/api/check-ins?propertyId=v2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stays []map[string]string
	ReadJSON(t, resp, &stays)
	require.Len(t, stays, 1)
	assert.Equal(t, guest, stays[0]["guest_name"])

	// 5. Log out; the token stops working.
	resp = ts.PostJSON(t, "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = ts.Get(t, "/api/auth/me", token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// 6. Everything written is on disk.
	ts.Close()
	b, err := xlsx.Open(ts.XLSXPath)
	require.NoError(t, err)
	defer b.Close()
	st := store.NewClient(b, lock.NewLocal(), zap.NewNop())

	grid, err := st.Read(context.Background(), ts.Config.Tables.ChecklistLog, "")
	require.NoError(t, err)
	logs := rows.ToRecords(grid, 0)
	require.Len(t, logs, 2)
	for i, l := range logs {
		assert.Equal(t, fmt.Sprintf("%s-%d", run.RunID, i), l.String("entry_id"))
		assert.Equal(t, run.RunID, l.String("run_id"))
	}
	assert.Equal(t, "Maria", logs[1].String("checked_by"))
	assert.Equal(t, "true", logs[1].String("quantity_ok"))

	grid, err = st.Read(context.Background(), ts.Config.Tables.CheckIns, "")
	require.NoError(t, err)
	assert.Len(t, rows.ToRecords(grid, 0), 1)

	// 7. The audit trail saw the writes (Close flushed it).
	entries, err := ts.Audit.Query(context.Background(), "", 0)
	require.NoError(t, err)
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assert.Subset(t, actions, []string{audit.ActionLogin, audit.ActionChecklistSubmit, audit.ActionCheckInCreate, audit.ActionLogout})
}

func TestConcurrentCheckIns_UniqueIDs(t *testing.T) {
	ts := NewTestServer(t)
	token := ts.Login(t, "maria", "pw1")

	const n = 8
	codes := make([]int, n)
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// No require here: FailNow must run on the test goroutine.
			data, _ := json.Marshal(map[string]any{
				"property_id":    "V1",
				"check_in_date":  "2024-04-01",
				"check_out_date": "2024-04-02",
				"guest_name":     fmt.Sprintf("guest %d", i),
			})
			req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/check-ins", bytes.NewReader(data))
			if err != nil {
				return
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			defer resp.Body.Close()
			codes[i] = resp.StatusCode
			var body struct {
				CheckInID string `json:"check_in_id"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&body)
			ids[i] = body.CheckInID
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i := range ids {
		assert.Equal(t, http.StatusOK, codes[i])
		assert.False(t, seen[ids[i]], "duplicate %s", ids[i])
		seen[ids[i]] = true
	}

	resp := ts.Get(t, "/api/check-ins", "")
	var stays []map[string]string
	ReadJSON(t, resp, &stays)
	assert.Len(t, stays, n)
}

func TestCORS_ReflectsOrigin(t *testing.T) {
	ts := NewTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/check-runs", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://villa.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://villa.example", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestHealthAndAdmin(t *testing.T) {
	ts := NewTestServer(t)

	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var h struct {
			Store bool `json:"store"`
		}
		return json.NewDecoder(resp.Body).Decode(&h) == nil && h.Store
	}, 5*time.Second, 20*time.Millisecond)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/admin/scheduler", nil)
	require.NoError(t, err)
	req.Header.Set("X-Admin-Key", AdminKey)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	var body struct {
		Tasks []string `json:"tasks"`
	}
	ReadJSON(t, resp, &body)
	assert.Equal(t, []string{"catalog_warm", "store_probe"}, body.Tasks)
}
