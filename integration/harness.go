// Package integration runs the HTTP API end to end over a real listener and
// a workbook on disk.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	apirest "github.com/villacheck/server/api/rest"
	"github.com/villacheck/server/audit"
	"github.com/villacheck/server/cache"
	"github.com/villacheck/server/catalog"
	"github.com/villacheck/server/checkin"
	"github.com/villacheck/server/checklist"
	"github.com/villacheck/server/config"
	"github.com/villacheck/server/ident"
	"github.com/villacheck/server/lock"
	mw "github.com/villacheck/server/middleware"
	"github.com/villacheck/server/model"
	"github.com/villacheck/server/scheduler"
	"github.com/villacheck/server/session"
	"github.com/villacheck/server/staff"
	"github.com/villacheck/server/store"
	"github.com/villacheck/server/testutil"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// AdminKey guards /api/admin on every TestServer.
const AdminKey = "integration-admin-key"

// TestServer wraps a real HTTP server with every service wired the way
// main.go wires them, over an xlsx workbook in a temp dir.
type TestServer struct {
	DB        *gorm.DB
	Store     *store.Client
	Audit     *audit.Service
	Scheduler *scheduler.Scheduler
	Server    *httptest.Server
	URL       string // http://127.0.0.1:<port>
	XLSXPath  string
	Config    *config.Config

	backend store.Backend
}

// NewTestServer creates a fully wired server. The Staff table holds maria
// (password pw1); Properties and Inventory hold V1 and V2.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Store: config.StoreConfig{
			Mode:          store.ModeXLSX,
			XLSXPath:      filepath.Join(t.TempDir(), "villas.xlsx"),
			CallTimeout:   10 * time.Second,
			ProbeInterval: time.Hour,
		},
		Tables:   testutil.Tables,
		Lock:     lock.Config{Mode: lock.ModeLocal},
		Catalog:  config.CatalogConfig{CacheTTL: time.Minute},
		Security: config.SecurityConfig{RateLimitRPS: 1000, RateLimitBurst: 2000},
	}
	logger := zap.NewNop()

	// ---- Store ----
	backend, err := store.OpenBackend(context.Background(), cfg.Store, model.TableSpecs(cfg.Tables)...)
	require.NoError(t, err)
	locker, err := lock.New(cfg.Lock)
	require.NoError(t, err)
	st := store.NewClient(backend, locker, logger)
	seed(t, st, cfg.Tables)

	ids := ident.NewGenerator(ident.WithLocation(time.UTC))

	// ---- Caches ----
	sessions := session.NewStore(testutil.SetupTestCache(t))
	catalogCache, err := cache.New(cache.Config{LocalGCInterval: time.Minute})
	require.NoError(t, err)
	if c, ok := catalogCache.(interface{ Close() }); ok {
		t.Cleanup(c.Close)
	}

	// ---- Audit ----
	db := testutil.SetupTestDB(t)
	auditSvc := audit.New(db, logger)

	// ---- Services ----
	staffSvc := staff.NewService(st, sessions, staff.Options{Table: cfg.Tables.Staff}, logger)
	catalogSvc := catalog.NewService(st, catalogCache, catalog.Options{
		PropertiesTable: cfg.Tables.Properties,
		InventoryTable:  cfg.Tables.Inventory,
		CacheTTL:        cfg.Catalog.CacheTTL,
	}, logger)
	checklistSvc := checklist.NewService(st, ids, checklist.Options{
		RunsTable: cfg.Tables.ChecklistRuns,
		LogTable:  cfg.Tables.ChecklistLog,
	}, logger)
	checkinSvc := checkin.NewService(st, ids, cfg.Tables.CheckIns, logger)

	sched := scheduler.New(logger, cfg.Store.CallTimeout)
	probe := scheduler.NewProbe(st.Ping)
	sched.AddTicker("store_probe", cfg.Store.ProbeInterval, true, probe.Run)
	sched.AddTicker("catalog_warm", cfg.Catalog.CacheTTL, true, catalogSvc.Warm)

	// ---- Gin HTTP Server ----
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOriginFunc = func(string) bool { return true }
	corsCfg.AddAllowHeaders("Authorization")
	corsCfg.AllowCredentials = true

	r := gin.New()
	r.Use(cors.New(corsCfg))
	r.Use(mw.TraceID(), mw.Recovery(logger))
	r.Use(mw.RateLimit(t.Context(), rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))
	apirest.Register(r, apirest.Handlers{
		Auth:      apirest.NewAuthHandler(staffSvc, auditSvc, cfg.Store.CallTimeout, logger),
		Catalog:   apirest.NewCatalogHandler(catalogSvc, cfg.Store.CallTimeout, logger),
		Checklist: apirest.NewChecklistHandler(checklistSvc, auditSvc, cfg.Store.CallTimeout, logger),
		CheckIns:  apirest.NewCheckInHandler(checkinSvc, auditSvc, cfg.Store.CallTimeout, logger),
		Admin:     apirest.NewAdminHandler(auditSvc, sched, logger),
		Health:    apirest.NewHealthHandler(probe),
	}, apirest.RouteConfig{Sessions: staffSvc, AdminKey: AdminKey})

	server := httptest.NewServer(r)
	ts := &TestServer{
		DB:        db,
		Store:     st,
		Audit:     auditSvc,
		Scheduler: sched,
		Server:    server,
		URL:       server.URL,
		XLSXPath:  cfg.Store.XLSXPath,
		Config:    cfg,
		backend:   backend,
	}
	t.Cleanup(ts.Close)
	return ts
}

func seed(t *testing.T, st *store.Client, tables config.TablesConfig) {
	t.Helper()
	hash, err := staff.HashPassword("pw1", bcrypt.MinCost)
	require.NoError(t, err)

	ctx := context.Background()
	appendRows := func(table string, rows ...[]any) {
		_, err := st.AppendMany(ctx, table, rows)
		require.NoError(t, err, "seed %s", table)
	}
	appendRows(tables.Staff, []any{"S1", "Maria", "maria", hash})
	appendRows(tables.Properties,
		[]any{"V1", "Villa Uno", ""},
		[]any{"V2", "Villa Dos", ""},
	)
	appendRows(tables.Inventory,
		[]any{"I1", "V1", "Bedroom", "Pillow", "4", "pcs", "1", "TRUE"},
		[]any{"I2", "V1", "Kitchen", "Kettle", "1", "pcs", "2", "TRUE"},
		[]any{"I3", "V2", "Bath", "Towel", "6", "pcs", "1", "TRUE"},
	)
}

// Close shuts down the server, the background workers and the workbook.
// Calling it more than once is harmless.
func (ts *TestServer) Close() {
	ts.Server.Close()
	ts.Scheduler.Stop()
	ts.Audit.Stop(context.Background())
	if c, ok := ts.backend.(io.Closer); ok {
		_ = c.Close()
	}
}

// --- HTTP helpers ---

// PostJSON sends a POST request with JSON body and optional Bearer token.
func (ts *TestServer) PostJSON(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Get sends a GET request with optional Bearer token.
func (ts *TestServer) Get(t *testing.T, path string, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Login logs in and returns the session token.
func (ts *TestServer) Login(t *testing.T, login, password string) string {
	t.Helper()
	resp := ts.PostJSON(t, "/api/auth/login", map[string]string{
		"login":    login,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, "login failed")
	var result struct {
		Token string `json:"token"`
	}
	ReadJSON(t, resp, &result)
	require.NotEmpty(t, result.Token)
	return result.Token
}

// ReadJSON decodes and closes the response body.
func ReadJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v), "body: %s", string(data))
}

var uniqueCounter int64

// UniqueID generates a unique string for test isolation.
func UniqueID(prefix string) string {
	n := atomic.AddInt64(&uniqueCounter, 1)
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixNano()%100000, n)
}
