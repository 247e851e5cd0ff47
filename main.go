package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	apirest "github.com/villacheck/server/api/rest"
	"github.com/villacheck/server/audit"
	"github.com/villacheck/server/cache"
	"github.com/villacheck/server/catalog"
	"github.com/villacheck/server/checkin"
	"github.com/villacheck/server/checklist"
	"github.com/villacheck/server/config"
	dbadapter "github.com/villacheck/server/db"
	"github.com/villacheck/server/ident"
	"github.com/villacheck/server/lock"
	mw "github.com/villacheck/server/middleware"
	"github.com/villacheck/server/model"
	"github.com/villacheck/server/scheduler"
	"github.com/villacheck/server/session"
	"github.com/villacheck/server/staff"
	"github.com/villacheck/server/store"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// ---- Store ----
	openCtx, cancelOpen := context.WithTimeout(sigCtx, cfg.Store.CallTimeout)
	backend, err := store.OpenBackend(openCtx, cfg.Store, model.TableSpecs(cfg.Tables)...)
	cancelOpen()
	if err != nil {
		logger.Fatal("store backend", zap.String("mode", cfg.Store.Mode), zap.Error(err))
	}
	if c, ok := backend.(interface{ Close() error }); ok {
		defer c.Close()
	}
	locker, err := lock.New(cfg.Lock)
	if err != nil {
		logger.Fatal("lock", zap.Error(err))
	}
	st := store.NewClient(backend, locker, logger)
	logger.Info("store initialized",
		zap.String("mode", cfg.Store.Mode),
		zap.String("lock", cfg.Lock.Mode))

	// ---- IDs ----
	strategy, err := ident.ParseStrategy(cfg.IDs.RunStrategy)
	if err != nil {
		logger.Fatal("ids.run_strategy", zap.Error(err))
	}
	loc, err := ident.LoadLocation(cfg.IDs.Timezone)
	if err != nil {
		logger.Fatal("ids.timezone", zap.Error(err))
	}
	ids := ident.NewGenerator(ident.WithLocation(loc), ident.WithStrategy(strategy))

	// ---- Caches ----
	// Sessions always live in this process, whatever cache.redis_addr says.
	sessionCache := cache.NewLocal(cfg.Cache.LocalGCInterval)
	defer sessionCache.Close()
	sessions := session.NewStore(sessionCache)

	var catalogCache cache.Cache
	if cfg.Catalog.CacheTTL > 0 {
		catalogCache, err = cache.New(cache.Config{
			RedisAddr:       cfg.Cache.RedisAddr,
			RedisPassword:   cfg.Cache.RedisPassword,
			RedisDB:         cfg.Cache.RedisDB,
			LocalGCInterval: cfg.Cache.LocalGCInterval,
		})
		if err != nil {
			logger.Fatal("catalog cache", zap.Error(err))
		}
		if c, ok := catalogCache.(interface{ Close() }); ok {
			defer c.Close()
		} else if c, ok := catalogCache.(interface{ Close() error }); ok {
			defer c.Close()
		}
	}

	// ---- Audit DB ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		logger.Fatal("db", zap.Error(err))
	}
	if err := model.AutoMigrate(db); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())
	logger.Info("audit DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Services ----
	staffSvc := staff.NewService(st, sessions, staff.Options{
		Table:          cfg.Tables.Staff,
		AllowPlaintext: cfg.Security.AllowPlaintextPasswords,
	}, logger)
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

	// ---- Scheduler ----
	sched := scheduler.New(logger, cfg.Store.CallTimeout)
	defer sched.Stop()
	probe := scheduler.NewProbe(st.Ping)
	sched.AddTicker("store_probe", cfg.Store.ProbeInterval, true, probe.Run)
	if cfg.Catalog.CacheTTL > 0 {
		sched.AddTicker("catalog_warm", cfg.Catalog.CacheTTL, true, catalogSvc.Warm)
	}

	// ---- HTTP ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(sigCtx, rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	timeout := cfg.Store.CallTimeout
	apirest.Register(r, apirest.Handlers{
		Auth:      apirest.NewAuthHandler(staffSvc, auditSvc, timeout, logger),
		Catalog:   apirest.NewCatalogHandler(catalogSvc, timeout, logger),
		Checklist: apirest.NewChecklistHandler(checklistSvc, auditSvc, timeout, logger),
		CheckIns:  apirest.NewCheckInHandler(checkinSvc, auditSvc, timeout, logger),
		Admin:     apirest.NewAdminHandler(auditSvc, sched, logger),
		Health:    apirest.NewHealthHandler(probe),
	}, apirest.RouteConfig{
		Sessions: staffSvc,
		AdminKey: cfg.Server.AdminKey,
		AdminIPs: cfg.Server.AdminIPs,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case <-sigCtx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", zap.Error(err))
		}
	}
}

// corsConfig allows the configured origins, or reflects any origin when
// none are configured. Credentials are allowed either way.
func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) > 0 {
		c.AllowOrigins = origins
	} else {
		c.AllowOriginFunc = func(string) bool { return true }
	}
	c.AddAllowHeaders("Authorization", mw.TraceIDHeader, mw.AdminKeyHeader)
	c.AddExposeHeaders(mw.TraceIDHeader)
	c.AllowCredentials = true
	return c
}
