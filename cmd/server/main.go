package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"countroom/internal/catalog"
	"countroom/internal/identity"
	"countroom/internal/order"
	"countroom/internal/platform/config"
	"countroom/internal/platform/httpserver"
	"countroom/internal/platform/logger"
	"countroom/internal/platform/metrics"
	"countroom/internal/platform/middleware"
	"countroom/internal/platform/postgres"
	platformredis "countroom/internal/platform/redis"
	"countroom/internal/recon/handler"
	"countroom/internal/recon/service"
	containerstore "countroom/internal/recon/store/container"
	incidentstore "countroom/internal/recon/store/incident"
	transactionstore "countroom/internal/recon/store/transaction"
	"countroom/pkg/platform/audit"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	var (
		transactions service.TransactionStore
		containers   service.ContainerStore
		incidents    service.IncidentStore
		orders       order.Store
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.Connect(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Error("database connect failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		transactions = transactionstore.NewPostgres(pool)
		containers = containerstore.NewPostgres(pool)
		incidents = incidentstore.NewPostgres(pool)
		orders = order.NewPostgres(pool)
	} else {
		log.Warn("DATABASE_URL not set; using in-memory stores")
		transactions = transactionstore.NewInMemory()
		containers = containerstore.NewInMemory()
		incidents = incidentstore.NewInMemory()
		orders = order.NewInMemory()
	}

	var cat catalog.Resolver = catalog.DefaultStatic()
	rdb, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
		cat = catalog.NewCached(cat, rdb, cfg.CatalogCacheTTL)
	}

	auditPub := audit.NewPublisher(audit.NewInMemoryStore(), audit.WithAsyncBuffer(256))
	defer auditPub.Close()

	engine := service.New(
		transactions, containers, incidents,
		cat, identity.NewStatic(nil),
		orders, order.NewSync(orders),
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithAudit(auditPub),
	)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(log))

	handler.New(engine, log).Register(r)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, r)

	log.Info("starting countroom", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
