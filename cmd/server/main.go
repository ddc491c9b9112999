package main

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"dare-wheel/internal/config"
	"dare-wheel/internal/db"
	"dare-wheel/internal/game"
	"dare-wheel/internal/logger"
	"dare-wheel/internal/monitor"
	"dare-wheel/internal/server"
	"dare-wheel/internal/store"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	zlog, err := logger.New(cfg.Debug)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	// The Postgres mirror is optional: without DATABASE_URL the service
	// runs purely in memory, which is fine for a single-node deployment of
	// ephemeral rooms.
	conn, err := db.Open()
	if err != nil {
		zlog.Warnw("running without postgres mirror", "reason", err)
		conn = nil
	} else {
		if err := db.Migrate(conn); err != nil {
			zlog.Fatalw("database migration failed", "err", err)
		}
		sqlDB, err := conn.DB()
		if err != nil {
			zlog.Fatalw("database handle unavailable", "err", err)
		}
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeSeconds) * time.Second)
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTimeSeconds) * time.Second)
	}

	metrics := monitor.New(prometheus.DefaultRegisterer, cfg.MetricsNamespace)
	engine := game.NewEngine(game.Options{
		Store:            store.NewMemory(),
		DB:               conn,
		Log:              zlog,
		Metrics:          metrics,
		ActionsPerPlayer: cfg.ActionsPerPlayer,
	})
	engine.Broadcaster.Start()
	defer engine.Broadcaster.Stop()

	srv := server.New(engine, zlog)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	zlog.Infow("dare-wheel server listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil {
		zlog.Fatalw("server stopped", "err", err)
	}
}
