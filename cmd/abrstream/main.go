package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/abrstream/internal/config"
	"github.com/mantonx/abrstream/internal/database"
	"github.com/mantonx/abrstream/internal/logger"
	"github.com/mantonx/abrstream/internal/metrics"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule"
	"github.com/mantonx/abrstream/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := run(); err != nil {
		logger.Error("abrstream exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("ABRSTREAM_CONFIG_PATH")
	if configPath == "" {
		if _, err := os.Stat("./abrstream.yaml"); err == nil {
			configPath = "./abrstream.yaml"
		}
	}

	if err := config.Load(configPath); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := config.Get()

	log := logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if configPath != "" {
		log.Info("configuration loaded", "path", configPath)
	} else {
		log.Info("using default configuration")
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(database.Options{
		Type:     cfg.Database.Type,
		Path:     cfg.Database.Path,
		URL:      cfg.Database.URL,
		LogLevel: cfg.Database.LogLevel,
	})
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	modules := []server.Module{
		transcodingmodule.NewModule(cfg, db, m, nil),
	}
	r, err := server.SetupRouter(ctx, db, modules, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if err != nil {
		return err
	}
	r.MaxMultipartMemory = 32 << 20

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down gracefully")

		// uploads in flight get a grace period to finish their ladder
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", "error", err)
		}

		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}

		cancel()
	}()

	log.Info("starting abrstream server", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	<-ctx.Done()
	log.Info("server shutdown complete")
	return nil
}
