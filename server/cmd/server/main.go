package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storelens/storelens/server/internal/api"
	"github.com/storelens/storelens/server/internal/compute"
	"github.com/storelens/storelens/server/internal/config"
	"github.com/storelens/storelens/server/internal/ingest"
	"github.com/storelens/storelens/server/internal/rules"
	"github.com/storelens/storelens/server/internal/staging"
	"github.com/storelens/storelens/server/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to config file; empty uses defaults plus STORELENS_* environment")
	flag.Parse()

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("storelens-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	level.Set(parseLevel(cfg.Server.LogLevel))

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"max_upload_bytes", cfg.Server.MaxUploadBytes,
		"staging", cfg.Server.Staging.Enabled,
		"top_n", cfg.Analysis.TopN,
		"timezone", cfg.Analysis.Timezone,
		"rules", len(cfg.Rules.Rules),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	loc, err := cfg.Analysis.Location()
	if err != nil {
		slog.Error("invalid timezone", "err", err)
		os.Exit(1)
	}
	reader := ingest.NewReader(ingest.Options{Location: loc, DateLayouts: cfg.Analysis.DateLayouts})
	engine := compute.NewEngine(compute.WithTopN(cfg.Analysis.TopN))

	// Threshold rules; swapped in place when the config file changes.
	ruleEngine, err := rules.New(cfg.Rules)
	if err != nil {
		slog.Error("invalid rules", "err", err)
		os.Exit(1)
	}

	metrics := telemetry.New()

	// Optional upload staging with background TTL sweeping.
	var st *staging.Store
	if cfg.Server.Staging.Enabled {
		st, err = staging.New(cfg.Server.Staging.Path, cfg.Server.Staging.TTL)
		if err != nil {
			slog.Error("failed to create staging area", "err", err)
			os.Exit(1)
		}
		go st.Run(ctx)
		slog.Info("staging uploads", "path", st.Dir(), "ttl", cfg.Server.Staging.TTL)
	}

	if *configPath != "" {
		go func() {
			err := config.Watch(ctx, *configPath, func(next *config.Config) {
				level.Set(parseLevel(next.Server.LogLevel))
				if err := ruleEngine.Update(next.Rules); err != nil {
					slog.Error("rules reload failed, keeping previous rules", "err", err)
				}
			})
			if err != nil {
				slog.Error("config watch stopped", "err", err)
			}
		}()
	}

	handler := api.New(api.Options{
		Engine:         engine,
		Reader:         reader,
		Rules:          ruleEngine,
		Staging:        st,
		Metrics:        metrics,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Logger:         logger,
	})

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("storelens-server shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown", "err", err)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
