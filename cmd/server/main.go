package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/51st-Vfw/MissionEditing-Templates/internal/api"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/config"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/engine"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/history"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/pipeline"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/raster"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/templates"
)

func main() {
	configPath := flag.String("config", "", "path to a kbb.yaml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load configuration", "error", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the build stack. Uploaded definitions only reach files
	// under the configured template directories.
	resolver := templates.NewConfinedResolver(cfg.SearchPaths, log)
	eng := engine.New(engine.Options{Resolver: resolver, Log: log, OverlayID: cfg.OverlayID})

	var conv raster.Converter
	if cfg.PNG {
		conv, err = raster.New(cfg.Converter, raster.Options{
			InkscapeBin: cfg.InkscapeBin,
			ChromeBin:   cfg.ChromeBin,
			Timeout:     cfg.ConvertTimeout,
		})
		if errors.Is(err, raster.ErrDisabled) {
			cfg.PNG = false
		} else if err != nil {
			log.Error("invalid converter", "error", err)
			os.Exit(1)
		}
	}

	var hist *history.Store
	if cfg.HistoryDB != "" {
		hist, err = history.Open(ctx, cfg.HistoryDB)
		if err != nil {
			log.Error("open build history", "error", err)
			os.Exit(1)
		}
		defer hist.Close()
	}

	// Initialize pipeline.
	worker := pipeline.NewWorker(eng, resolver, conv, hist, raster.NewStats(time.Hour), log)
	orch := pipeline.NewOrchestrator(cfg, worker, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, hist, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting kbb build service", "port", cfg.Port, "template_dirs", resolver.Dirs())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
