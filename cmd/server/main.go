package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/teiedit/internal/api"
	"github.com/dgallion1/teiedit/internal/config"
	"github.com/dgallion1/teiedit/internal/normdata"
	"github.com/dgallion1/teiedit/internal/pipeline"
	"github.com/dgallion1/teiedit/internal/store"
	"github.com/dgallion1/teiedit/internal/structure"
	"github.com/dgallion1/teiedit/internal/transform"
	"github.com/dgallion1/teiedit/internal/validation"
)

func main() {
	cfg := config.Load()
	log := cfg.NewLogger()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	docs := store.NewClient(cfg.DocstoreURL, cfg.DocstoreAPIKey)
	stats := validation.NewStats(time.Hour)

	deps := api.Deps{
		Tables:    structure.DefaultTables(),
		Documents: docs,
		Stats:     stats,
	}
	deps.Pipeline = transform.NewPipeline(transform.Config{Tables: deps.Tables, Logger: log})

	var validator pipeline.Validator
	var vc *validation.Client
	if cfg.ValidationURL != "" {
		vc = validation.NewClient(cfg.ValidationURL, cfg.ValidationAPIKey, cfg.ValidationTimeout, stats)
		validator = vc
		deps.Validator = vc
	} else if cfg.ValidateBeforeSave {
		log.Warn("VALIDATION_URL not set, saving without validation")
	}

	var nd *normdata.Client
	if cfg.NormdataURL != "" {
		nd = normdata.NewClient(cfg.NormdataURL, cfg.NormdataCacheTTL, 10000)
		deps.Normdata = nd
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, docs, validator, log)
	orch.Start(ctx)
	deps.Orchestrator = orch

	// Initialize HTTP server.
	srv := api.NewServer(deps, log, cfg)

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

		// HTTP first so no request can submit a save to a stopped pipeline.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()

		docs.Close()
		if vc != nil {
			vc.Close()
		}
		if nd != nil {
			nd.Close()
		}
	}()

	log.Info("starting teiedit", "port", cfg.Port, "validate_before_save", cfg.ValidateBeforeSave)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
