package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taxbuddy/config"
	"taxbuddy/internal/httpapi"
	"taxbuddy/internal/watch"
	"taxbuddy/notify"
	"taxbuddy/records"
	"taxbuddy/session"
	"taxbuddy/workflow"
)

func main() {
	cfg := config.Load()

	directory, err := config.LoadDirectory(cfg.DirectoryPath)
	if err != nil {
		log.Fatalf("load directory: %v", err)
	}

	store, err := records.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open records store: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Seed from the bundled CSV when present; drop-dir imports take over from
	// there.
	if _, err := os.Stat(cfg.RecordsCSV); err == nil {
		if n, err := store.ImportCSV(ctx, cfg.RecordsCSV); err != nil {
			log.Printf("seed import failed: %v", err)
		} else {
			log.Printf("seeded %d record rows from %s", n, cfg.RecordsCSV)
		}
	}

	watcher := watch.New(cfg, store)
	if err := watcher.Backfill(ctx); err != nil {
		log.Printf("drop-dir backfill failed: %v", err)
	}
	if err := watcher.Start(ctx); err != nil {
		log.Printf("watcher start failed: %v", err)
	}

	engine := workflow.NewEngine(
		store,
		workflow.NewOpenAICollaborator(cfg),
		notify.NewSMTPSender(cfg),
		directory,
		workflow.Options{
			RequireInstitutionMatch: cfg.RequireInstitutionMatch,
			DisclosureImmediate:     cfg.DisclosureImmediate,
			Temperature:             cfg.Temperature,
			MaxTurnTokens:           cfg.MaxTurnTokens,
		},
	)

	router := httpapi.NewRouter(cfg, engine, session.NewManager(), store)
	server := &http.Server{
		Addr:         cfg.HTTPPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	cancel()
}
