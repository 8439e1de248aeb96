package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chat-gateway/auth"
	"chat-gateway/domain"
	"chat-gateway/moderation"
	"chat-gateway/observability"
	"chat-gateway/repositories"
	"chat-gateway/runtime"
	"chat-gateway/runtime/workers"
	"chat-gateway/search"
	"chat-gateway/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run owns the full lifecycle so that every defer fires before the
// process exits, the database close included.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	repo, err := repositories.NewMessageRepository(db, log)
	if err != nil {
		return fmt.Errorf("message repository: %w", err)
	}
	defer repo.Close()

	// 3. Core state: registry, bus, taps
	stats := observability.NewStats()
	registry := runtime.NewRegistry(log)
	bus := runtime.NewBus(log, repo, config.HistoryDepth)
	bus.AddTap(stats)

	var index *search.Index
	if config.SearchIndexDir != "" {
		index, err = search.Open(config.SearchIndexDir, log)
		if err != nil {
			return fmt.Errorf("search index: %w", err)
		}
		defer index.Close()
		bus.AddTap(index)
	}

	var moderator *moderation.Moderator
	if config.ModerationWordlist != "" {
		moderator, err = moderation.Load(config.ModerationWordlist, config.ModerationCharReplacement)
		if err != nil {
			return fmt.Errorf("moderation wordlist: %w", err)
		}
	}

	catalog := domain.NewCatalog(strings.Split(config.Rooms, ","))
	if len(catalog.Names()) == 0 && !config.JoinAnyRoom {
		return fmt.Errorf("empty room catalog: set ROOMS or JOIN_ANY_ROOM=true")
	}

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Background workers under supervision
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewStoreGCWorker(db, log, config.GCInterval))
	sup.Add(workers.NewTelemetryWorker(log, stats, config.TelemetryInterval))
	sup.Run(ctx)

	// 6. HTTP server
	gateway := transport.NewGateway(transport.Options{
		Log:         log,
		Verifier:    auth.NewVerifier(config.JWTSecret, config.JWTIssuer),
		Registry:    registry,
		Bus:         bus,
		Store:       repo,
		Catalog:     catalog,
		Stats:       stats,
		Index:       index,
		Moderator:   moderator,
		JoinAnyRoom: config.JoinAnyRoom,
	})

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           gateway.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting gateway", "address", address, "rooms", config.Rooms, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "err", err)
	}
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
