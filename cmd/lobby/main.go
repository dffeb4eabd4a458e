// main is the entry point of the Lobby application.
// It initializes the configuration, logger, GeoIP provider, history database, registry, and starts the HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/lobby/internal/config"
	"github.com/woozymasta/lobby/internal/fake"
	"github.com/woozymasta/lobby/internal/geoip"
	"github.com/woozymasta/lobby/internal/journal"
	"github.com/woozymasta/lobby/internal/lobby"
	"github.com/woozymasta/lobby/internal/logger"
	"github.com/woozymasta/lobby/internal/maintenance"
	"github.com/woozymasta/lobby/internal/models"
	"github.com/woozymasta/lobby/internal/registry"
	"github.com/woozymasta/lobby/internal/server"
	"github.com/woozymasta/lobby/internal/storage"
)

func main() {
	cfg := config.Parse()

	logger.Setup(cfg.Logger)
	log.Info().Msg("Starting lobby service...")

	// GeoIP
	var geo lobby.CountryResolver
	if cfg.GeoIP.Path != "" {
		log.Info().Msg("Checking GeoIP database...")
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		if err := geoip.EnsureDB(ctx, cfg.GeoIP.Path, cfg.GeoIP.URL, cfg.GeoIP.Interval); err != nil {
			log.Error().Err(err).Msg("Failed to download GeoIP database")
		}
		cancel()

		geoProvider, err := geoip.Open(cfg.GeoIP.Path)
		if err != nil {
			log.Error().Err(err).Msg("Failed to open GeoIP database, country detection disabled")
		} else {
			geo = geoProvider
			defer func() {
				if err := geoProvider.Close(); err != nil {
					log.Error().Err(err).Msg("Error closing GeoIP provider")
				}
			}()
		}
	}

	// History database
	var (
		store   *storage.Repository
		history server.SessionReader
		sink    lobby.EventSink
		jrnl    *journal.Journal
	)
	if cfg.Storage.Path != "" {
		var err error
		store, err = storage.New(cfg.Storage.Path)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}

		// database maintenance
		if maintenance.Run(cfg, store) {
			closeStore(store)
			return
		}

		// registry is in-memory, sessions of the previous process can not continue
		if n, err := store.CloseDangling(models.EndRestart, time.Now()); err != nil {
			log.Error().Err(err).Msg("Failed to close dangling sessions")
		} else if n > 0 {
			log.Info().Int64("sessions", n).Msg("Closed sessions left by previous run")
		}

		jrnl = journal.New(store, cfg.Storage.Workers, cfg.Storage.QueueSize, cfg.Storage.TouchInterval)
		jrnl.Start()
		history = store
		sink = jrnl
	}

	// Registry
	reg := registry.New(registry.Options{
		Validator: registry.NewValidator(
			cfg.Registry.MaxNameLength,
			cfg.Registry.MaxInfoLength,
			cfg.Registry.AllowedVersions,
		),
	})

	// data generation, before the service so its gauge counts the seeded servers
	if cfg.Registry.GenerateCount > 0 {
		n := fake.GenerateServers(reg, cfg.Registry.GenerateCount)
		log.Warn().Int("count", n).Msg("Registry seeded with fake servers")
	}

	svc := lobby.New(reg, geo, sink)

	// Init server
	srvHandler := server.New(svc, history, cfg)

	// Background sweeper and limiter cleanup
	srvHandler.StartWorkers()

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      srvHandler.Run(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Shut down HTTP
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop workers
	srvHandler.StopWorkers()

	// Drain history queue, then close DB
	if jrnl != nil {
		jrnl.Stop()
	}
	if store != nil {
		closeStore(store)
	}

	log.Info().Msg("Server exited")
}

func closeStore(store *storage.Repository) {
	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database")
	}
}
