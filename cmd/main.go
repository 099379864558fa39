package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/senyabanana/bid-engine/internal/db"
	"github.com/senyabanana/bid-engine/internal/handlers"
	"github.com/senyabanana/bid-engine/internal/repository"
	"github.com/senyabanana/bid-engine/internal/router"
	"github.com/senyabanana/bid-engine/internal/router/config"
	"github.com/senyabanana/bid-engine/internal/services"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}
	if err = cfg.Validate(); err != nil {
		log.Fatal("invalid config:", err)
	}

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err = db.RunMigrations(cfg.MigrationURL, cfg.PostgresConn); err != nil {
		logger.Error("database migration failed", "error", err)
		os.Exit(1)
	}
	logger.Info("db migrated successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.InitDb(ctx, cfg)
	if err != nil {
		logger.Error("error initializing database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	store := repository.NewPostgresStore(dbPool)

	bidService := services.NewBidService(store, logger)
	listingService := services.NewListingService(store)

	bidHandler := handlers.NewBidHandler(bidService, listingService, logger, cfg.RequestTimeout)
	listingHandler := handlers.NewListingHandler(listingService, logger, cfg.RequestTimeout)
	auth := handlers.NewAuthenticator(cfg.JWTSecret, logger)

	routes := router.InitRoutes(handlers.PingHandler(dbPool, logger, cfg.RequestTimeout), auth, listingHandler, bidHandler)

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           routes,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server is listening", "address", cfg.ServerAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
