// Package main is the GestionAR invoicing backend: it authenticates
// against the tax authority's WSAA service and exposes the WSFEv1
// electronic voucher operations over a local HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ObregonJeronimo/GestionAR/internal/config"
	"github.com/ObregonJeronimo/GestionAR/internal/keystore"
	"github.com/ObregonJeronimo/GestionAR/internal/server"
	"github.com/ObregonJeronimo/GestionAR/internal/storage"
	"github.com/ObregonJeronimo/GestionAR/internal/storage/mongodb"
	"github.com/ObregonJeronimo/GestionAR/pkg/soap"
	"github.com/ObregonJeronimo/GestionAR/pkg/wsaa"
	"github.com/ObregonJeronimo/GestionAR/pkg/wsfe"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to configuration file")
	logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	env := cfg.ARCA.Environment
	logger.Info("configuration loaded",
		"env", env,
		"cuit", cfg.ARCA.CUIT,
		"service", cfg.ARCA.Service,
	)

	keys := keystore.NewProvider(cfg.ARCA)
	creds, err := keys.Credentials()
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	signer, err := wsaa.NewSigner(creds)
	if err != nil {
		return fmt.Errorf("failed to create request signer: %w", err)
	}

	soapCfg := soap.DefaultConfig()
	auth, err := wsaa.NewClient(signer, cfg.ARCA.Service, soap.NewClient(env.AuthURL(), soapCfg))
	if err != nil {
		return fmt.Errorf("failed to create authentication client: %w", err)
	}

	invoices, err := wsfe.NewClient(auth, soap.NewClient(env.InvoiceURL(), soapCfg), creds.CUIT)
	if err != nil {
		return fmt.Errorf("failed to create invoice client: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store storage.VoucherStore
	if cfg.Storage.MongoDB.URI != "" {
		store, err = mongodb.NewStore(ctx, &mongodb.Config{
			URI:      cfg.Storage.MongoDB.URI,
			Database: cfg.Storage.MongoDB.Database,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to storage: %w", err)
		}
		logger.Info("voucher storage connected", "database", cfg.Storage.MongoDB.Database)
	} else {
		logger.Info("voucher storage disabled")
	}

	srv := server.New(cfg, auth, invoices, keys, store, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(server.Addr(cfg.Server.Port))
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("stopped")
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	}))
}
