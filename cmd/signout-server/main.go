package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethanesterson-creator/SignOut/internal/app"
	"github.com/ethanesterson-creator/SignOut/internal/config"
	"github.com/ethanesterson-creator/SignOut/internal/events"
	"github.com/ethanesterson-creator/SignOut/internal/grpcapi"
	"github.com/ethanesterson-creator/SignOut/internal/httpapi"
	"github.com/ethanesterson-creator/SignOut/internal/signout/export"
	"github.com/ethanesterson-creator/SignOut/internal/signout/service"
	"github.com/ethanesterson-creator/SignOut/internal/telemetry"
)

var version = "dev"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil)).With("svc", "signout-server")
	if err := run(logger); err != nil {
		logger.Error("exiting", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if !cfg.IsDev() {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("svc", "signout-server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "signout-server", version, cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	// Stores
	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	// Events
	var publisher events.Publisher = &events.NoopPublisher{}
	if cfg.NATSURL != "" {
		p, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			return err
		}
		publisher = p
		logger.Info("publishing events", "nats", cfg.NATSURL)
	}
	defer publisher.Close()

	// Services
	dir := app.Directory(cfg, stores)
	boards := app.Boards(cfg, stores, dir, service.Options{
		Publisher: publisher,
		Logger:    logger,
	})
	admin := service.NewAdmin(cfg.AdminPassword, boards, dir, logger)
	if !admin.Enabled() {
		logger.Warn("SIGNOUT_ADMIN_PASSWORD not set; admin routes disabled")
	}

	// Backups
	var dest export.Destination
	if cfg.BackupsEnabled() {
		d, err := export.NewS3Destination(ctx, cfg.BackupS3Bucket, cfg.BackupS3Region, cfg.BackupS3Endpoint)
		if err != nil {
			return err
		}
		dest = d
	}
	backups := export.NewBackupScheduler(boards.Ledgers(), dest, export.BackupConfig{
		Interval: cfg.BackupInterval,
		Prefix:   cfg.BackupS3Prefix,
	}, logger)
	backups.Start(ctx)
	defer backups.Stop()

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:   logger,
		Addr:     cfg.HTTPAddr,
		Boards:   boards,
		Roster:   dir,
		Admin:    admin,
		Location: cfg.Location(),
	})

	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	// gRPC health
	var health *grpcapi.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		health = grpcapi.NewServer(boards, grpcapi.DefaultProbeInterval, logger)
		health.Probe(ctx)
		go func() {
			if err := health.Serve(ctx, lis); err != nil {
				logger.Error("grpc server error", "err", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if health != nil {
		health.Stop()
	}
	return srv.Shutdown(shutdownCtx)
}
