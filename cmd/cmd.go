// Package cmd wires configuration, storage and services into the stanfood CLI.
package cmd

import (
	"context"
	"fmt"
	"os"

	"stanfood-backend/internal/config"
	"stanfood-backend/internal/db"
	"stanfood-backend/internal/push"
	"stanfood-backend/internal/repository"
	"stanfood-backend/internal/services"
	"stanfood-backend/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configPath string

// Execute runs the root command
func Execute() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "stanfood",
		Short:         "Free food events backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")

	root.AddCommand(serveCmd())
	root.AddCommand(sweepCmd())
	root.AddCommand(notifyCmd())
	root.AddCommand(migrateCmd())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// loadConfig reads the config file and sets up the global logger
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogger(cfg.Log.Level)
	return cfg, nil
}

// app holds the shared pool and the services built on it
type app struct {
	cfg      *config.Config
	db       *pgxpool.Pool
	sweeper  *services.SweepService
	notifier *services.NotificationService
	events   *services.EventService
}

// newApp connects to the database and builds every service
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	pool, err := db.Connect(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	// Initialize repositories
	eventRepo := repository.NewEventRepository(pool)
	foodRepo := repository.NewFoodRepository(pool)
	pinRepo := repository.NewPinRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	blobs, err := newBlobStore(ctx, cfg.AWS)
	if err != nil {
		pool.Close()
		return nil, err
	}
	sender, err := newSender(cfg.APNs)
	if err != nil {
		pool.Close()
		return nil, err
	}
	loc, err := cfg.Notifications.Location()
	if err != nil {
		pool.Close()
		return nil, err
	}

	// Initialize services
	return &app{
		cfg:      cfg,
		db:       pool,
		sweeper:  services.NewSweepService(eventRepo, foodRepo, pinRepo, blobs),
		notifier: services.NewNotificationService(eventRepo, userRepo, sender, loc),
		events:   services.NewEventService(eventRepo),
	}, nil
}

func (a *app) Close() {
	a.db.Close()
}

// newBlobStore returns the S3 image store, or a log-only store without a bucket
func newBlobStore(ctx context.Context, cfg config.AWSConfig) (services.BlobStore, error) {
	if cfg.S3Bucket == "" {
		log.Warn().Msg("No S3 bucket configured, food images will not be deleted")
		return storage.LogOnlyStorage{}, nil
	}
	s3Storage, err := storage.NewS3Storage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create image storage: %w", err)
	}
	return s3Storage, nil
}

// newSender returns the APNs sender, or a log-only sender without a key
func newSender(cfg config.APNsConfig) (services.Sender, error) {
	if cfg.KeyFile == "" {
		log.Warn().Msg("No APNs key configured, notifications will only be logged")
		return push.LogSender{}, nil
	}
	sender, err := push.NewAPNsSender(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create push sender: %w", err)
	}
	return sender, nil
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
