package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"stanfood-backend/internal/handlers"
	"stanfood-backend/internal/listener"
	"stanfood-backend/internal/scheduler"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server, event listener and sweep scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			return serve(a)
		},
	}
}

func serve(a *app) error {
	cfg := a.cfg

	// Background workers stop when ctx is cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var workers sync.WaitGroup

	if cfg.Notifications.Listen {
		l := listener.New(cfg.Database.DSN(), a.notifier)
		workers.Add(1)
		go func() {
			defer workers.Done()
			l.Run(ctx)
		}()
	}

	if cfg.Sweep.Enabled {
		s, err := scheduler.New(cfg.Sweep.Schedule, a.sweeper)
		if err != nil {
			return err
		}
		workers.Add(1)
		go func() {
			defer workers.Done()
			s.Run(ctx)
		}()
	}

	router := newRouter(cfg, routeHandlers{
		sweep:         handlers.NewSweepHandler(a.sweeper),
		events:        handlers.NewEventHandler(a.events),
		notifications: handlers.NewNotificationHandler(a.notifier),
		health:        handlers.NewHealthHandler(a.db),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	cancel()
	workers.Wait()

	// Cleanups started by earlier sweeps still need the pool
	if err := a.sweeper.Drain(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutting down with sweep cleanups in flight")
	}

	log.Info().Msg("Server exited")
	return nil
}
