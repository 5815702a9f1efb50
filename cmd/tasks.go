package cmd

import (
	"fmt"
	"time"

	"stanfood-backend/internal/db"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired events once and wait for the cleanup to finish",
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

			result, err := a.sweeper.Sweep(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			result.Wait()

			log.Info().
				Str("sweep_id", result.SweepID).
				Int("scanned", result.Scanned).
				Int("expired", result.Expired).
				Int("skipped", result.Skipped).
				Msg("Sweep finished")
			return nil
		},
	}
}

func notifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notify <event-id>",
		Short: "Send the new-event notification for an existing event",
		Args:  cobra.ExactArgs(1),
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

			result, err := a.notifier.NotifyByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			log.Info().
				Str("event_id", result.EventID).
				Int("recipients", len(result.Recipients)).
				Int("failures", result.Failures).
				Strs("stale_tokens", result.StaleTokens).
				Msg("Notification finished")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			pool, err := db.Connect(cmd.Context(), &cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			switch direction {
			case "up":
				return db.MigrateUp(pool)
			case "down":
				return db.MigrateDown(pool)
			default:
				return fmt.Errorf("unknown migrate direction %q", direction)
			}
		},
	}
}
