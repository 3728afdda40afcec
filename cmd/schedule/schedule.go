// Package schedule implements the resident daily-scan subcommand.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ugcscan/ugcscan-go/internal/conf"
	"github.com/ugcscan/ugcscan-go/internal/logging"
	"github.com/ugcscan/ugcscan-go/internal/observability"
	"github.com/ugcscan/ugcscan-go/internal/runtime"
	"github.com/ugcscan/ugcscan-go/internal/scheduler"
)

// Command creates the schedule command, which stays resident and runs one
// scan per day at the configured time.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run one scan per day at the configured time",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(cmd.Context(), settings)
		},
	}

	setupFlags(cmd, settings)

	return cmd
}

func runSchedule(ctx context.Context, settings *conf.Settings) error {
	if len(settings.Scan.Keywords) == 0 {
		return fmt.Errorf("no keywords configured; set scan.keywords in the config")
	}

	log := logging.ForService("schedule")

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	if settings.Metrics.Enabled {
		server := &http.Server{
			Addr:              settings.Metrics.Listen,
			Handler:           observability.Handler(registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics listener failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Warn("metrics listener shutdown failed", "error", err)
			}
		}()
		log.Info("metrics listener started", "listen", settings.Metrics.Listen)
	}

	s, cleanup, err := runtime.BuildScanner(settings, metrics)
	if err != nil {
		return err
	}
	defer cleanup()

	return scheduler.Run(ctx, settings.Schedule.At, func(runCtx context.Context) {
		summary, err := s.Run(runCtx, settings.Scan.Keywords, settings.Scan.Limit)
		if err != nil {
			log.Error("scheduled scan failed", "error", err)
			return
		}
		log.Info("scheduled scan finished",
			"run_id", summary.RunID,
			"scanned", summary.Scanned,
			"flagged", summary.Flagged,
			"skipped", summary.Skipped)
	})
}

// setupFlags configures flags specific to the schedule command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringVar(&settings.Schedule.At, "at", viper.GetString("schedule.at"), "Daily trigger time, HH:MM")
	cmd.Flags().StringSliceVarP(&settings.Scan.Keywords, "keywords", "k", viper.GetStringSlice("scan.keywords"), "Keywords to scan, comma separated")
	cmd.Flags().IntVarP(&settings.Scan.Limit, "limit", "l", viper.GetInt("scan.limit"), "Item limit per keyword")
}
