// Package scan implements the one-shot scan subcommand.
package scan

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ugcscan/ugcscan-go/internal/conf"
	"github.com/ugcscan/ugcscan-go/internal/observability"
	"github.com/ugcscan/ugcscan-go/internal/runtime"
)

// Command creates the scan command, which runs one scan and exits.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one catalog scan",
		Long:  "Searches the catalog for the configured keywords, classifies each item's thumbnail and appends positives to the flag log.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, settings)
		},
	}

	setupFlags(cmd, settings)

	return cmd
}

func runScan(cmd *cobra.Command, settings *conf.Settings) error {
	if len(settings.Scan.Keywords) == 0 {
		return fmt.Errorf("no keywords given; use --keywords or set scan.keywords in the config")
	}

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	s, cleanup, err := runtime.BuildScanner(settings, metrics)
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := s.Run(cmd.Context(), settings.Scan.Keywords, settings.Scan.Limit)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	fmt.Printf("Scanned %d items, flagged %d, skipped %d in %s\n",
		summary.Scanned, summary.Flagged, summary.Skipped, summary.Duration.Round(time.Millisecond))
	return nil
}

// setupFlags configures flags specific to the scan command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringSliceVarP(&settings.Scan.Keywords, "keywords", "k", viper.GetStringSlice("scan.keywords"), "Keywords to scan, comma separated")
	cmd.Flags().IntVarP(&settings.Scan.Limit, "limit", "l", viper.GetInt("scan.limit"), "Item limit per keyword")
	cmd.Flags().BoolVar(&settings.FlagLog.Dedupe, "dedupe", viper.GetBool("flaglog.dedupe"), "Skip items already present in the flag log")
}
