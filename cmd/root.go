// Package cmd assembles the ugcscan command tree.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ugcscan/ugcscan-go/cmd/export"
	"github.com/ugcscan/ugcscan-go/cmd/scan"
	"github.com/ugcscan/ugcscan-go/cmd/schedule"
	"github.com/ugcscan/ugcscan-go/internal/conf"
	"github.com/ugcscan/ugcscan-go/internal/logging"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ugcscan",
		Short: "UGCScan catalog scanner",
		Long:  "Scans catalog listings by keyword, classifies item thumbnails and logs items that cross the confidence threshold.",
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		scan.Command(settings),
		schedule.Command(settings),
		export.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logging.Init(settings.Debug)
		return nil
	}

	return rootCmd
}

// setupFlags defines flags global to the command line interface.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Classifier.ModelPath, "model", viper.GetString("classifier.modelpath"), "Path to the TFLite model file")
	rootCmd.PersistentFlags().StringVar(&settings.Classifier.LabelPath, "labels", viper.GetString("classifier.labelpath"), "Path to the label file")
	rootCmd.PersistentFlags().Float64Var(&settings.Classifier.Threshold, "threshold", viper.GetFloat64("classifier.threshold"), "Confidence threshold for flagging")
}
