// Package commands implements the fpctl CLI: a thin host around the
// fingerprint pipeline, matcher, and catalog for generating
// signatures from WAV clips, matching a query against a catalog, and
// inspecting a catalog file.
package commands

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	verbose    bool
	presetName string

	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           log.InfoLevel,
	})
)

var rootCmd = &cobra.Command{
	Use:   "fpctl",
	Short: "Acoustic fingerprint generation and matching",
	Long: `fpctl drives the fingerprinting pipeline and streaming matcher
from the command line:

  fpctl generate   build a catalog entry from a WAV clip
  fpctl match       match a WAV query against a catalog
  fpctl catalog     inspect a saved catalog file

Configuration is read from fpctl.yaml in the working directory, if
present, as a YAML overlay on the selected platform preset (mobile,
desktop, server).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().StringVar(&presetName, "preset", "desktop", "config preset: mobile, desktop, server")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(catalogCmd)
}

func initConfig() {
	viper.SetConfigName("fpctl")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			logger.Warn("failed to read fpctl.yaml", "error", err)
		}
	}
}
