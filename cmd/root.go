package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"carlink/market/internal/config"
	"carlink/market/internal/logger"
)

const app = "carlink"

var rootCmd = &cobra.Command{
	Use:           app,
	Short:         "carlink is the car marketplace backend: API, background workers and maintenance commands",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

// setup loads the configuration and builds the logger. Command-line flags
// win over LOG_DEBUG and LOG_JSON.
func setup(runMode string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(runMode)
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	if viper.GetBool("debug") {
		cfg.LogDebug = true
	}
	if viper.GetBool("json") {
		cfg.LogJSON = true
	}

	log, err := logger.New(cfg.LogJSON, cfg.LogDebug)
	if err != nil {
		return nil, nil, fmt.Errorf("creating a logger: %w", err)
	}
	return cfg, log, nil
}
