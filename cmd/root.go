// Package cmd implements the vipsscaler CLI commands.
package cmd

import (
	"fmt"
	"os"
	"vipsscaler/internal/adapters/executor"
	"vipsscaler/internal/adapters/file"
	"vipsscaler/internal/config"
	"vipsscaler/internal/core/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:          "vipsscaler",
	Short:        "Scale images through vipsthumbnail",
	Long:         "vipsscaler runs vipsthumbnail as a sandboxed subprocess, either once from the command line or behind a Telegram bot.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file or directory holding config.toml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(thumbCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	zerolog.SetGlobalLevel(cfg.Level())

	return cfg, nil
}

// newScaler wires the transform service. The returned store is the one the service
// allocates from, callers use it to fetch inputs and remove results.
func newScaler(cfg *config.Config) (*service.Scaler, *file.TempStore, error) {
	binary, err := executor.ResolveBinary(cfg.Scaler.Binary)
	if err != nil {
		return nil, nil, err
	}

	store, err := file.NewTempStore(cfg.Scaler.TempDir, cfg.Scaler.TempPrefix)
	if err != nil {
		return nil, nil, err
	}

	log.Info().Str("binary", binary).Str("tempDir", store.Dir()).Msg("scaler ready")

	runner := executor.NewRunner(cfg.Scaler.CaptureLimit(), cfg.Scaler.KillGrace)

	return service.NewScaler(store, runner, cfg.Scaler.Service(binary)), store, nil
}
