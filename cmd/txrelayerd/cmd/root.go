// Package cmd wires the relayer CLI: mnemonic and gas price management, path
// creation and the relay loop itself.
package cmd

import (
	"os"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tokenize-x/tx-relayer/pkg/config"
)

// NewRootCmd returns the txrelayerd root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "txrelayerd",
		Short:         "IBC relayer between cosmos and gno chains",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		AddMnemonicCmd(),
		AddGasPriceCmd(),
		AddPathCmd(),
		RelayCmd(),
		DumpPathsCmd(),
	)
	return rootCmd
}

// newLogger builds the root logger honoring LOG_LEVEL; unknown levels fall back to
// info.
func newLogger(cfg config.Config) log.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return log.NewLogger(os.Stderr, log.LevelOption(level))
}

// loadConfig loads the environment configuration with a bootstrap logger for clamp
// warnings, then returns the config and the properly leveled logger.
func loadConfig() (config.Config, log.Logger) {
	bootstrap := log.NewLogger(os.Stderr)
	cfg := config.Load(bootstrap)
	return cfg, newLogger(cfg)
}
