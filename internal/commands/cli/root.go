// Package cli provides the CLI command structure for go_draconis.
package cli

import (
	"fmt"

	"github.com/andrei-cloud/go_draconis/internal/config"
	"github.com/andrei-cloud/go_draconis/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// NewRootCommand creates and returns the root command with all subcommands.
func NewRootCommand() (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:   "go_draconis",
		Short: "System information with cached, pluggable collectors and formatters",
		Long: `go_draconis collects system information, caches slow lookups and
extends both collection and output through static and dynamic plugins.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			// Initialize configuration before running any command.
			if err := config.Initialize(cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg := config.Get()
			logging.InitLogger(cfg.Log.Level, logging.IsHuman(cfg.Log.Format))

			return nil
		},
	}

	// Add persistent flags that affect all commands.
	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "config file (default is $HOME/.go_draconis/config.yaml)")

	// Add global flags that can override config file settings.
	rootCmd.PersistentFlags().
		String("log-level", "info", "logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "logging format (human, json)")
	rootCmd.PersistentFlags().
		StringSlice("plugin-path", nil, "additional plugin search directory (repeatable)")
	rootCmd.PersistentFlags().Bool("refresh", false, "ignore cached values and fetch everything again")

	// Bind flags to viper.
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("plugins.search_paths", rootCmd.PersistentFlags().Lookup("plugin-path"))
	viper.BindPFlag("cache.ignore", rootCmd.PersistentFlags().Lookup("refresh"))

	// Register all commands.
	if err := RegisterCommands(rootCmd); err != nil {
		return nil, fmt.Errorf("failed to register commands: %w", err)
	}

	return rootCmd, nil
}
