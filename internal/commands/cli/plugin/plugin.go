// Package plugin provides plugin management commands.
package plugin

import (
	"github.com/andrei-cloud/go_draconis/internal/app"
	"github.com/andrei-cloud/go_draconis/internal/config"
	"github.com/andrei-cloud/go_draconis/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewPluginCommand creates the main plugin command group.
func NewPluginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Plugin management commands",
		Long:  `Commands for discovering, loading and scaffolding go_draconis plugins.`,
	}

	// Add subcommands.
	cmd.AddCommand(NewCreateCommand())
	cmd.AddCommand(NewListCommand())
	cmd.AddCommand(NewDiscoveredCommand())
	cmd.AddCommand(NewLoadCommand())
	cmd.AddCommand(NewBrowseCommand())

	return cmd
}

// withApp runs fn with a fresh application context and releases it afterwards.
// Logging is disabled so tables stay clean.
func withApp(cmd *cobra.Command, fn func(*app.Context) error) error {
	logging.Silence()

	appCtx, err := app.New(cmd.Context(), *config.Get())
	if err != nil {
		return err
	}
	defer func() {
		if err := appCtx.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to release plugins")
		}
	}()

	return fn(appCtx)
}
