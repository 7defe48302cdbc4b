// Package cli provides centralized command registration.
package cli

import (
	"github.com/andrei-cloud/go_draconis/internal/commands/cli/cachecmd"
	"github.com/andrei-cloud/go_draconis/internal/commands/cli/info"
	"github.com/andrei-cloud/go_draconis/internal/commands/cli/plugin"
	"github.com/spf13/cobra"
)

// RegisterCommands registers all root commands.
func RegisterCommands(root *cobra.Command) error {
	root.AddCommand(info.NewInfoCommand())
	root.AddCommand(plugin.NewPluginCommand())
	root.AddCommand(cachecmd.NewCacheCommand())

	return nil
}
