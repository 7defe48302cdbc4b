// Package cachecmd provides cache maintenance commands.
package cachecmd

import (
	"fmt"

	"github.com/andrei-cloud/go_draconis/internal/app"
	"github.com/andrei-cloud/go_draconis/internal/config"
	"github.com/andrei-cloud/go_draconis/internal/logging"
	"github.com/andrei-cloud/go_draconis/internal/plugins"
	"github.com/jmgilman/go/errors"
	"github.com/spf13/cobra"
)

// NewCacheCommand creates the cache command group.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Cache maintenance commands",
	}

	cmd.AddCommand(newClearCommand())
	cmd.AddCommand(newGetCommand())

	return cmd
}

func newClearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached values",
		Long: `Remove cached values. File-backed entries in the temp and persistent
directories are deleted only with --disk.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			disk, _ := cmd.Flags().GetBool("disk")

			store, err := app.NewStore(config.Get().Cache)
			if err != nil {
				return err
			}
			n, err := store.InvalidateAll(disk)
			if err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			logging.LogCacheEvent("clear", "*", "all", n)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %d cache files\n", n)

			return nil
		},
	}

	cmd.Flags().Bool("disk", false, "also delete file-backed entries")

	return cmd
}

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print a stored plugin cache value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Silence()

			store, err := app.NewStore(config.Get().Cache)
			if err != nil {
				return err
			}
			v, ok := plugins.NewCacheBridge(store).Get(args[0])
			if !ok {
				return errors.Newf(errors.CodeNotFound, "no live value for %q", args[0])
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), v)

			return nil
		},
	}
}
