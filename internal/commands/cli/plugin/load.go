package plugin

import (
	"github.com/andrei-cloud/go_draconis/internal/app"
	"github.com/andrei-cloud/go_draconis/internal/plugins"
	"github.com/jmgilman/go/errors"
	"github.com/spf13/cobra"
)

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load NAME...",
		Short: "Load plugins and report their state",
		Long: `Load each named plugin, print its record and unload it again.
Use it to check that a plugin builds, initializes and reports ready.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(appCtx *app.Context) error {
				var failed []string
				records := make([]plugins.LoadedPlugin, 0, len(args))

				for _, name := range args {
					if err := appCtx.Plugins.LoadPlugin(name, appCtx.Store); err != nil {
						cmd.PrintErrf("%s: %v\n", name, err)
						failed = append(failed, name)
					}
					if rec, ok := appCtx.Plugins.GetPlugin(name); ok {
						records = append(records, rec)
					}
				}

				if err := writeRecords(cmd, records); err != nil {
					return err
				}
				if len(failed) > 0 {
					return errors.Newf(errors.CodeExecutionFailed, "%d of %d plugins failed to load", len(failed), len(args))
				}

				return nil
			})
		},
	}
}
