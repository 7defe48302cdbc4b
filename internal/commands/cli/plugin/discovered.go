package plugin

import (
	"fmt"
	"text/tabwriter"

	"github.com/andrei-cloud/go_draconis/internal/app"
	"github.com/spf13/cobra"
)

// NewDiscoveredCommand creates the discovered command.
func NewDiscoveredCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "discovered",
		Short: "List loadable plugins",
		Long:  `List static plugins compiled into the binary and dynamic plugins found in the search paths.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(appCtx *app.Context) error {
				pm := appCtx.Plugins

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
				_, _ = fmt.Fprintln(w, "Name\tSource\tLoaded")
				_, _ = fmt.Fprintln(w, "----\t------\t------")
				for _, name := range pm.ListStaticPlugins() {
					_, _ = fmt.Fprintf(w, "%s\tstatic\t%t\n", name, pm.IsPluginLoaded(name))
				}
				for _, name := range pm.ListDiscoveredPlugins() {
					_, _ = fmt.Fprintf(w, "%s\tdynamic\t%t\n", name, pm.IsPluginLoaded(name))
				}
				if err := w.Flush(); err != nil {
					return err
				}

				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\nSearch paths:")
				for _, p := range pm.SearchPaths() {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", p)
				}

				return nil
			})
		},
	}
}
