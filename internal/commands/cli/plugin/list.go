package plugin

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/andrei-cloud/go_draconis/internal/app"
	"github.com/andrei-cloud/go_draconis/internal/plugins"
	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loaded plugins",
		Long:  `List the plugins loaded by auto-load with their metadata and state.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(appCtx *app.Context) error {
				return writeRecords(cmd, appCtx.Plugins.Records())
			})
		},
	}
}

func writeRecords(cmd *cobra.Command, records []plugins.LoadedPlugin) error {
	// Create tabwriter for aligned output.
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "Name\tVersion\tKind\tState\tRequires\tAuthor\tSource")
	_, _ = fmt.Fprintln(w, "----\t-------\t----\t-----\t--------\t------\t------")

	for _, rec := range records {
		requires := strings.Join(rec.Metadata.Dependencies.Flags(), ",")
		if requires == "" {
			requires = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.Name,
			rec.Metadata.Version,
			rec.Metadata.Kind,
			state(rec),
			requires,
			rec.Metadata.Author,
			rec.Path)
	}

	return w.Flush()
}

func state(rec plugins.LoadedPlugin) string {
	switch {
	case rec.LastError != nil:
		return "failed"
	case rec.Ready:
		return "ready"
	case rec.Initialized:
		return "not ready"
	default:
		return "loaded"
	}
}
