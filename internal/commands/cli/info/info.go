// Package info provides the command that collects and renders system information.
package info

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andrei-cloud/go_draconis/internal/app"
	"github.com/andrei-cloud/go_draconis/internal/config"
	"github.com/andrei-cloud/go_draconis/internal/output"
	"github.com/andrei-cloud/go_draconis/internal/sysinfo"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewInfoCommand creates the info command.
func NewInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Collect and display system information",
		Long: `Collect host fields and the fields of every ready info-provider plugin,
then render them with the requested output format.`,
		RunE: runInfo,
	}

	cmd.Flags().StringP("format", "f", output.FormatText, "output format (text, json or any plugin format)")
	cmd.Flags().StringP("output", "o", "", "write to this file instead of stdout; the format's extension is added if missing")

	return cmd
}

func runInfo(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("output")

	appCtx, err := app.New(cmd.Context(), *config.Get())
	if err != nil {
		return err
	}
	defer func() {
		if err := appCtx.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to release plugins")
		}
	}()

	data, err := sysinfo.NewCollector(appCtx.Store).Collect(cmd.Context(), appCtx.Plugins.InfoProviders())
	if err != nil {
		return fmt.Errorf("failed to collect system information: %w", err)
	}

	res, err := output.Render(format, data, appCtx.Plugins.OutputFormatters())
	if err != nil {
		return fmt.Errorf("%w (available: %s)", err,
			strings.Join(output.Names(appCtx.Plugins.OutputFormatters()), ", "))
	}

	if outPath == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), res.Body)
		return err
	}

	if filepath.Ext(outPath) == "" && res.Extension != "" {
		outPath += "." + res.Extension
	}
	if err := os.WriteFile(outPath, []byte(res.Body), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	log.Info().Str("path", outPath).Str("renderer", res.Renderer).Msg("output written")

	return nil
}
