// Package output renders collected fields through plugin formatters, falling
// back to the built-in json and text renderers.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"text/tabwriter"

	"github.com/andrei-cloud/go_draconis/pkg/plugin"
	"github.com/jmgilman/go/errors"
)

// Built-in format names.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ErrUnknownFormat is returned when neither a plugin nor a built-in renderer handles a format.
var ErrUnknownFormat = errors.New(errors.CodeInvalidInput, "no formatter for requested format")

// Result is rendered output.
type Result struct {
	Body      string
	Extension string
	// Renderer is the plugin name, or "builtin".
	Renderer string
}

// Render uses the first formatter whose FormatNames lists format. Plugins
// take precedence over the built-in renderers.
func Render(format string, data map[string]string, formatters []plugin.OutputFormatter) (Result, error) {
	for _, f := range formatters {
		if !slices.Contains(f.FormatNames(), format) {
			continue
		}
		body, err := f.FormatOutput(format, data)
		if err != nil {
			return Result{}, errors.Wrapf(err, errors.CodeExecutionFailed,
				"formatter %s failed", f.Metadata().Name)
		}

		return Result{Body: body, Extension: f.FileExtension(format), Renderer: f.Metadata().Name}, nil
	}

	switch format {
	case FormatJSON:
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return Result{}, err
		}

		return Result{Body: string(out) + "\n", Extension: "json", Renderer: "builtin"}, nil
	case FormatText, "":
		return Result{Body: renderText(data), Extension: "txt", Renderer: "builtin"}, nil
	default:
		return Result{}, errors.Wrapf(ErrUnknownFormat, errors.CodeInvalidInput, "format %q", format)
	}
}

// Names returns every format name Render accepts, sorted.
func Names(formatters []plugin.OutputFormatter) []string {
	names := []string{FormatJSON, FormatText}
	for _, f := range formatters {
		names = append(names, f.FormatNames()...)
	}
	sort.Strings(names)

	return slices.Compact(names)
}

func renderText(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "%s:\t%s\n", k, data[k])
	}
	_ = w.Flush()

	return buf.String()
}
