package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes the global zerolog logger. Logs go to stderr so
// they never mix with rendered output on stdout.
func InitLogger(level string, human bool) {
	initLogger(os.Stderr, level, human)
}

func initLogger(out io.Writer, level string, human bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	base := zerolog.New(out).With().Timestamp().Logger()
	if human {
		log.Logger = base.Output(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339Nano,
		})
	} else {
		log.Logger = base
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, using info")
	}
}

// IsHuman reports whether format selects console output.
func IsHuman(format string) bool {
	return !strings.EqualFold(strings.TrimSpace(format), "json")
}

// Silence disables the global logger. Listing commands use it to keep
// their tables clean.
func Silence() {
	log.Logger = log.Logger.Level(zerolog.Disabled)
}

// LogPluginEvent logs a plugin lifecycle event with structured fields.
func LogPluginEvent(event, name string, err error) {
	if err != nil {
		log.Warn().
			Err(err).
			Str("event", event).
			Str("plugin", name).
			Msg("plugin event failed")

		return
	}

	log.Debug().
		Str("event", event).
		Str("plugin", name).
		Msg("plugin event")
}

// LogCacheEvent logs a cache maintenance event with structured fields.
func LogCacheEvent(event, key, location string, count int) {
	log.Info().
		Str("event", event).
		Str("key", key).
		Str("location", location).
		Int("count", count).
		Msg("cache event")
}
