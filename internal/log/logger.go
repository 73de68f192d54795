package log

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// ErrUnknownLevel is returned by ParseLevel for an unrecognized name.
var ErrUnknownLevel = errors.New("unknown log level")

// Options configures New.
type Options struct {
	// Level is the minimum level that is written.
	Level slog.Level

	// JSON selects one JSON object per line instead of console output.
	JSON bool

	// NoColor disables ANSI colours in console output.
	NoColor bool

	// RedactKeys are attribute keys masked in addition to the built-in
	// list, for example custom request header names.
	RedactKeys []string
}

// New creates a logger that writes to w and masks sensitive values.
//
// Console output goes through tint; JSON output through
// slog.JSONHandler. Both are wrapped in a SecureHandler, so the same
// logger can be handed to tornago and the crawl engine.
func New(w io.Writer, opts Options) *slog.Logger {
	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level})
	} else {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.TimeOnly,
			NoColor:    opts.NoColor,
		})
	}
	return slog.New(NewSecureHandler(handler, opts.RedactKeys...))
}

// ParseLevel maps DEBUG, INFO, WARNING (or WARN) and ERROR, in any case,
// to slog levels.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO", "":
		return slog.LevelInfo, nil
	case "WARNING", "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
	}
}
