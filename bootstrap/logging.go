package bootstrap

import (
	"fmt"
	"io"
	"os"
	"strings"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"

	"github.com/najoast/coact/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the application logger from the log configuration. The
// returned closer releases the output file, if any.
func NewLogger(cfg config.LogConfig) (log.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level.String()))
	if err != nil {
		return nil, nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	var (
		w      io.Writer
		closer io.Closer = nopCloser{}
		color  = cfg.Color
	)
	switch cfg.Output {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log output: %w", err)
		}
		w, closer, color = f, f, false
	}

	opts := []log.Option{log.LevelOption(level)}
	if cfg.Format == config.LogFormatJSON {
		opts = append(opts, log.OutputJSONOption())
	} else {
		opts = append(opts, log.ColorOption(color))
	}

	return log.NewLogger(w, opts...), closer, nil
}
