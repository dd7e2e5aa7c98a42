// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup points the global logger at w with a console writer
func Setup(level string, w io.Writer) error {
	return configure(level, zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen})
}

func configure(level string, w zerolog.ConsoleWriter) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", level)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	log.Logger = zerolog.New(w).
		With().
		Timestamp().
		Logger()
	return nil
}

// SetupFile is used while a full-screen view owns the terminal. The returned
// closer must be closed on exit.
func SetupFile(level, path string) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create log directory")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open log file")
	}
	if err := configure(level, zerolog.ConsoleWriter{Out: f, NoColor: true, TimeFormat: time.RFC3339}); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
