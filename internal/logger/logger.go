package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

const serviceName = "strata-violations"

func New(env string) zerolog.Logger {
	if env == "development" {
		return NewWithWriter(zerolog.ConsoleWriter{Out: os.Stderr}, env)
	}
	return NewWithWriter(os.Stderr, env)
}

// NewWithWriter logs debug and above in development and info and above
// elsewhere.
func NewWithWriter(w io.Writer, env string) zerolog.Logger {
	level := zerolog.InfoLevel
	if env == "development" {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("env", env).
		Logger()
}
