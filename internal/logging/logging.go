// Package logging builds the process logger. Everything logs to stderr so
// stdout stays clean for results.
package logging

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Encodings accepted by --log-format.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options select level and encoding.
type Options struct {
	Verbose bool
	Format  string // console (default) or json
}

// New builds a logger writing to w, starting from the production config:
// info level (debug with Verbose), ISO-8601 timestamps, no stack traces
// below error.
func New(w io.Writer, opt Options) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if opt.Verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch opt.Format {
	case "", FormatConsole:
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(config.EncoderConfig)
	case FormatJSON:
		enc = zapcore.NewJSONEncoder(config.EncoderConfig)
	default:
		return nil, fmt.Errorf("unknown log format %q (want %s or %s)", opt.Format, FormatConsole, FormatJSON)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), config.Level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
