package fusion

import (
	"io"
	"log/slog"
)

// logger is the package-level diagnostic logger. It defaults to slog.Default()
// and may be replaced with SetLogger.
var logger = slog.Default()

// SetLogger replaces the package logger. Passing nil mutes logging.
func SetLogger(l *slog.Logger) {
	if l == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		return
	}
	logger = l
}
