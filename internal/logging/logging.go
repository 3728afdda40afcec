// Package logging sets up the process-wide structured logger and hands out
// service-scoped child loggers.
package logging

import (
	"log/slog"
	"os"
	"sync"
)

var (
	baseLogger *slog.Logger
	levelVar   = new(slog.LevelVar)
	initOnce   sync.Once
)

// Init initializes the logging system. JSON output goes to stdout so log
// shippers can pick it up; the level defaults to Info and is raised to Debug
// when debug is set. Safe to call more than once, only the first call wins.
func Init(debug bool) {
	initOnce.Do(func() {
		levelVar.Set(slog.LevelInfo)
		if debug {
			levelVar.Set(slog.LevelDebug)
		}
		handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: levelVar,
		})
		baseLogger = slog.New(handler)
		slog.SetDefault(baseLogger)
	})
}

// SetLevel adjusts the minimum level of all loggers handed out by this package.
func SetLevel(level slog.Level) {
	levelVar.Set(level)
}

// ForService returns a logger scoped to the named service. All records carry a
// "service" attribute so output from different subsystems can be told apart.
func ForService(service string) *slog.Logger {
	if baseLogger == nil {
		Init(false)
	}
	return baseLogger.With("service", service)
}
