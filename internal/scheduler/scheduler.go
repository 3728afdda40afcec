// Package scheduler fires one scan per day at a configured wall-clock time.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ugcscan/ugcscan-go/internal/logging"
)

var (
	serviceLogger *slog.Logger
	loggerOnce    sync.Once
)

func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logging.ForService("scheduler")
	})
	return serviceLogger
}

// NextRun returns the next occurrence of the "15:04" formatted wall-clock
// time at, strictly after now.
func NextRun(now time.Time, at string) (time.Time, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing schedule time %q: %w", at, err)
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}

// Run blocks, invoking fn once per day at the configured time, until the
// context is canceled. fn runs on the scheduler's goroutine, so runs can
// never overlap; a trigger missed because the previous run overran is simply
// skipped and the loop waits for the next future occurrence.
func Run(ctx context.Context, at string, fn func(context.Context)) error {
	log := getLogger()

	for {
		next, err := NextRun(time.Now(), at)
		if err != nil {
			return err
		}
		log.Info("waiting for next scheduled scan", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		fn(ctx)
	}
}
