package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrTooManyFailures is returned when a loop hits its consecutive-failure ceiling
var ErrTooManyFailures = errors.New("too many consecutive failures")

// Loop runs items one at a time. A failing item is logged and skipped;
// MaxConsecutiveFailures failures in a row abort the loop early.
type Loop struct {
	Name                   string
	MaxConsecutiveFailures int // <= 0 means never abort
	Logger                 *slog.Logger
}

// LoopResult summarizes a loop run
type LoopResult struct {
	Processed int // items attempted
	Succeeded int
	Failed    int
	Aborted   bool // stopped by the failure ceiling
}

// Each calls fn for every item in order. It returns ErrTooManyFailures
// (wrapped) when the ceiling is reached and ctx.Err() when cancelled.
func Each[T any](ctx context.Context, l Loop, items []T, fn func(context.Context, T) error) (LoopResult, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var res LoopResult
	consecutive := 0

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		res.Processed++
		if err := fn(ctx, item); err != nil {
			res.Failed++
			consecutive++
			logger.Warn("item failed", "loop", l.Name, "index", i, "consecutive_failures", consecutive, "error", err)

			if l.MaxConsecutiveFailures > 0 && consecutive >= l.MaxConsecutiveFailures {
				res.Aborted = true
				return res, fmt.Errorf("%s: %w (%d)", l.Name, ErrTooManyFailures, consecutive)
			}
			continue
		}

		res.Succeeded++
		consecutive = 0
	}

	return res, nil
}
