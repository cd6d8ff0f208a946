package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Ticker is the countdown a TickWorker drives, normally a *session.Controller.
type Ticker interface {
	Tick(ctx context.Context) error
	Done() <-chan struct{}
	QuizID() string
}

// TickWorker calls Tick once per interval until the session ends or ctx is
// cancelled.
type TickWorker struct {
	target   Ticker
	interval time.Duration
	log      zerolog.Logger
}

// NewTickWorker creates a TickWorker with a one second interval.
func NewTickWorker(target Ticker, log zerolog.Logger) *TickWorker {
	return &TickWorker{
		target:   target,
		interval: time.Second,
		log:      log.With().Str("component", "tick_worker").Str("quiz_id", target.QuizID()).Logger(),
	}
}

// WithInterval overrides the tick interval.
func (w *TickWorker) WithInterval(d time.Duration) *TickWorker {
	if d > 0 {
		w.interval = d
	}
	return w
}

// Start begins the worker loop. Call in a goroutine.
func (w *TickWorker) Start(ctx context.Context) {
	w.log.Debug().Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug().Msg("Worker stopped")
			return
		case <-w.target.Done():
			w.log.Debug().Msg("Session ended, worker stopped")
			return
		case <-ticker.C:
			// A failed forced submission is kept for a manual retry.
			if err := w.target.Tick(ctx); err != nil {
				w.log.Warn().Err(err).Msg("Tick failed")
			}
		}
	}
}
