package ratelimit

import (
	"log/slog"
	"time"
)

// Window is a sliding-window admission controller: at most maxCalls
// admissions within any trailing span. State is owned by whoever constructed
// the window; there is no package-level state.
//
// Not safe for concurrent use; the batch flow is strictly sequential.
type Window struct {
	maxCalls int
	span     time.Duration
	stamps   []time.Time
	logger   *slog.Logger

	// swapped out in tests
	now   func() time.Time
	sleep func(time.Duration)
}

func New(maxCalls int, span time.Duration, logger *slog.Logger) *Window {
	if maxCalls <= 0 {
		maxCalls = 1
	}
	if span <= 0 {
		span = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Window{
		maxCalls: maxCalls,
		span:     span,
		logger:   logger,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Admit blocks until one more call fits under maxCalls within the trailing
// span, then records the admission timestamp. The only suspension is a plain
// timed sleep until the oldest retained stamp leaves the window.
func (w *Window) Admit() {
	now := w.now()
	w.purge(now)
	if len(w.stamps) >= w.maxCalls {
		wait := w.span - now.Sub(w.stamps[0])
		if wait > 0 {
			w.logger.Info("ratelimit.wait",
				"wait", wait.Round(100*time.Millisecond).String(),
				"in_window", len(w.stamps),
			)
			w.sleep(wait)
		}
		w.purge(w.now())
	}
	w.stamps = append(w.stamps, w.now())
}

// purge drops stamps that have aged out of the window.
func (w *Window) purge(now time.Time) {
	cut := 0
	for cut < len(w.stamps) && now.Sub(w.stamps[cut]) >= w.span {
		cut++
	}
	if cut > 0 {
		w.stamps = w.stamps[cut:]
	}
}
