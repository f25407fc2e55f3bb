package logger

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Throttle returns a logger that emits at most burst records, refilled at
// one per every. Records over the limit are counted, and the next record
// that gets through carries the count as "suppressed".
//
// All loggers derived from the result with With share one budget.
func Throttle(l *slog.Logger, every time.Duration, burst int) *slog.Logger {
	if burst <= 0 {
		burst = 1
	}
	return slog.New(&throttleHandler{
		next:  l.Handler(),
		state: &throttleState{limiter: rate.NewLimiter(rate.Every(every), burst)},
	})
}

type throttleState struct {
	limiter    *rate.Limiter
	suppressed atomic.Int64
}

type throttleHandler struct {
	next  slog.Handler
	state *throttleState
}

func (h *throttleHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *throttleHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.state.limiter.Allow() {
		h.state.suppressed.Add(1)
		return nil
	}
	if n := h.state.suppressed.Swap(0); n > 0 {
		r = r.Clone()
		r.AddAttrs(slog.Int64("suppressed", n))
	}
	return h.next.Handle(ctx, r)
}

func (h *throttleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &throttleHandler{next: h.next.WithAttrs(attrs), state: h.state}
}

func (h *throttleHandler) WithGroup(name string) slog.Handler {
	return &throttleHandler{next: h.next.WithGroup(name), state: h.state}
}
