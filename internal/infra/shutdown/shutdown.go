package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

type hook struct {
	name string
	fn   func(context.Context) error
}

// Handler handles graceful shutdown.
type Handler struct {
	timeout time.Duration
	logger  *slog.Logger
	signals []os.Signal

	mu     sync.Mutex
	hooks  []hook
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewHandler creates a handler whose hooks share a timeout.
func NewHandler(timeout time.Duration, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		timeout: timeout,
		logger:  logger,
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		done:    make(chan struct{}),
	}
}

// Context returns a child of parent that is cancelled on the first
// shutdown signal or on Trigger.
func (h *Handler) Context(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, h.signals...)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			h.logger.Info("shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx
}

// Trigger cancels the context returned by Context.
func (h *Handler) Trigger() {
	h.mu.Lock()
	cancel := h.cancel
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// OnShutdown registers a named hook. Hooks run in reverse order of
// registration.
func (h *Handler) OnShutdown(name string, fn func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook{name: name, fn: fn})
}

// Wait blocks until ctx is done, then runs the hooks once. Every hook
// runs even when an earlier one fails; the failures are joined.
func (h *Handler) Wait(ctx context.Context) error {
	<-ctx.Done()
	return h.Run()
}

// Run executes the hooks without waiting. Only the first call runs them.
func (h *Handler) Run() error {
	var err error
	h.once.Do(func() {
		defer close(h.done)
		err = h.runHooks()
	})
	return err
}

func (h *Handler) runHooks() error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.mu.Lock()
	hooks := append([]hook(nil), h.hooks...)
	h.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		hk := hooks[i]
		start := time.Now()
		if err := hk.fn(ctx); err != nil {
			h.logger.Error("shutdown hook failed", "hook", hk.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", hk.name, err))
			continue
		}
		h.logger.Debug("shutdown hook done", "hook", hk.name, "elapsed", time.Since(start))
	}
	return errors.Join(errs...)
}

// Done returns a channel that closes when the hooks have run.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
