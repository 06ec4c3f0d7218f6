package jobs

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// JobProcessor runs one sweep of background work.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker runs a JobProcessor once at start and then on every tick.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	sweepTimeout time.Duration
	logger       *slog.Logger

	started  atomic.Bool
	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithSweepTimeout bounds each sweep. Zero means a sweep runs until the
// worker's context ends.
func WithSweepTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) { w.sweepTimeout = d }
}

func NewWorker(processor JobProcessor, pollInterval time.Duration, logger *slog.Logger, opts ...WorkerOption) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		logger:       logger.With("component", "worker"),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start blocks until ctx is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	w.started.Store(true)
	defer close(w.doneChan)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker started", "poll_interval", w.pollInterval)
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped", "reason", "context cancelled")
			return
		case <-w.stopChan:
			w.logger.Info("worker stopped", "reason", "stop signal")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	if w.sweepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.sweepTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := w.processor.ProcessJobs(ctx); err != nil {
		w.logger.Error("sweep failed", "err", err, "duration", time.Since(start))
		return
	}
	w.logger.Debug("sweep complete", "duration", time.Since(start))
}

// Stop ends the loop and waits for an in-flight sweep. It is safe to call
// more than once, and before Start.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	if w.started.Load() {
		<-w.doneChan
	}
}
