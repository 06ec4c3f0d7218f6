package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/telemetry"
)

const (
	// MaxRetries is how many times one orphan is re-embedded before it is skipped
	MaxRetries = 3
	// DefaultGracePeriod keeps the sweep away from ingestions still in flight
	DefaultGracePeriod = time.Minute
	// DefaultBatchSize caps the orphans handled per sweep
	DefaultBatchSize = 50
)

// OrphanRepository finds resources that were stored without chunks.
type OrphanRepository interface {
	ListOrphans(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Resource, error)
}

// Reembedder rebuilds the chunks of an existing resource.
type Reembedder interface {
	Reembed(ctx context.Context, resource *domain.Resource) (int, error)
}

// RepairWorker re-embeds resources left without chunks by a partial ingestion.
type RepairWorker struct {
	repo      OrphanRepository
	service   Reembedder
	grace     time.Duration
	batchSize int
	now       func() time.Time
	logger    *slog.Logger

	mu       sync.Mutex
	attempts map[string]int
}

// NewRepairWorker creates a new RepairWorker instance
func NewRepairWorker(repo OrphanRepository, service Reembedder, logger *slog.Logger) *RepairWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepairWorker{
		repo:      repo,
		service:   service,
		grace:     DefaultGracePeriod,
		batchSize: DefaultBatchSize,
		now:       time.Now,
		logger:    logger.With("component", "repair"),
		attempts:  make(map[string]int),
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *RepairWorker) ProcessJobs(ctx context.Context) error {
	ctx, span := telemetry.StartTransaction(ctx, "RepairWorker.ProcessJobs", "job.repair")
	defer span.End()

	w.mu.Lock()
	givenUp := w.givenUpLocked()
	w.mu.Unlock()

	// abandoned orphans stay in the store, so over-fetch past them
	listed, err := w.repo.ListOrphans(ctx, w.now().Add(-w.grace), w.batchSize+len(givenUp))
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to list orphaned resources: %w", err)
	}

	orphans := make([]*domain.Resource, 0, len(listed))
	for _, r := range listed {
		if _, skip := givenUp[r.ID]; skip {
			continue
		}
		orphans = append(orphans, r)
		if len(orphans) == w.batchSize {
			break
		}
	}

	if len(orphans) == 0 {
		return nil
	}

	w.logger.Info("repairing orphaned resources", "count", len(orphans))

	for _, r := range orphans {
		w.repair(ctx, r)
	}
	return nil
}

func (w *RepairWorker) givenUpLocked() map[string]struct{} {
	out := make(map[string]struct{})
	for id, n := range w.attempts {
		if n >= MaxRetries {
			out[id] = struct{}{}
		}
	}
	return out
}

func (w *RepairWorker) repair(ctx context.Context, r *domain.Resource) {
	w.mu.Lock()
	attempts := w.attempts[r.ID]
	w.mu.Unlock()

	if attempts >= MaxRetries {
		return
	}

	n, err := w.service.Reembed(ctx, r)
	if err == nil {
		w.mu.Lock()
		delete(w.attempts, r.ID)
		w.mu.Unlock()
		w.logger.Info("resource repaired", "resource_id", r.ID, "chunks", n)
		return
	}

	w.mu.Lock()
	w.attempts[r.ID] = attempts + 1
	w.mu.Unlock()

	if attempts+1 >= MaxRetries {
		w.logger.Error("giving up on orphaned resource", "resource_id", r.ID, "attempts", attempts+1, "err", err)
		telemetry.CaptureError(ctx, fmt.Errorf("repair of resource %s failed after %d attempts: %w", r.ID, attempts+1, err))
		return
	}
	w.logger.Warn("repair failed, will retry", "resource_id", r.ID, "attempt", attempts+1, "max", MaxRetries, "err", err)
}
