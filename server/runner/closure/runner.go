// Package closure audits the tag closure table in the background.
// It reports rows that break the hierarchy shape and never repairs them.
package closure

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/chitoku-k/hoarder-sub005/server/internal/observability"
	"github.com/chitoku-k/hoarder-sub005/store"
)

// Violation describes one tag whose closure rows are inconsistent.
type Violation struct {
	TagID  uuid.UUID
	Reason string
}

type Runner struct {
	store    *store.Store
	metrics  *observability.Metrics
	logger   *slog.Logger
	interval time.Duration
}

// NewRunner creates a closure audit runner. metrics may be nil.
func NewRunner(store *store.Store, metrics *observability.Metrics, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:    store,
		metrics:  metrics,
		logger:   logger,
		interval: 30 * time.Minute,
	}
}

// Run starts the background task.
func (r *Runner) Run(ctx context.Context) {
	// Audit once on startup
	r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-ctx.Done():
			r.logger.Info("closure runner stopped")
			return
		}
	}
}

// RunOnce audits the closure table once and reports what it found.
func (r *Runner) RunOnce(ctx context.Context) []Violation {
	violations, err := r.audit(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("failed to audit closure table", slog.String("error", err.Error()))
		}
		return nil
	}

	if r.metrics != nil {
		r.metrics.ClosureViolations.Set(float64(len(violations)))
	}
	for _, v := range violations {
		r.logger.Warn("closure table violation",
			slog.String(observability.LogFieldTagID, v.TagID.String()),
			slog.String("reason", v.Reason))
	}
	return violations
}

func (r *Runner) audit(ctx context.Context) ([]Violation, error) {
	tags, err := r.store.ListTags(ctx, &store.FindTag{})
	if err != nil {
		return nil, err
	}
	paths, err := r.store.ListTagPaths(ctx, &store.FindTagPath{})
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(tags)+1)
	ids = append(ids, store.RootTagID)
	for _, tag := range tags {
		ids = append(ids, tag.ID)
	}
	return Audit(ids, paths), nil
}

// Audit checks the closure rows of every tag in ids. A tag is consistent when it
// has its self row and exactly one ancestor at each distance up to the root,
// which must be the farthest one. The root itself has no ancestors.
func Audit(ids []uuid.UUID, paths []*store.TagPath) []Violation {
	ancestors := make(map[uuid.UUID]map[int][]uuid.UUID, len(ids))
	for _, path := range paths {
		if ancestors[path.DescendantID] == nil {
			ancestors[path.DescendantID] = map[int][]uuid.UUID{}
		}
		ancestors[path.DescendantID][path.Distance] = append(ancestors[path.DescendantID][path.Distance], path.AncestorID)
	}

	var violations []Violation
	for _, id := range ids {
		if reason := checkTag(id, ancestors[id]); reason != "" {
			violations = append(violations, Violation{TagID: id, Reason: reason})
		}
	}
	slices.SortFunc(violations, func(a, b Violation) int {
		return bytes.Compare(a.TagID[:], b.TagID[:])
	})
	return violations
}

func checkTag(id uuid.UUID, byDistance map[int][]uuid.UUID) string {
	self := byDistance[0]
	if len(self) != 1 || self[0] != id {
		return "missing self path"
	}

	maxDistance := 0
	for distance, list := range byDistance {
		if len(list) != 1 {
			return fmt.Sprintf("%d ancestors at distance %d", len(list), distance)
		}
		maxDistance = max(maxDistance, distance)
	}
	if len(byDistance) != maxDistance+1 {
		return "gap in ancestor distances"
	}

	if id == store.RootTagID {
		if maxDistance > 0 {
			return "root has ancestors"
		}
		return ""
	}
	if maxDistance == 0 || byDistance[maxDistance][0] != store.RootTagID {
		return "not reachable from root"
	}
	return ""
}
