package closure

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chitoku-k/hoarder-sub005/server/internal/observability"
	"github.com/chitoku-k/hoarder-sub005/store"
	teststore "github.com/chitoku-k/hoarder-sub005/store/test"
)

func path(ancestor, descendant uuid.UUID, distance int) *store.TagPath {
	return &store.TagPath{AncestorID: ancestor, DescendantID: descendant, Distance: distance}
}

func TestAudit(t *testing.T) {
	root := store.RootTagID
	a, b := uuid.New(), uuid.New()
	consistent := []*store.TagPath{
		path(root, root, 0),
		path(a, a, 0),
		path(root, a, 1),
		path(b, b, 0),
		path(a, b, 1),
		path(root, b, 2),
	}

	tests := []struct {
		name   string
		paths  []*store.TagPath
		want   []uuid.UUID
		reason string
	}{
		{
			name:  "consistent",
			paths: consistent,
		},
		{
			name:   "missing self path",
			paths:  []*store.TagPath{path(root, root, 0), path(a, a, 0), path(root, a, 1), path(a, b, 1), path(root, b, 2)},
			want:   []uuid.UUID{b},
			reason: "missing self path",
		},
		{
			name:   "two parents",
			paths:  append(append([]*store.TagPath{}, consistent...), path(root, b, 1)),
			want:   []uuid.UUID{b},
			reason: "2 ancestors at distance 1",
		},
		{
			name:   "gap",
			paths:  []*store.TagPath{path(root, root, 0), path(a, a, 0), path(root, a, 2), path(b, b, 0), path(a, b, 1), path(root, b, 3)},
			want:   []uuid.UUID{a, b},
			reason: "gap in ancestor distances",
		},
		{
			name:   "detached from root",
			paths:  []*store.TagPath{path(root, root, 0), path(a, a, 0), path(root, a, 1), path(b, b, 0)},
			want:   []uuid.UUID{b},
			reason: "not reachable from root",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := Audit([]uuid.UUID{root, a, b}, tt.paths)
			ids := make([]uuid.UUID, 0, len(violations))
			for _, v := range violations {
				ids = append(ids, v.TagID)
				if v.TagID == b {
					assert.Equal(t, tt.reason, v.Reason)
				}
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}
}

func TestRunOnceOnSeededStore(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewSeededTestingStore(ctx, t)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	metrics.ClosureViolations.Set(5)

	runner := NewRunner(ts, metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))
	violations := runner.RunOnce(ctx)
	require.Empty(t, violations)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ClosureViolations))
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ts := teststore.NewTestingStore(ctx, t)
	runner := NewRunner(ts, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()
	cancel()
	<-done
}
