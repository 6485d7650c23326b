package pipeline

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-tools/lattice/internal/clock"
	"github.com/halcyon-tools/lattice/internal/config"
	"github.com/halcyon-tools/lattice/internal/extract"
	"github.com/halcyon-tools/lattice/internal/fsys"
	"github.com/halcyon-tools/lattice/internal/watcher"
)

// TEST PLAN: coordinator
//
// 1. Events flow watcher -> scheduler -> one debounced cycle per quiet period
// 2. A burst of events for one file still produces exactly one graph write
// 3. Run exits on context cancellation and on channel close

func newCoordinatorFixture(t *testing.T, debounce time.Duration) (*Coordinator, *fixture) {
	t.Helper()

	cfg := config.Default()
	cfg.Paths.Extensions = []string{".go"}

	client := newMockClient()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := New(cfg, fsys.OS(), extract.NewGo(), client, logger)
	require.NoError(t, err)

	coord := NewCoordinator(p, debounce, clock.System(), logger)
	root := t.TempDir()
	p.AddProject("proj", root)

	return coord, &fixture{pipeline: p, client: client, root: root}
}

func TestCoordinator_DebouncedEventsReachTheGraph(t *testing.T) {
	t.Parallel()
	coord, f := newCoordinatorFixture(t, 50*time.Millisecond)

	f.writeFile(t, "a.go", goSource("Alpha"))
	f.writeFile(t, "b.go", goSource("Beta"))

	events := make(chan watcher.Event, 8)
	done := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { done <- coord.Run(ctx, events) }()

	// A save burst: several raw events, two distinct files.
	events <- watcher.Event{ProjectID: "proj", Path: "a.go", Kind: watcher.KindChange}
	events <- watcher.Event{ProjectID: "proj", Path: "a.go", Kind: watcher.KindChange}
	events <- watcher.Event{ProjectID: "proj", Path: "b.go", Kind: watcher.KindAdd}

	require.Eventually(t, func() bool {
		f.client.mu.Lock()
		defer f.client.mu.Unlock()
		return len(f.client.upsertCalls) == 1
	}, 3*time.Second, 10*time.Millisecond)

	f.client.mu.Lock()
	entities := f.client.upsertCalls[0]
	edges := f.client.edgeCalls
	f.client.mu.Unlock()

	assert.Len(t, entities, 2)
	require.Len(t, edges, 1)
	assert.ElementsMatch(t, []string{"a.go", "b.go"}, edges[0])

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestCoordinator_ChannelCloseStopsRun(t *testing.T) {
	t.Parallel()
	coord, _ := newCoordinatorFixture(t, time.Hour)

	events := make(chan watcher.Event)
	close(events)

	assert.NoError(t, coord.Run(context.Background(), events))
}
