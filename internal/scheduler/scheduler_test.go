package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-tools/lattice/internal/clock"
)

// TEST PLAN: debounce scheduler
//
// 1. Events within the debounce window coalesce into exactly one fire
//    containing the union of all changed paths
// 2. Each event pushes the fire time back (timer reset, not first-event)
// 3. Independent projects debounce independently
// 4. Requeue re-arms the timer so deferred batches retry on their own
// 5. One warning log per backpressure eviction
// 6. Burst mode tracks enqueue rate, not processing state

// captureHandler records slog output so tests can count warnings.
type captureHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) countLevel(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level == level {
			n++
		}
	}
	return n
}

func newTestScheduler(t *testing.T, debounce time.Duration, fire FireFunc) (*Scheduler, *captureHandler) {
	t.Helper()
	handler := &captureHandler{}
	s := New(debounce, clock.System(), slog.New(handler), fire)
	t.Cleanup(s.Stop)
	return s, handler
}

func TestScheduler_CoalescesBurstIntoOneCycle(t *testing.T) {
	t.Parallel()

	fired := make(chan []string, 4)
	var s *Scheduler
	s, _ = newTestScheduler(t, 40*time.Millisecond, func(projectID string) {
		fired <- s.Drain(projectID)
	})

	s.Notify("proj", "a.go")
	s.Notify("proj", "b.go")
	s.Notify("proj", "a.go")
	s.Notify("proj", "c.go")

	select {
	case paths := <-fired:
		assert.ElementsMatch(t, []string{"a.go", "b.go", "c.go"}, paths)
	case <-time.After(2 * time.Second):
		t.Fatal("debounce never fired")
	}

	select {
	case paths := <-fired:
		t.Fatalf("unexpected second fire with %v", paths)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestScheduler_EventsResetTheTimer(t *testing.T) {
	t.Parallel()

	fired := make(chan time.Time, 4)
	s, _ := newTestScheduler(t, 60*time.Millisecond, func(projectID string) {
		fired <- time.Now()
	})

	start := time.Now()
	s.Notify("proj", "a.go")
	time.Sleep(35 * time.Millisecond)
	s.Notify("proj", "b.go") // inside the window: pushes the fire back

	select {
	case at := <-fired:
		// Fires debounce after the *latest* event, so never before the
		// second event plus the full interval.
		assert.GreaterOrEqual(t, at.Sub(start), 90*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("debounce never fired")
	}
}

func TestScheduler_ProjectsAreIndependent(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	fires := map[string]int{}
	done := make(chan struct{}, 8)

	s, _ := newTestScheduler(t, 30*time.Millisecond, func(projectID string) {
		mu.Lock()
		fires[projectID]++
		mu.Unlock()
		done <- struct{}{}
	})

	s.Notify("alpha", "a.go")
	s.Notify("beta", "b.go")

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("expected two independent fires")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]int{"alpha": 1, "beta": 1}, fires)
}

func TestScheduler_RequeueRearmsTimer(t *testing.T) {
	t.Parallel()

	fired := make(chan struct{}, 4)
	s, _ := newTestScheduler(t, 30*time.Millisecond, func(projectID string) {
		fired <- struct{}{}
	})

	s.Notify("proj", "a.go")
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("first fire missing")
	}

	drained := s.Drain("proj")
	require.Equal(t, []string{"a.go"}, drained)

	// A deferred cycle puts its batch back; the retry must not depend on
	// fresh events arriving.
	s.Requeue("proj", drained)
	assert.Equal(t, 1, s.PendingCount("proj"))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("requeue did not re-arm the debounce timer")
	}
}

func TestScheduler_OneWarningPerEviction(t *testing.T) {
	t.Parallel()

	s, handler := newTestScheduler(t, time.Hour, func(string) {})

	for i := 0; i < 600; i++ {
		s.Notify("proj", fmt.Sprintf("file%04d.go", i))
	}

	assert.Equal(t, queueCapacity, s.PendingCount("proj"))
	assert.Equal(t, 100, handler.countLevel(slog.LevelWarn))
}

func TestScheduler_BurstModeIsAdvisory(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t, time.Hour, func(string) {})

	assert.False(t, s.InBurstMode("proj"))
	for i := 0; i < burstThreshold; i++ {
		s.Notify("proj", fmt.Sprintf("file%d.go", i))
	}

	// Nothing was processed (the timer is an hour out), but the signal is
	// live: it tracks enqueue rate, not processing.
	assert.True(t, s.InBurstMode("proj"))
	assert.Equal(t, burstThreshold, s.PendingCount("proj"))
	assert.False(t, s.InBurstMode("other"))
}

func TestScheduler_DrainUnknownProjectIsEmpty(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t, time.Hour, func(string) {})
	assert.Nil(t, s.Drain("ghost"))
	assert.Zero(t, s.PendingCount("ghost"))
}
