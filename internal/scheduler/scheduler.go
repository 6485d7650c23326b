package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/halcyon-tools/lattice/internal/clock"
)

// FireFunc is invoked once per processing cycle, after a project has been
// quiet for the debounce interval. It runs on the timer's goroutine.
type FireFunc func(projectID string)

// Scheduler coalesces bursty file events into one processing cycle per
// project. Each project owns a bounded change queue, a burst window, and a
// single debounce timer that is cancelled and rescheduled on every event.
type Scheduler struct {
	debounce time.Duration
	clock    clock.Clock
	logger   *slog.Logger
	fire     FireFunc

	mu       sync.Mutex
	projects map[string]*projectState
	stopped  bool
}

type projectState struct {
	queue *ChangeQueue
	burst *BurstWindow
	timer *time.Timer
}

// New creates a scheduler that invokes fire after each quiet period.
func New(debounce time.Duration, clk clock.Clock, logger *slog.Logger, fire FireFunc) *Scheduler {
	return &Scheduler{
		debounce: debounce,
		clock:    clk,
		logger:   logger,
		fire:     fire,
		projects: make(map[string]*projectState),
	}
}

// Notify records a file event for a project: the path joins the pending
// queue (evicting the oldest entry past capacity), the burst window ticks,
// and the debounce timer resets to fire after the latest event.
func (s *Scheduler) Notify(projectID, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	state := s.project(projectID)
	if evicted, didEvict := state.queue.Enqueue(path); didEvict {
		s.logger.Warn("change queue at capacity, dropping oldest pending change",
			"project", projectID, "dropped", evicted)
	}
	state.burst.Record()
	s.reschedule(projectID, state)
}

// Drain atomically takes and clears the pending set for a project.
func (s *Scheduler) Drain(projectID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.projects[projectID]
	if !ok {
		return nil
	}
	return state.queue.Drain()
}

// Requeue puts drained paths back in the pending queue after a deferred
// cycle and re-arms the debounce timer, so the retry happens even if no
// further events arrive.
func (s *Scheduler) Requeue(projectID string, paths []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	state := s.project(projectID)
	for _, path := range paths {
		if evicted, didEvict := state.queue.Enqueue(path); didEvict {
			s.logger.Warn("change queue at capacity, dropping oldest pending change",
				"project", projectID, "dropped", evicted)
		}
	}
	if state.queue.Len() > 0 {
		s.reschedule(projectID, state)
	}
}

// InBurstMode reports whether a project is currently producing events
// unusually fast. Advisory only, independent of processing state.
func (s *Scheduler) InBurstMode(projectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.projects[projectID]
	if !ok {
		return false
	}
	return state.burst.Active()
}

// PendingCount returns the number of pending changes for a project.
func (s *Scheduler) PendingCount(projectID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.projects[projectID]
	if !ok {
		return 0
	}
	return state.queue.Len()
}

// Stop cancels all outstanding timers. Pending changes remain drainable.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for _, state := range s.projects {
		if state.timer != nil {
			state.timer.Stop()
			state.timer = nil
		}
	}
}

// project returns the state for projectID, creating it on first sight.
// Callers must hold s.mu.
func (s *Scheduler) project(projectID string) *projectState {
	state, ok := s.projects[projectID]
	if !ok {
		state = &projectState{
			queue: NewChangeQueue(s.clock),
			burst: NewBurstWindow(s.clock),
		}
		s.projects[projectID] = state
	}
	return state
}

// reschedule cancels any outstanding timer and arms a fresh one, so the
// cycle fires one debounce interval after the latest event. Callers must
// hold s.mu.
func (s *Scheduler) reschedule(projectID string, state *projectState) {
	if state.timer != nil {
		state.timer.Stop()
	}
	state.timer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		if st, ok := s.projects[projectID]; ok {
			st.timer = nil
		}
		s.mu.Unlock()

		s.fire(projectID)
	})
}
