package scheduler

import (
	"time"

	"github.com/halcyon-tools/lattice/internal/clock"
)

// Burst classification: a project is in burst mode while at least
// burstThreshold events landed within the trailing burstWindow. Advisory
// only; processing drains every queued file regardless.
const (
	burstThreshold = 20
	burstWindow    = 3000 * time.Millisecond
)

// BurstWindow is a sliding counter of event timestamps for one project.
type BurstWindow struct {
	clock  clock.Clock
	events []time.Time
}

// NewBurstWindow creates an empty window.
func NewBurstWindow(clk clock.Clock) *BurstWindow {
	return &BurstWindow{clock: clk}
}

// Record notes that an event arrived now.
func (b *BurstWindow) Record() {
	now := b.clock.Now()
	b.prune(now)
	b.events = append(b.events, now)
}

// Active reports whether the project is currently in burst mode.
func (b *BurstWindow) Active() bool {
	b.prune(b.clock.Now())
	return len(b.events) >= burstThreshold
}

// prune drops timestamps older than the trailing window. Events arrive in
// clock order, so the slice stays sorted and a single scan suffices.
func (b *BurstWindow) prune(now time.Time) {
	cutoff := now.Add(-burstWindow)
	idx := 0
	for idx < len(b.events) && b.events[idx].Before(cutoff) {
		idx++
	}
	if idx > 0 {
		b.events = append(b.events[:0], b.events[idx:]...)
	}
}
