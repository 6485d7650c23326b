package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/halcyon-tools/lattice/internal/clock"
	"github.com/halcyon-tools/lattice/internal/scheduler"
	"github.com/halcyon-tools/lattice/internal/watcher"
)

// Coordinator connects the raw watcher stream to the debounce scheduler and
// runs a processing cycle whenever a project goes quiet. One dispatcher
// goroutine consumes events; cycles run on the scheduler's timer goroutines
// and are serialized per project by the pipeline itself.
type Coordinator struct {
	pipeline *Pipeline
	sched    *scheduler.Scheduler
	logger   *slog.Logger

	ctx context.Context
}

// NewCoordinator builds the scheduler around the pipeline and wires the two
// together.
func NewCoordinator(p *Pipeline, debounce time.Duration, clk clock.Clock, logger *slog.Logger) *Coordinator {
	c := &Coordinator{
		pipeline: p,
		logger:   logger,
	}
	c.sched = scheduler.New(debounce, clk, logger, c.onFire)
	p.AttachSource(c.sched)
	return c
}

// Scheduler exposes the underlying scheduler, mainly for burst inspection.
func (c *Coordinator) Scheduler() *scheduler.Scheduler {
	return c.sched
}

// Run consumes watcher events until the context is cancelled or the event
// channel closes.
func (c *Coordinator) Run(ctx context.Context, events <-chan watcher.Event) error {
	c.ctx = ctx
	defer c.sched.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-events:
			if !ok {
				return nil
			}
			c.sched.Notify(event.ProjectID, event.Path)
		}
	}
}

// onFire runs on a scheduler timer goroutine after a quiet period.
func (c *Coordinator) onFire(projectID string) {
	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := c.pipeline.ProcessCycle(ctx, projectID)
	if err != nil {
		c.logger.Error("processing cycle failed", "project", projectID, "error", err)
		return
	}
	if result.Drained > 0 && !result.Deferred {
		c.logger.Info("processing cycle complete",
			"project", projectID,
			"drained", result.Drained,
			"indexed", result.Indexed,
			"skipped_unchanged", result.SkippedUnchanged,
			"deleted", result.Deleted,
			"parse_failures", result.ParseFailures)
	}
}
