package merchpilot

import (
	"context"
	"time"
)

// Poller exposes task status to callers: a bounded synchronous wait for
// flows that want an answer now, and an instantaneous snapshot for clients
// that re-poll on their own schedule.
type Poller struct {
	registry *Registry
	interval time.Duration
}

// NewPoller creates a poller over the registry. interval <= 0 falls back to
// 2 seconds.
func NewPoller(registry *Registry, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{registry: registry, interval: interval}
}

// AwaitCompletion polls the task at a fixed interval until it resolves or
// maxWait elapses. It returns true only for a completed task; a failed
// task, an unknown ID that never appears, ctx cancellation and the timeout
// all return false. It never blocks past maxWait plus one poll interval.
func (p *Poller) AwaitCompletion(ctx context.Context, taskID string, maxWait time.Duration) bool {
	deadline := time.Now().Add(maxWait)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if t, ok := p.registry.Get(taskID); ok && t.Status.Terminal() {
			return t.Status == TaskCompleted
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// Snapshot returns the non-blocking polling view of a task, or ok=false for
// an unknown ID.
func (p *Poller) Snapshot(taskID string) (TaskSnapshot, bool) {
	return p.registry.Snapshot(taskID)
}
