package merchpilot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitCompletionSuccess(t *testing.T) {
	reg := NewRegistry()
	p := NewPoller(reg, 10*time.Millisecond)

	task := reg.Create("slow success")
	go func() {
		time.Sleep(30 * time.Millisecond)
		reg.SetRunning(task.ID)
		reg.Complete(task.ID, &WorkerResult{Status: "success"})
	}()

	assert.True(t, p.AwaitCompletion(context.Background(), task.ID, 2*time.Second))
}

func TestAwaitCompletionFailure(t *testing.T) {
	reg := NewRegistry()
	p := NewPoller(reg, 10*time.Millisecond)

	task := reg.Create("doomed")
	reg.SetRunning(task.ID)
	reg.Fail(task.ID, "boom")

	assert.False(t, p.AwaitCompletion(context.Background(), task.ID, 2*time.Second))
}

func TestAwaitCompletionBounded(t *testing.T) {
	reg := NewRegistry()
	p := NewPoller(reg, 10*time.Millisecond)

	// The task never resolves; the wait must end shortly after maxWait.
	task := reg.Create("stuck")
	reg.SetRunning(task.ID)

	start := time.Now()
	got := p.AwaitCompletion(context.Background(), task.ID, 50*time.Millisecond)
	elapsed := time.Since(start)

	assert.False(t, got)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestAwaitCompletionUnknownID(t *testing.T) {
	reg := NewRegistry()
	p := NewPoller(reg, 10*time.Millisecond)

	start := time.Now()
	got := p.AwaitCompletion(context.Background(), "task_missing", 50*time.Millisecond)

	assert.False(t, got)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestAwaitCompletionContextCancel(t *testing.T) {
	reg := NewRegistry()
	p := NewPoller(reg, 10*time.Millisecond)
	task := reg.Create("stuck")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	got := p.AwaitCompletion(ctx, task.ID, 5*time.Second)
	assert.False(t, got)
	assert.Less(t, time.Since(start), time.Second)
}

func TestAwaitCompletionAlreadyTerminal(t *testing.T) {
	reg := NewRegistry()
	p := NewPoller(reg, time.Hour) // interval must not matter for a resolved task

	task := reg.Create("instant")
	reg.SetRunning(task.ID)
	reg.Complete(task.ID, &WorkerResult{Status: "success"})

	start := time.Now()
	require.True(t, p.AwaitCompletion(context.Background(), task.ID, time.Hour))
	assert.Less(t, time.Since(start), time.Second)
}

func TestPollerSnapshot(t *testing.T) {
	reg := NewRegistry()
	p := NewPoller(reg, 10*time.Millisecond)

	_, ok := p.Snapshot("task_missing")
	assert.False(t, ok)

	task := reg.Create("probe")
	snap, ok := p.Snapshot(task.ID)
	require.True(t, ok)
	assert.Equal(t, TaskPending, snap.Status)
}
