package merchpilot

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry holds all tasks in memory, protected by a mutex. Tasks are stored
// in a map for O(1) lookup and a separate slice to preserve insertion order
// for stable iteration in All/Summaries.
//
// Only the dispatcher writes terminal state, and only once per task; every
// other component reads copies taken under the lock.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*Task
	order []string
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[string]*Task),
	}
}

// Create allocates a new pending task with a unique ID and StartTime set to
// now, inserts it, and returns a copy.
func (r *Registry) Create(description string) Task {
	t := &Task{
		ID:          "task_" + uuid.NewString(),
		Description: description,
		Status:      TaskPending,
		StartTime:   time.Now(),
	}

	r.mu.Lock()
	r.tasks[t.ID] = t
	r.order = append(r.order, t.ID)
	r.mu.Unlock()

	return *t
}

// SetRunning marks a task as running. Returns false if the task does not
// exist or is not pending; callers hold a fresh ID so this is not expected
// to fail in practice, and a miss is never surfaced as an error.
func (r *Registry) SetRunning(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok && t.Status == TaskPending {
		t.Status = TaskRunning
		return true
	}
	return false
}

// Complete marks a task as completed and stores the worker result. Only
// transitions from a non-terminal status, so a terminal task is never
// overwritten.
func (r *Registry) Complete(id string, result *WorkerResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok && !t.Status.Terminal() {
		t.Status = TaskCompleted
		t.Result = result
		t.EndTime = time.Now()
	}
}

// Fail marks a task as failed with a human-readable reason. Symmetric to
// Complete: terminal tasks are never overwritten.
func (r *Registry) Fail(id string, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok && !t.Status.Terminal() {
		t.Status = TaskFailed
		t.Error = errMsg
		t.EndTime = time.Now()
	}
}

// Get returns a copy of the task, or ok=false if the ID is unknown. An
// unknown ID is a normal outcome, not an error.
func (r *Registry) Get(id string) (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// Snapshot returns the polling view of one task.
func (r *Registry) Snapshot(id string) (TaskSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return TaskSnapshot{}, false
	}
	snap := TaskSnapshot{
		ID:        t.ID,
		Status:    t.Status,
		HasResult: t.Result != nil,
		HasError:  t.Error != "",
		Error:     t.Error,
		StartTime: t.StartTime,
	}
	if !t.EndTime.IsZero() {
		end := t.EndTime
		snap.EndTime = &end
	}
	return snap, ok
}

// Summaries returns all tasks in insertion order as list-view summaries,
// with descriptions truncated to 100 characters.
func (r *Registry) Summaries() []TaskSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]TaskSummary, 0, len(r.order))
	for _, id := range r.order {
		t := r.tasks[id]
		s := TaskSummary{
			ID:          t.ID,
			Description: truncate(t.Description, 100),
			Status:      t.Status,
			Error:       t.Error,
			StartTime:   t.StartTime,
		}
		if !t.EndTime.IsZero() {
			end := t.EndTime
			s.EndTime = &end
			ms := end.Sub(t.StartTime).Milliseconds()
			s.DurationMs = &ms
		}
		out = append(out, s)
	}
	return out
}

// PruneBefore evicts terminal tasks whose EndTime is before cutoff and
// returns the number removed. Nothing calls this by default; retention is
// process-lifetime unless an operator loop opts in.
func (r *Registry) PruneBefore(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.order[:0]
	removed := 0
	for _, id := range r.order {
		t := r.tasks[id]
		if t.Status.Terminal() && t.EndTime.Before(cutoff) {
			delete(r.tasks, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	return removed
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(s[:n]) + "..."
}
