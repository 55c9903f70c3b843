package merchpilot

import (
	"time"
)

// TaskStatus enumerates the possible states of a browser automation task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Terminal reports whether the status admits no further transition.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Task is one unit of dispatched browser automation work.
//
// Lifecycle: pending -> running -> completed | failed
//
// Result and Error are mutually exclusive: exactly one of them is set when
// the task reaches a terminal status, neither before. Once terminal, a task
// never changes again.
type Task struct {
	ID          string
	Description string
	Status      TaskStatus
	Result      *WorkerResult
	Error       string
	StartTime   time.Time
	EndTime     time.Time
}

// TaskSnapshot is the non-blocking polling view of a task. It reports
// whether a result or error exists without carrying the payload itself;
// clients that want the full result go through the service layer.
type TaskSnapshot struct {
	ID        string     `json:"id"`
	Status    TaskStatus `json:"status"`
	HasResult bool       `json:"hasResult"`
	HasError  bool       `json:"hasError"`
	Error     string     `json:"error,omitempty"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
}

// TaskSummary is the list view: truncated description plus timing, no
// result content.
type TaskSummary struct {
	ID          string     `json:"id"`
	Description string     `json:"task"`
	Status      TaskStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	DurationMs  *int64     `json:"duration,omitempty"`
}
