package merchpilot

import (
	"context"
	"strings"
	"time"
)

// Reconciler folds a task's terminal outcome into durable platform
// connection state. Because completion is observed asynchronously relative
// to the connect/refresh request, each task is re-checked at several fixed
// offsets: an early check may see the task still running while a later one
// sees the terminal state. Applying the same terminal outcome twice yields
// the same connection state, so the checks need no coordination.
type Reconciler struct {
	cfg      *Config
	registry *Registry
	store    PlatformStore
}

// NewReconciler wires a reconciler to the registry and the persistence
// boundary.
func NewReconciler(cfg *Config, registry *Registry, store PlatformStore) *Reconciler {
	return &Reconciler{cfg: cfg, registry: registry, store: store}
}

// ScheduleConnectChecks arms one delayed reconciliation per configured
// offset for a connect/refresh task. All checks are fire-and-forget; the
// original request has already returned.
func (r *Reconciler) ScheduleConnectChecks(platformID int64, platform, taskID string) {
	for _, delay := range r.cfg.ReconcileDelays {
		time.AfterFunc(delay, func() {
			r.ApplyConnectOutcome(platformID, platform, taskID)
		})
	}
}

// ScheduleStatusCheck arms a single delayed reconciliation for a
// status-check task. A status probe that finds no session demotes the
// connection to disconnected rather than failed.
func (r *Reconciler) ScheduleStatusCheck(platformID int64, platform, taskID string) {
	time.AfterFunc(r.cfg.StatusCheckDelay, func() {
		r.applyStatusOutcome(platformID, platform, taskID)
	})
}

// ApplyConnectOutcome inspects the task and, if it is terminal, updates the
// platform connection. Non-terminal tasks leave the connection as-is
// (still "connecting"). Persistence failures are logged and never touch
// the task's own state.
func (r *Reconciler) ApplyConnectOutcome(platformID int64, platform, taskID string) {
	task, ok := r.registry.Get(taskID)
	if !ok || !task.Status.Terminal() {
		return
	}

	var update PlatformUpdate
	if task.Status == TaskCompleted {
		loggedIn := resultIndicatesLogin(task.Result) || task.Error == ""
		if loggedIn {
			// LastSync mirrors the task's completion instant, so repeated
			// applications of the same outcome write the same value.
			connected := true
			status := ConnConnected
			sync := task.EndTime
			update = PlatformUpdate{IsConnected: &connected, Status: &status, LastSync: &sync}
		} else {
			update = failedUpdate()
		}
	} else {
		update = failedUpdate()
	}

	r.apply(platformID, platform, taskID, update)
}

func (r *Reconciler) applyStatusOutcome(platformID int64, platform, taskID string) {
	task, ok := r.registry.Get(taskID)
	if !ok || task.Status != TaskCompleted || task.Result == nil {
		return
	}

	loggedIn := resultIndicatesLogin(task.Result)
	connected := loggedIn
	status := ConnDisconnected
	update := PlatformUpdate{IsConnected: &connected, Status: &status, ClearLastSync: true}
	if loggedIn {
		status = ConnConnected
		sync := task.EndTime
		update = PlatformUpdate{IsConnected: &connected, Status: &status, LastSync: &sync}
	}

	r.apply(platformID, platform, taskID, update)
}

func (r *Reconciler) apply(platformID int64, platform, taskID string, update PlatformUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.store.UpdatePlatform(ctx, platformID, update); err != nil {
		r.cfg.logError(LogEvent{
			Message:  "Failed to reconcile platform connection state",
			TaskID:   taskID,
			Platform: platform,
			Err:      err,
		})
		return
	}

	status := "failed"
	if update.Status != nil {
		status = string(*update.Status)
	}
	r.cfg.logInfo(LogEvent{
		Message:  "Reconciled platform connection state: " + status,
		TaskID:   taskID,
		Platform: platform,
	})
}

func failedUpdate() PlatformUpdate {
	connected := false
	status := ConnFailed
	return PlatformUpdate{IsConnected: &connected, Status: &status, ClearLastSync: true}
}

// resultIndicatesLogin is a deliberately tolerant heuristic over free-form
// worker output. The worker reports login state in several historical
// shapes; tightening this into a strict schema makes connect flows fail on
// cosmetic output changes.
func resultIndicatesLogin(res *WorkerResult) bool {
	if res == nil {
		return false
	}
	if res.Status == "success" {
		return true
	}
	if res.LoginStatus == "success" || res.LoginStatus == "completed" {
		return true
	}
	if strings.Contains(strings.ToLower(res.Result), "success") {
		return true
	}
	if res.Data != nil {
		if s, ok := res.Data["status"].(string); ok && s == "success" {
			return true
		}
	}
	return strings.Contains(strings.ToLower(res.Message), "completed")
}
