package merchpilot

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Dispatcher runs exactly one automation job per task and translates its
// outcome into a terminal task state. Task creation is fire-and-forget: the
// ID is returned immediately and the job runs in a background goroutine, so
// pending/running are externally observable through the polling facade.
type Dispatcher struct {
	cfg      *Config
	registry *Registry
	worker   Worker
	wg       sync.WaitGroup
}

// NewDispatcher wires a dispatcher to a registry and a worker
// implementation.
func NewDispatcher(cfg *Config, registry *Registry, worker Worker) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		registry: registry,
		worker:   worker,
	}
}

// ExecuteTask creates a pending task, launches its automation job in the
// background and returns the task ID. The only error path is an
// unencodable payload; everything after that resolves to a terminal task
// state instead of an error.
func (d *Dispatcher) ExecuteTask(description string, contextData map[string]any) (string, error) {
	payload, err := encodePayload(description, contextData)
	if err != nil {
		return "", fmt.Errorf("failed to encode task payload: %w", err)
	}

	t := d.registry.Create(description)

	d.wg.Add(1)
	go d.run(t.ID, payload)

	return t.ID, nil
}

func (d *Dispatcher) run(id string, payload []byte) {
	defer d.wg.Done()

	d.registry.SetRunning(id)

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.TaskTimeout)
	defer cancel()

	start := time.Now()
	result, err := d.worker.Run(ctx, payload)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		d.registry.Fail(id, err.Error())
		d.cfg.logError(LogEvent{
			Message:  fmt.Sprintf("Task %s FAILED in %v", id, elapsed.Round(time.Millisecond)),
			TaskID:   id,
			Err:      err,
			Duration: &elapsed,
		})

	case result.Status == "error":
		reason := result.Error
		if reason == "" {
			reason = result.Message
		}
		if reason == "" {
			reason = "worker reported an error"
		}
		d.registry.Fail(id, reason)
		d.cfg.logError(LogEvent{
			Message:  fmt.Sprintf("Task %s FAILED in %v: %s", id, elapsed.Round(time.Millisecond), reason),
			TaskID:   id,
			Duration: &elapsed,
		})

	default:
		d.registry.Complete(id, result)
		d.cfg.logInfo(LogEvent{
			Message:  fmt.Sprintf("Task %s COMPLETED in %v", id, elapsed.Round(time.Millisecond)),
			TaskID:   id,
			Duration: &elapsed,
		})
	}
}

// Shutdown waits up to timeout for in-flight automation jobs to resolve.
// Jobs still running after the timeout keep running; their tasks resolve
// whenever the worker does.
func (d *Dispatcher) Shutdown(timeout time.Duration) {
	doneCh := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
		d.cfg.logInfo(LogEvent{Message: "All automation jobs resolved."})
	case <-time.After(timeout):
		d.cfg.logError(LogEvent{
			Message: fmt.Sprintf("Shutdown timed out after %v. Some automation jobs may still be running.", timeout),
		})
	}
}

// LoginToPlatform dispatches an automated login for one platform account.
func (d *Dispatcher) LoginToPlatform(creds LoginCredentials) (string, error) {
	return d.ExecuteTask(BuildLoginTask(creds), map[string]any{
		"platform": creds.Platform,
		"username": creds.Username,
	})
}

// CheckLoginStatus dispatches a dashboard load that reports authentication
// indicators.
func (d *Dispatcher) CheckLoginStatus(platform, overrideURL string) (string, error) {
	return d.ExecuteTask(BuildStatusCheckTask(platform, overrideURL), map[string]any{
		"platform": platform,
		"action":   "check_login",
	})
}

// ExtractPlatformData dispatches a single-platform data pull.
func (d *Dispatcher) ExtractPlatformData(platform, dataType string, filters map[string]any) (string, error) {
	ctxData := map[string]any{
		"platform": platform,
		"action":   "extract_data",
		"dataType": dataType,
	}
	if len(filters) > 0 {
		ctxData["filters"] = filters
	}
	return d.ExecuteTask(BuildDataExtractionTask(platform, dataType, filters), ctxData)
}

// ExtractMultiPlatformData dispatches one comprehensive pull across every
// requested platform.
func (d *Dispatcher) ExtractMultiPlatformData(req DataExtractionRequest) (string, error) {
	return d.ExecuteTask(BuildMultiPlatformExtractionTask(req), map[string]any{
		"platforms": req.Platforms,
		"dataTypes": req.DataTypes,
		"action":    "extract_comprehensive_data",
	})
}

// ExecutePlatformAction dispatches a store action (offer, timing, status,
// menu) on one platform.
func (d *Dispatcher) ExecutePlatformAction(platform, action string, data map[string]any) (string, error) {
	ctxData := map[string]any{
		"platform": platform,
		"action":   action,
	}
	if len(data) > 0 {
		ctxData["data"] = data
	}
	return d.ExecuteTask(BuildActionTask(platform, action, data), ctxData)
}
