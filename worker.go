package merchpilot

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// WorkerResult is the single structured result an automation worker reports
// as the last JSON line on its stdout.
type WorkerResult struct {
	Status      string         `json:"status"` // "success" or "error"
	Result      string         `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	Message     string         `json:"message,omitempty"`
	Platform    string         `json:"platform,omitempty"`
	LoginStatus string         `json:"login_status,omitempty"`
	FinalURL    string         `json:"final_url,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// Worker runs one external automation job to completion and reports its
// structured result. Implementations must honor ctx cancellation: when the
// deadline passes, the underlying job is terminated and a timeout error
// returned. A declared worker error (status "error") is still a successful
// Run; translating it into a task failure is the dispatcher's job.
type Worker interface {
	Run(ctx context.Context, payload []byte) (*WorkerResult, error)
}

// encodePayload builds the single JSON argument handed to the worker
// process: the task description plus free-form context fields.
func encodePayload(description string, contextData map[string]any) ([]byte, error) {
	payload := make(map[string]any, len(contextData)+1)
	for k, v := range contextData {
		payload[k] = v
	}
	payload["task"] = description
	return json.Marshal(payload)
}

// ScriptWorker launches one subprocess per task. The command receives the
// JSON payload as its final positional argument, writes advisory logging to
// stdout/stderr, and reports its result as the last stdout line that parses
// as a JSON object.
type ScriptWorker struct {
	// Command is the argv prefix, e.g. {"python3", "scripts/browser_agent.py"}.
	Command []string

	// Log receives advisory output from the subprocess. May be nil.
	Log func(ev LogEvent)
}

func (w *ScriptWorker) log(ev LogEvent) {
	if w.Log != nil {
		w.Log(ev)
	}
}

// Run executes the worker command and parses its final JSON line. Spawn
// failure, non-zero exit, timeout and unparseable output are reported as
// distinct errors; stderr never affects the outcome.
func (w *ScriptWorker) Run(ctx context.Context, payload []byte) (*WorkerResult, error) {
	if len(w.Command) == 0 {
		return nil, errors.New("no worker command configured")
	}

	args := append(append([]string{}, w.Command[1:]...), string(payload))
	cmd := exec.CommandContext(ctx, w.Command[0], args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to start automation worker: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to start automation worker: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start automation worker: %w", err)
	}

	var (
		wg          sync.WaitGroup
		stderrLines []string
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sc := bufio.NewScanner(stderr)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			stderrLines = append(stderrLines, line)
			// Browser automation frameworks are chatty on stderr; keep the
			// noise out of the logs.
			if !strings.Contains(line, "INFO") {
				w.log(LogEvent{Message: "[worker stderr] " + line})
			}
		}
	}()

	var stdoutLines []string
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		stdoutLines = append(stdoutLines, line)
		if !strings.HasPrefix(line, "{") {
			w.log(LogEvent{Message: "[worker] " + line})
		}
	}

	waitErr := cmd.Wait()
	wg.Wait()

	if ctx.Err() == context.DeadlineExceeded {
		elapsed := time.Since(start).Round(time.Second)
		return nil, fmt.Errorf("automation worker timed out after %s and was killed", elapsed)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("automation worker exited with code %d: %s",
				exitErr.ExitCode(), truncate(strings.Join(stderrLines, " | "), 500))
		}
		return nil, fmt.Errorf("automation worker failed: %w", waitErr)
	}

	result, ok := lastJSONLine(stdoutLines)
	if !ok {
		return nil, fmt.Errorf("no JSON result found in worker output: %s",
			truncate(strings.Join(stdoutLines, " | "), 500))
	}
	return result, nil
}

// lastJSONLine scans lines from the end and returns the last one that
// parses as a complete JSON object. Everything else is advisory output.
func lastJSONLine(lines []string) (*WorkerResult, bool) {
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if !strings.HasPrefix(line, "{") || !strings.HasSuffix(line, "}") {
			continue
		}
		var res WorkerResult
		if err := json.Unmarshal([]byte(line), &res); err == nil {
			return &res, true
		}
	}
	return nil, false
}
