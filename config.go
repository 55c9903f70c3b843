package merchpilot

import (
	"database/sql"
	"time"
)

// Config holds the settings and resources needed by the orchestration core.
type Config struct {
	// DB is the user-provided database connection where the platforms table
	// is stored.
	DB *sql.DB

	// DbName is the name of the database (schema) holding the platforms table.
	DbName string

	// MerchantID is the merchant whose platform connections this instance
	// manages. Defaults to 1.
	MerchantID int64

	// WorkerCommand is the argv prefix used to launch the automation worker
	// process; the JSON task payload is appended as the final argument.
	// Example: {"python3", "scripts/browser_agent.py"}.
	WorkerCommand []string

	// TaskTimeout is how long one automation process may run before it is
	// killed and the task marked failed. Defaults to 5 minutes.
	TaskTimeout time.Duration

	// PollInterval is how frequently AwaitCompletion re-checks a task.
	// Defaults to 2 seconds.
	PollInterval time.Duration

	// ActionWait is the bounded synchronous wait applied to platform
	// actions before answering with "still running". Defaults to 20 seconds.
	ActionWait time.Duration

	// ReconcileDelays are the offsets after a connect/refresh dispatch at
	// which the task outcome is folded into the platform connection.
	// Defaults to 5s, 15s and 30s.
	ReconcileDelays []time.Duration

	// StatusCheckDelay is the single offset used after a status-check
	// dispatch. Defaults to 15 seconds.
	StatusCheckDelay time.Duration

	// InfoLog is called for informational or success logs.
	// If nil, defaults to a logrus-backed logger.
	InfoLog func(ev LogEvent)

	// ErrorLog is called for error logs.
	// If nil, defaults to a logrus-backed logger.
	ErrorLog func(ev LogEvent)
}

func (c *Config) applyDefaults() {
	if c.MerchantID == 0 {
		c.MerchantID = 1
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = 5 * time.Minute
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.ActionWait <= 0 {
		c.ActionWait = 20 * time.Second
	}
	if len(c.ReconcileDelays) == 0 {
		c.ReconcileDelays = []time.Duration{5 * time.Second, 15 * time.Second, 30 * time.Second}
	}
	if c.StatusCheckDelay <= 0 {
		c.StatusCheckDelay = 15 * time.Second
	}
	if c.InfoLog == nil {
		c.InfoLog = defaultInfoLog
	}
	if c.ErrorLog == nil {
		c.ErrorLog = defaultErrorLog
	}
}

func (c *Config) logInfo(ev LogEvent) {
	if c.InfoLog == nil {
		defaultInfoLog(ev)
		return
	}
	c.InfoLog(ev)
}

func (c *Config) logError(ev LogEvent) {
	if c.ErrorLog == nil {
		defaultErrorLog(ev)
		return
	}
	c.ErrorLog(ev)
}
