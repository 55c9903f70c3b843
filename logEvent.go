package merchpilot

import (
	"time"

	"github.com/sirupsen/logrus"
)

// LogEvent captures information about a logging event.
type LogEvent struct {
	// A human-readable message about the event.
	Message string

	// The task ID, if available.
	TaskID string

	// The platform name, if available.
	Platform string

	// Any error associated with the event.
	Err error

	// How long the task or operation took, if relevant.
	Duration *time.Duration
}

func (ev LogEvent) fields() logrus.Fields {
	f := logrus.Fields{}
	if ev.TaskID != "" {
		f["task"] = ev.TaskID
	}
	if ev.Platform != "" {
		f["platform"] = ev.Platform
	}
	if ev.Err != nil {
		f["error"] = ev.Err
	}
	if ev.Duration != nil {
		f["duration"] = ev.Duration.String()
	}
	return f
}

func defaultInfoLog(ev LogEvent) {
	logrus.WithFields(ev.fields()).Info(ev.Message)
}

func defaultErrorLog(ev LogEvent) {
	logrus.WithFields(ev.fields()).Error(ev.Message)
}
