package cron

import (
	"time"

	"github.com/google/uuid"
)

// Schedule describes when a reminder fires. Kind is one of "cron" (Expr is a
// 6-field cron spec with seconds), "every" (EveryMs interval), or "at" (AtMs
// one-shot epoch milliseconds).
type Schedule struct {
	Kind    string `json:"kind"`
	Expr    string `json:"expr,omitempty"`
	EveryMs int64  `json:"everyMs,omitempty"`
	AtMs    int64  `json:"atMs,omitempty"`
}

// Reminder is a scheduled outbound nudge, e.g. a daily "time to log
// inventory" message to a channel.
type Reminder struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Schedule       Schedule `json:"schedule"`
	Channel        string   `json:"channel"`
	To             string   `json:"to"`
	Message        string   `json:"message"`
	Enabled        bool     `json:"enabled"`
	DeleteAfterRun bool     `json:"deleteAfterRun,omitempty"`
	CreatedAtMs    int64    `json:"createdAtMs"`
	State          RunState `json:"state"`
}

// RunState records the outcome of the last firing.
type RunState struct {
	LastRunAtMs int64  `json:"lastRunAtMs,omitempty"`
	LastStatus  string `json:"lastStatus,omitempty"`
	LastError   string `json:"lastError,omitempty"`
}

func NewReminder(name string, schedule Schedule, channel, to, message string) Reminder {
	return Reminder{
		ID:          uuid.NewString(),
		Name:        name,
		Schedule:    schedule,
		Channel:     channel,
		To:          to,
		Message:     message,
		Enabled:     true,
		CreatedAtMs: time.Now().UnixMilli(),
	}
}
