// Package cron schedules recurring and one-shot jobs: watchlist quote
// refreshes and user-defined briefing queries delivered over a channel.
package cron

import (
	"time"

	"github.com/google/uuid"
)

// Schedule describes when a job runs. Kind selects which field applies:
// "cron" uses Expr (six-field, with seconds), "every" uses EveryMs, and
// "at" uses AtMs for a one-shot run.
type Schedule struct {
	Kind    string `json:"kind"`
	Expr    string `json:"expr,omitempty"`
	EveryMs int64  `json:"everyMs,omitempty"`
	AtMs    int64  `json:"atMs,omitempty"`
}

// Payload is what the job executes. Message is the query text handed to
// the job handler. When Deliver is set, the result is pushed to To on
// the named channel instead of being logged only.
type Payload struct {
	Message string `json:"message"`
	Deliver bool   `json:"deliver,omitempty"`
	Channel string `json:"channel,omitempty"`
	To      string `json:"to,omitempty"`
}

// State tracks the last execution outcome.
type State struct {
	LastRunAtMs int64  `json:"lastRunAtMs,omitempty"`
	LastStatus  string `json:"lastStatus,omitempty"`
	LastError   string `json:"lastError,omitempty"`
}

type CronJob struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Enabled        bool     `json:"enabled"`
	DeleteAfterRun bool     `json:"deleteAfterRun,omitempty"`
	Schedule       Schedule `json:"schedule"`
	Payload        Payload  `json:"payload"`
	State          State    `json:"state"`
	CreatedAtMs    int64    `json:"createdAtMs"`
}

func NewCronJob(name string, schedule Schedule, payload Payload) CronJob {
	return CronJob{
		ID:          uuid.NewString(),
		Name:        name,
		Enabled:     true,
		Schedule:    schedule,
		Payload:     payload,
		CreatedAtMs: time.Now().UnixMilli(),
	}
}
