package models

import "time"

const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
	TriggerCLI       = "cli"
)

const (
	RunStatusSuccess     = "success"
	RunStatusFetchError  = "fetch_error"
	RunStatusCommitError = "commit_error"
	RunStatusSkipped     = "skipped"
)

// ScrapeRunEvent is published once a pipeline run finishes.
type ScrapeRunEvent struct {
	RunID      string    `json:"run_id"`
	Trigger    string    `json:"trigger"`
	Status     string    `json:"status"`
	Added      int       `json:"added"`
	Updated    int       `json:"updated"`
	Total      int       `json:"total"`
	Degraded   int       `json:"degraded"`
	Errors     []string  `json:"errors"`
	Message    string    `json:"message,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
