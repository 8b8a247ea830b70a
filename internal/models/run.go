package models

import "time"

// RunKind names the operation a run performed.
type RunKind string

const (
	RunReorder RunKind = "reorder"
	RunUpload  RunKind = "upload"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunAborted   RunStatus = "aborted"
)

// Run is one journaled execution of a plan against a collection.
type Run struct {
	ID           string     `json:"id"`
	Kind         RunKind    `json:"kind"`
	CollectionID int        `json:"collection_id"`
	Language     string     `json:"language"`
	Status       RunStatus  `json:"status"`
	Planned      int        `json:"planned"`
	Succeeded    int        `json:"succeeded"`
	Skipped      int        `json:"skipped"`
	Failed       int        `json:"failed"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Tally sets the outcome counters from outcomes.
func (r *Run) Tally(outcomes []ItemOutcome) {
	r.Succeeded, r.Skipped, r.Failed = 0, 0, 0
	for _, o := range outcomes {
		switch o.Status {
		case ItemSucceeded:
			r.Succeeded++
		case ItemSkipped:
			r.Skipped++
		case ItemFailed:
			r.Failed++
		}
	}
}
