package models

import "time"

// BackfillRun records the outcome of one backfill invocation
type BackfillRun struct {
	ID              int64     `json:"id" db:"id"`
	StartedAt       time.Time `json:"started_at" db:"started_at"`
	FinishedAt      time.Time `json:"finished_at" db:"finished_at"`
	UsersProcessed  int       `json:"users_processed" db:"users_processed"`
	ItemsProcessed  int       `json:"items_processed" db:"items_processed"`
	EventsConverted int       `json:"events_converted" db:"events_converted"`
	Failures        int       `json:"failures" db:"failures"`
	DryRun          bool      `json:"dry_run" db:"dry_run"`
}
