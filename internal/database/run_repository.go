package database

import (
	"fmt"

	"github.com/example/recallml/pkg/models"
)

// RunRepository handles database operations for backfill run records
type RunRepository struct{}

// NewRunRepository creates a new repository instance
func NewRunRepository() *RunRepository {
	return &RunRepository{}
}

// Create persists a finished run report
func (r *RunRepository) Create(run *models.BackfillRun) error {
	if isPostgres() {
		err := DB.QueryRow(`
			INSERT INTO backfill_runs (
				started_at, finished_at, users_processed, items_processed,
				events_converted, failures, dry_run
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`,
			run.StartedAt,
			run.FinishedAt,
			run.UsersProcessed,
			run.ItemsProcessed,
			run.EventsConverted,
			run.Failures,
			run.DryRun,
		).Scan(&run.ID)
		if err != nil {
			return fmt.Errorf("failed to create backfill run: %v", err)
		}
		return nil
	}

	result, err := DB.Exec(`
		INSERT INTO backfill_runs (
			started_at, finished_at, users_processed, items_processed,
			events_converted, failures, dry_run
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		run.StartedAt,
		run.FinishedAt,
		run.UsersProcessed,
		run.ItemsProcessed,
		run.EventsConverted,
		run.Failures,
		run.DryRun,
	)
	if err != nil {
		return fmt.Errorf("failed to create backfill run: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get backfill run id: %v", err)
	}
	run.ID = id
	return nil
}

// Recent returns the latest runs, newest first
func (r *RunRepository) Recent(limit int) ([]models.BackfillRun, error) {
	if limit <= 0 {
		limit = 10
	}
	var runs []models.BackfillRun
	err := DB.Select(&runs, "SELECT * FROM backfill_runs ORDER BY id DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent backfill runs: %v", err)
	}
	return runs, nil
}
