package database

import (
	"errors"
	"fmt"

	"github.com/example/recallml/pkg/models"
)

// ErrNotConverted is returned when a write-back targets an event that is
// missing or no longer tagged with the baseline algorithm.
var ErrNotConverted = errors.New("review event was not converted")

// ReviewRepository handles database operations for review events
type ReviewRepository struct{}

// NewReviewRepository creates a new repository instance
func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{}
}

// Create inserts a new review event and fills the generated ID
func (r *ReviewRepository) Create(event *models.ReviewEvent) error {
	if isPostgres() {
		err := DB.QueryRow(`
			INSERT INTO review_events (
				item_id, recalled, response_time_ms, interval_used,
				algorithm_used, ml_interval, baseline_interval, reviewed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`,
			event.ItemID,
			event.Recalled,
			event.ResponseTimeMs,
			event.IntervalUsed,
			event.AlgorithmUsed,
			event.MLInterval,
			event.BaselineInterval,
			event.ReviewedAt,
		).Scan(&event.ID)
		if err != nil {
			return fmt.Errorf("failed to create review event: %v", err)
		}
		return nil
	}

	result, err := DB.Exec(`
		INSERT INTO review_events (
			item_id, recalled, response_time_ms, interval_used,
			algorithm_used, ml_interval, baseline_interval, reviewed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		event.ItemID,
		event.Recalled,
		event.ResponseTimeMs,
		event.IntervalUsed,
		event.AlgorithmUsed,
		event.MLInterval,
		event.BaselineInterval,
		event.ReviewedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create review event: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get review event id: %v", err)
	}
	event.ID = id
	return nil
}

// HistoryForItem returns the full review history of an item in review
// order. Position in this slice is the event's position in history.
func (r *ReviewRepository) HistoryForItem(itemID int64) ([]models.ReviewEvent, error) {
	var events []models.ReviewEvent
	err := DB.Select(&events, `
		SELECT * FROM review_events
		WHERE item_id = $1
		ORDER BY reviewed_at, id
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review history: %v", err)
	}
	return events, nil
}

// BaselineForItem returns the item's oldest baseline-tagged events, up to
// limit. limit <= 0 means all of them.
func (r *ReviewRepository) BaselineForItem(itemID int64, limit int) ([]models.ReviewEvent, error) {
	query := `
		SELECT * FROM review_events
		WHERE item_id = $1 AND algorithm_used = $2
		ORDER BY reviewed_at, id
	`
	var events []models.ReviewEvent
	var err error
	if limit > 0 {
		err = DB.Select(&events, query+" LIMIT $3", itemID, models.AlgorithmBaseline, limit)
	} else {
		err = DB.Select(&events, query, itemID, models.AlgorithmBaseline)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get baseline events: %v", err)
	}
	return events, nil
}

// MarkConverted rewrites a baseline event with the ML interval, keeping the
// original interval as baseline_interval. Events already converted (or
// never tagged baseline) are left untouched and reported via ErrNotConverted.
func (r *ReviewRepository) MarkConverted(eventID int64, mlInterval, baselineInterval int) error {
	result, err := DB.Exec(`
		UPDATE review_events SET
			algorithm_used = $1,
			ml_interval = $2,
			baseline_interval = $3,
			interval_used = $4
		WHERE id = $5 AND algorithm_used = $6
	`, models.AlgorithmML, mlInterval, baselineInterval, mlInterval, eventID, models.AlgorithmBaseline)
	if err != nil {
		return fmt.Errorf("failed to convert review event: %v", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check converted rows: %v", err)
	}
	if rows == 0 {
		return ErrNotConverted
	}
	return nil
}
