package models

import "time"

// Item represents a learning item (one question/card) belonging to a user
type Item struct {
	ID                 int64      `json:"id" db:"id"`
	UserID             int64      `json:"user_id" db:"user_id"`
	Prompt             string     `json:"prompt" db:"prompt"`
	Answer             string     `json:"answer" db:"answer"`
	DifficultyRating   float64    `json:"difficulty_rating" db:"difficulty_rating"`     // 0-1, higher is harder
	MemoryStrength     float64    `json:"memory_strength" db:"memory_strength"`         // Days-equivalent trace strength
	ConsecutiveCorrect int        `json:"consecutive_correct" db:"consecutive_correct"` // Current recall streak
	TotalReviews       int        `json:"total_reviews" db:"total_reviews"`
	LastReviewedAt     *time.Time `json:"last_reviewed_at" db:"last_reviewed_at"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
}
