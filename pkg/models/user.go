package models

import "time"

// User represents a learner whose items and review history are stored
type User struct {
	ID        int64     `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Simulated bool      `json:"simulated" db:"simulated"` // Seeded account, default backfill target
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
