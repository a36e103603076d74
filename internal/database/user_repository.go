package database

import (
	"fmt"

	"github.com/example/recallml/pkg/models"
)

// UserRepository handles database operations for users
type UserRepository struct{}

// NewUserRepository creates a new repository instance
func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

// Create inserts a new user and fills the generated fields
func (r *UserRepository) Create(user *models.User) error {
	if isPostgres() {
		err := DB.QueryRow(`
			INSERT INTO users (username, simulated)
			VALUES ($1, $2)
			RETURNING id, created_at
		`, user.Username, user.Simulated).Scan(&user.ID, &user.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create user: %v", err)
		}
		return nil
	}

	// SQLite: no RETURNING, read the row back after insert
	result, err := DB.Exec(`
		INSERT INTO users (username, simulated)
		VALUES ($1, $2)
	`, user.Username, user.Simulated)
	if err != nil {
		return fmt.Errorf("failed to create user: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user id: %v", err)
	}
	user.ID = id

	if err := DB.Get(&user.CreatedAt, "SELECT created_at FROM users WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to get user timestamps: %v", err)
	}
	return nil
}

// GetByID returns a user by ID
func (r *UserRepository) GetByID(id int64) (*models.User, error) {
	var user models.User
	err := DB.Get(&user, "SELECT * FROM users WHERE id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %v", err)
	}
	return &user, nil
}

// GetByUsername returns a user by username
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := DB.Get(&user, "SELECT * FROM users WHERE username = $1", username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %v", err)
	}
	return &user, nil
}

// BackfillTargets returns the users whose history a backfill run may
// rewrite. Only simulated accounts are selected unless includeAll is set.
// limit <= 0 means no limit.
func (r *UserRepository) BackfillTargets(limit int, includeAll bool) ([]models.User, error) {
	query := "SELECT * FROM users"
	if !includeAll {
		query += " WHERE simulated = $1"
	}
	query += " ORDER BY id"

	var users []models.User
	var err error
	switch {
	case includeAll && limit > 0:
		err = DB.Select(&users, query+" LIMIT $1", limit)
	case includeAll:
		err = DB.Select(&users, query)
	case limit > 0:
		err = DB.Select(&users, query+" LIMIT $2", true, limit)
	default:
		err = DB.Select(&users, query, true)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get backfill targets: %v", err)
	}
	return users, nil
}
