package database

import (
	"fmt"

	"github.com/example/recallml/pkg/models"
)

// ItemRepository handles database operations for learning items
type ItemRepository struct{}

// NewItemRepository creates a new repository instance
func NewItemRepository() *ItemRepository {
	return &ItemRepository{}
}

// Create inserts a new item and fills the generated fields
func (r *ItemRepository) Create(item *models.Item) error {
	if isPostgres() {
		err := DB.QueryRow(`
			INSERT INTO items (
				user_id, prompt, answer, difficulty_rating, memory_strength,
				consecutive_correct, total_reviews, last_reviewed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at
		`,
			item.UserID,
			item.Prompt,
			item.Answer,
			item.DifficultyRating,
			item.MemoryStrength,
			item.ConsecutiveCorrect,
			item.TotalReviews,
			item.LastReviewedAt,
		).Scan(&item.ID, &item.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create item: %v", err)
		}
		return nil
	}

	result, err := DB.Exec(`
		INSERT INTO items (
			user_id, prompt, answer, difficulty_rating, memory_strength,
			consecutive_correct, total_reviews, last_reviewed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		item.UserID,
		item.Prompt,
		item.Answer,
		item.DifficultyRating,
		item.MemoryStrength,
		item.ConsecutiveCorrect,
		item.TotalReviews,
		item.LastReviewedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get item id: %v", err)
	}
	item.ID = id

	if err := DB.Get(&item.CreatedAt, "SELECT created_at FROM items WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to get item timestamps: %v", err)
	}
	return nil
}

// GetByID returns an item by ID
func (r *ItemRepository) GetByID(id int64) (*models.Item, error) {
	var item models.Item
	err := DB.Get(&item, "SELECT * FROM items WHERE id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get item by ID: %v", err)
	}
	return &item, nil
}

// ByUser returns all items for a user in creation order
func (r *ItemRepository) ByUser(userID int64) ([]models.Item, error) {
	var items []models.Item
	err := DB.Select(&items, "SELECT * FROM items WHERE user_id = $1 ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get items for user: %v", err)
	}
	return items, nil
}

// UpdateReviewState persists the review counters after history changes
func (r *ItemRepository) UpdateReviewState(item *models.Item) error {
	_, err := DB.Exec(`
		UPDATE items SET
			difficulty_rating = $1,
			memory_strength = $2,
			consecutive_correct = $3,
			total_reviews = $4,
			last_reviewed_at = $5
		WHERE id = $6
	`,
		item.DifficultyRating,
		item.MemoryStrength,
		item.ConsecutiveCorrect,
		item.TotalReviews,
		item.LastReviewedAt,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item review state: %v", err)
	}
	return nil
}
