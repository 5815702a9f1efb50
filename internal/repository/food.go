package repository

import (
	"context"
	"fmt"

	"stanfood-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FoodRepository handles database operations for food items
type FoodRepository struct {
	db *pgxpool.Pool
}

// NewFoodRepository creates a new food repository
func NewFoodRepository(db *pgxpool.Pool) *FoodRepository {
	return &FoodRepository{db: db}
}

// ListByEventID returns the food items whose event_id equals eventID
func (r *FoodRepository) ListByEventID(ctx context.Context, eventID string) ([]*models.FoodItem, error) {
	query := `
		SELECT id, event_id, description, COALESCE(image_path, '')
		FROM food
		WHERE event_id = $1
		ORDER BY event_id, id
	`
	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get food items: %w", err)
	}
	defer rows.Close()

	var items []*models.FoodItem
	for rows.Next() {
		var item models.FoodItem
		if err := rows.Scan(&item.ID, &item.EventID, &item.Description, &item.ImagePath); err != nil {
			return nil, fmt.Errorf("failed to scan food item: %w", err)
		}
		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating food items: %w", err)
	}
	return items, nil
}

// DeleteFood removes a food item; absent rows are ignored
func (r *FoodRepository) DeleteFood(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM food WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete food item: %w", err)
	}
	return nil
}
