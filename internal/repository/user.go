package repository

import (
	"context"
	"fmt"

	"stanfood-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles database operations for users and their settings
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// ListUsers returns every user keyed by user ID
func (r *UserRepository) ListUsers(ctx context.Context) (map[string]*models.User, error) {
	query := `SELECT id, email, name, COALESCE(instance_id, '') FROM users`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make(map[string]*models.User)
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.InstanceID); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users[user.ID] = &user
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// ListPushEnabledSettings returns the settings of users who opted into push notifications
func (r *UserRepository) ListPushEnabledSettings(ctx context.Context) ([]*models.UserSettings, error) {
	query := `
		SELECT user_id, receive_push_notifications, time_window_start, time_window_end
		FROM settings
		WHERE receive_push_notifications = TRUE
		ORDER BY user_id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	var settings []*models.UserSettings
	for rows.Next() {
		var s models.UserSettings
		if err := rows.Scan(&s.UserID, &s.ReceivePushNotifications, &s.TimeWindowStart, &s.TimeWindowEnd); err != nil {
			return nil, fmt.Errorf("failed to scan settings: %w", err)
		}
		settings = append(settings, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}
	return settings, nil
}

