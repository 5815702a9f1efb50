package services

import (
	"context"

	"stanfood-backend/internal/models"
	"stanfood-backend/internal/push"
)

// EventStore reads event records
type EventStore interface {
	ListEvents(ctx context.Context) ([]*models.Event, error)
	ListByPinID(ctx context.Context, pinID string) ([]*models.Event, error)
	GetByID(ctx context.Context, id string) (*models.Event, error)
}

// FoodStore looks up food items by event and deletes them
type FoodStore interface {
	ListByEventID(ctx context.Context, eventID string) ([]*models.FoodItem, error)
	DeleteFood(ctx context.Context, id string) error
}

// PinCounter deletes an event and applies fn to its pin's event counter in
// one transaction. fn may be invoked more than once when the store retries
// on conflict.
type PinCounter interface {
	RemoveEvent(ctx context.Context, pinID, eventID string, fn func(current *int64) *int64) error
}

// UserStore reads users and their notification settings
type UserStore interface {
	ListUsers(ctx context.Context) (map[string]*models.User, error)
	ListPushEnabledSettings(ctx context.Context) ([]*models.UserSettings, error)
}

// BlobStore deletes stored images by path
type BlobStore interface {
	Delete(ctx context.Context, path string) error
}

// Sender delivers one notification payload to a batch of device tokens
type Sender interface {
	SendBatch(ctx context.Context, tokens []string, p push.Payload) ([]push.Result, error)
}
