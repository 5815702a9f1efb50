package storage

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogOnlyStorage is used when no bucket is configured; deletes are only logged
type LogOnlyStorage struct{}

// Delete logs the path that would have been removed
func (LogOnlyStorage) Delete(ctx context.Context, path string) error {
	log.Warn().Str("image_path", path).Msg("No bucket configured, image left in place")
	return nil
}
