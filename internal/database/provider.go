package database

import (
	"context"
	"errors"
)

var (
	postgresPhotoWriter func() PhotoWriter
	postgresInitialized bool
)

// RegisterPostgresBackend registers the PostgreSQL photo repository constructor.
// This is called from the commands after postgres.Initialize to avoid import cycles.
func RegisterPostgresBackend(photoWriter func() PhotoWriter) {
	postgresPhotoWriter = photoWriter
	postgresInitialized = photoWriter != nil
}

// GetPhotoWriter returns a PhotoWriter from the PostgreSQL backend
func GetPhotoWriter(ctx context.Context) (PhotoWriter, error) {
	if !postgresInitialized {
		return nil, errors.New("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	return postgresPhotoWriter(), nil
}
