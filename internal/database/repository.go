package database

import (
	"context"
	"errors"
)

// ErrPhotoNotFound is returned when a photo row does not exist.
var ErrPhotoNotFound = errors.New("photo not found")

// PhotoReader provides read-only access to photo rows
type PhotoReader interface {
	// Get retrieves a photo by ID, returns ErrPhotoNotFound if missing
	Get(ctx context.Context, id string) (*Photo, error)
	// Query returns all photos matching the filter in the given order
	Query(ctx context.Context, filter PhotoFilter, order Order) ([]Photo, error)
}

// PhotoWriter provides write access to photo rows
type PhotoWriter interface {
	PhotoReader

	// Insert stores a new photo and returns it with generated fields filled in
	Insert(ctx context.Context, photo Photo) (Photo, error)
	// UpdateByFilter applies the patch to every row matching the filter
	UpdateByFilter(ctx context.Context, filter PhotoFilter, patch PhotoPatch) (int64, error)
	// UpdateByIDs applies the patch to the given rows in one statement
	UpdateByIDs(ctx context.Context, ids []string, patch PhotoPatch) (int64, error)
	// Delete removes a photo row
	Delete(ctx context.Context, id string) error
}
