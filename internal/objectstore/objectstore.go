// Package objectstore stores photo files and hands out the public URLs the
// browser and the sheet renderer load them from.
package objectstore

import (
	"context"
	"io"
	"strings"
)

// Store is the object storage contract used by photo ingestion and rendering.
type Store interface {
	// Upload writes data under key, replacing any existing object
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	// PublicURL returns the URL the object is publicly reachable at
	PublicURL(key string) string
	// Open streams the object back
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// joinURL appends key to base with exactly one slash between them.
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
