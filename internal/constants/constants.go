// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Template grid constants
const (
	// SlotCount is the number of positions on one printable sheet (3x3)
	SlotCount = 9

	// GridColumns is the number of slots per row on the rendered sheet
	GridColumns = 3

	// DefaultPollInterval is how often the ingestion poller queries the store
	DefaultPollInterval = 3 * time.Second
)

// Edit constants
const (
	// MinZoom and MaxZoom bound the per-photo zoom factor
	MinZoom = 0.2
	MaxZoom = 3.0

	// ZoomStep is the amount one zoom-in / zoom-out press changes the factor
	ZoomStep = 0.1

	// DefaultZoom is the zoom of a photo that was never edited
	DefaultZoom = 1.0
)

// Rendering constants
const (
	// CellSize is the edge length in pixels of one square cell on the sheet
	CellSize = 600

	// CellPadding is the white margin around each cell
	CellPadding = 24

	// CaptionHeight is the strip under each cell reserved for the order code
	CaptionHeight = 28
)

// Ingestion constants
const (
	// MaxPhotoSize is the maximum accepted photo upload in bytes (20MB)
	MaxPhotoSize = 20 << 20

	// OrderCodeLength is the number of characters in a generated order code
	OrderCodeLength = 6
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)
