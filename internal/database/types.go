package database

import (
	"time"
)

// OwnerKind tells whether a template owner is an event or a market.
type OwnerKind string

// OwnerKind constants.
const (
	OwnerEvent  OwnerKind = "event"
	OwnerMarket OwnerKind = "market"
)

// Valid reports whether k is a known owner kind.
func (k OwnerKind) Valid() bool {
	return k == OwnerEvent || k == OwnerMarket
}

// AwaitingStatus is the status a freshly submitted photo carries until it is
// placed on a printed sheet. Event photos start as pending, market photos
// are inserted straight into the template queue.
func (k OwnerKind) AwaitingStatus() PhotoStatus {
	if k == OwnerMarket {
		return StatusInTemplate
	}
	return StatusPending
}

// PhotoStatus is the lifecycle state of a photo row.
type PhotoStatus string

// PhotoStatus constants.
const (
	StatusPending    PhotoStatus = "pending"
	StatusInTemplate PhotoStatus = "in_template"
	StatusPrinted    PhotoStatus = "printed"
	StatusDeleted    PhotoStatus = "deleted"
)

// PhotoOrigin records how a photo entered the system. It is decided once at
// ingestion and drives overlay rendering.
type PhotoOrigin string

// PhotoOrigin constants.
const (
	OriginCamera PhotoOrigin = "camera"
	OriginUpload PhotoOrigin = "upload"
)

// Photo is a single guest photo stored in the database
type Photo struct {
	ID        string      `json:"id"`
	OwnerID   string      `json:"owner_id"`
	OwnerKind OwnerKind   `json:"owner_kind"`
	SourceURL string      `json:"source_url"`
	ObjectKey string      `json:"object_key"`
	Origin    PhotoOrigin `json:"origin"`
	Status    PhotoStatus `json:"status"`
	OrderCode string      `json:"order_code,omitempty"`
	Scale     float64     `json:"scale"`
	CreatedAt time.Time   `json:"created_at"`
	PrintedAt *time.Time  `json:"printed_at,omitempty"`
}

// IsPrinted reports whether the photo was already consumed by a print.
func (p *Photo) IsPrinted() bool {
	return p.Status == StatusPrinted || p.PrintedAt != nil
}

// PhotoFilter selects photo rows. Zero fields do not constrain the query.
type PhotoFilter struct {
	IDs             []string
	OwnerID         string
	Statuses        []PhotoStatus
	ExcludeStatuses []PhotoStatus
	UnprintedOnly   bool // printed_at IS NULL
}

// Order sorts query results.
type Order int

// Order constants.
const (
	OrderCreatedAsc Order = iota
	OrderCreatedDesc
)

// PhotoPatch lists the columns an update changes. Nil fields are left alone.
type PhotoPatch struct {
	Status    *PhotoStatus
	PrintedAt *time.Time // only applied where printed_at is still NULL
	Scale     *float64
}

// IsEmpty reports whether the patch would change nothing.
func (p PhotoPatch) IsEmpty() bool {
	return p.Status == nil && p.PrintedAt == nil && p.Scale == nil
}

// StatusPatch is a patch that only changes the status.
func StatusPatch(s PhotoStatus) PhotoPatch {
	return PhotoPatch{Status: &s}
}
