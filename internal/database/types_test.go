package database

import (
	"testing"
	"time"
)

func TestOwnerKindAwaitingStatus(t *testing.T) {
	tests := []struct {
		kind OwnerKind
		want PhotoStatus
	}{
		{OwnerMarket, StatusInTemplate},
		{OwnerEvent, StatusPending},
		{OwnerKind("unknown"), StatusPending},
	}

	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			if got := tc.kind.AwaitingStatus(); got != tc.want {
				t.Errorf("AwaitingStatus(%q) = %q, want %q", tc.kind, got, tc.want)
			}
		})
	}
}

func TestOwnerKindValid(t *testing.T) {
	if !OwnerEvent.Valid() || !OwnerMarket.Valid() {
		t.Error("expected event and market to be valid")
	}
	if OwnerKind("").Valid() || OwnerKind("Market").Valid() {
		t.Error("expected empty and mis-cased kinds to be invalid")
	}
}

func TestPhotoIsPrinted(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		photo Photo
		want  bool
	}{
		{"pending", Photo{Status: StatusPending}, false},
		{"in template", Photo{Status: StatusInTemplate}, false},
		{"printed status", Photo{Status: StatusPrinted}, true},
		{"printed at only", Photo{Status: StatusInTemplate, PrintedAt: &now}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.photo.IsPrinted(); got != tc.want {
				t.Errorf("IsPrinted() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPhotoPatchIsEmpty(t *testing.T) {
	if !(PhotoPatch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
	if StatusPatch(StatusDeleted).IsEmpty() {
		t.Error("status patch should not be empty")
	}
}
