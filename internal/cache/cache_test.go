package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_LoadMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	data, err := store.Load(context.Background(), "processed_photos_market-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if data != nil {
		t.Errorf("expected nil data for missing key, got %q", data)
	}
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, "processed_photos_market-1", []byte(`["a","b"]`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(ctx, "processed_photos_market-1", []byte(`["a","b","c"]`)); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	data, err := store.Load(ctx, "processed_photos_market-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(data) != `["a","b","c"]` {
		t.Errorf("expected latest document, got %q", data)
	}

	if _, err := os.Stat(filepath.Join(dir, "processed_photos_market-1.json.tmp")); !os.IsNotExist(err) {
		t.Error("temporary file should not remain after save")
	}
}

func TestFileStore_KeysCannotEscapeRoot(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	if err := store.Save(context.Background(), "../../etc/passwd", []byte("x")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected file inside root, got %d entries", len(entries))
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{"processed_photos_abc", "processed_photos_abc", false},
		{"owner/with/slash", "owner%2Fwith%2Fslash", false},
		{"owner_with_slash", "owner_with_slash", false},
		{"  spaced  ", "spaced", false},
		{"a b", "a%20b", false},
		{"50%", "50%25", false},
		{"../up", "%2E%2E%2Fup", false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			got, err := sanitizeKey(tc.key)
			if (err != nil) != tc.wantErr {
				t.Fatalf("sanitizeKey(%q) error = %v, wantErr %v", tc.key, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("sanitizeKey(%q) = %q, want %q", tc.key, got, tc.want)
			}
		})
	}
}

func TestFileStore_DistinctKeysDoNotCollide(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	ctx := context.Background()

	keys := []string{"processed_photos_m/1", "processed_photos_m_1", "processed_photos_m%2F1", "processed_photos_m.1"}
	for _, key := range keys {
		if err := store.Save(ctx, key, []byte(key)); err != nil {
			t.Fatalf("Save(%q) failed: %v", key, err)
		}
	}
	for _, key := range keys {
		data, err := store.Load(ctx, key)
		if err != nil {
			t.Fatalf("Load(%q) failed: %v", key, err)
		}
		if string(data) != key {
			t.Errorf("Load(%q): expected own document, got %q", key, data)
		}
	}
}

func TestMemoryStore_CopiesData(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	data := []byte("abc")

	if err := store.Save(ctx, "k", data); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data[0] = 'x'

	got, _ := store.Load(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("expected stored copy 'abc', got %q", got)
	}
}
