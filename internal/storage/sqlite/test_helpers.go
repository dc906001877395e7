package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

// newTestStore opens a fresh Storage in a per-test temp directory and
// registers its Close on test cleanup.
func newTestStore(t *testing.T) *Storage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "taskcore-test.db")
	store, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})
	return store
}
