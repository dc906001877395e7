package taskcore_test

import (
	"context"
	"path/filepath"
	"testing"

	taskcore "github.com/ironworks-mfg/taskcore"
)

func TestNewSQLiteStorage(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	ctx := context.Background()
	store, err := taskcore.NewSQLiteStorage(ctx, dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStorage failed: %v", err)
	}
	defer store.Close()

	if store == nil {
		t.Fatal("expected non-nil storage")
	}
}

func TestEvaluateAllowsAssignFromAvailable(t *testing.T) {
	result, err := taskcore.Evaluate(taskcore.StatusAvailable, taskcore.ActionAssign, map[string]any{"assign_to": "worker-1"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.NewStatus != taskcore.StatusAssigned {
		t.Fatalf("expected new status assigned, got %v", result.NewStatus)
	}
}
