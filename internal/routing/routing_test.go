package routing

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeRoutingFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routing.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing routing file: %v", err)
	}
	return path
}

func TestMemberWithinConfiguredPool(t *testing.T) {
	path := writeRoutingFile(t, `
pools:
  - tenant_id: acme
    project_id: line-1
    members: [op-1, op-2]
`)
	pool, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ok, err := pool.Member(context.Background(), "acme", "line-1", "op-1")
	if err != nil {
		t.Fatalf("Member: %v", err)
	}
	if !ok {
		t.Fatalf("expected op-1 to be a pool member")
	}

	ok, err = pool.Member(context.Background(), "acme", "line-1", "op-9")
	if err != nil {
		t.Fatalf("Member: %v", err)
	}
	if ok {
		t.Fatalf("expected op-9 not to be a pool member")
	}
}

func TestMemberUnconfiguredPoolIsOpen(t *testing.T) {
	path := writeRoutingFile(t, "pools: []\n")
	pool, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ok, err := pool.Member(context.Background(), "other-tenant", "line-9", "anyone")
	if err != nil {
		t.Fatalf("Member: %v", err)
	}
	if !ok {
		t.Fatalf("expected unconfigured tenant/project to be open")
	}
}
