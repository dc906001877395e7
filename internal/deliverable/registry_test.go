package deliverable

import (
	"errors"
	"testing"

	"github.com/ironworks-mfg/taskcore/internal/types"
)

func TestValidateUnregisteredKindPasses(t *testing.T) {
	r := NewRegistry()
	d := &types.Deliverable{Kind: "unregistered-thing"}
	if err := r.Validate(d, "v1.0.0"); err != nil {
		t.Fatalf("expected unregistered kind to pass through, got %v", err)
	}
}

func TestValidateRejectsIncompatibleCallerVersion(t *testing.T) {
	r := NewRegistry()
	r.Register(KindSpec{Kind: "weld-seam", MinVersion: "v2.0.0"})

	d := &types.Deliverable{Kind: "weld-seam"}
	err := r.Validate(d, "v1.3.0")
	if err == nil {
		t.Fatalf("expected a version-incompatibility error")
	}
	if !errors.Is(err, types.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestValidateRunsKindHook(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register(KindSpec{
		Kind:       "weld-seam",
		MinVersion: "v1.0.0",
		Validate: func(d *types.Deliverable) error {
			called = true
			return nil
		},
	})

	d := &types.Deliverable{Kind: "weld-seam"}
	if err := r.Validate(d, "v1.0.0"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !called {
		t.Fatalf("expected kind-specific validate hook to run")
	}
}

func TestRegisterPanicsOnInvalidVersion(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected Register to panic on a malformed semver string")
		}
	}()
	NewRegistry().Register(KindSpec{Kind: "bad", MinVersion: "not-a-version"})
}
