// Package deliverable holds the kind registry: a small plugin-style
// mapping from a deliverable's Kind string to a validation hook and a
// minimum compatible schema version, so new deliverable kinds can be
// registered without touching the QC or fix-task packages.
package deliverable

import (
	"fmt"
	"sync"

	"golang.org/x/mod/semver"

	"github.com/ironworks-mfg/taskcore/internal/types"
)

// ValidateFunc checks a deliverable against kind-specific rules
// beyond the generic schema (e.g. a weld-seam deliverable requiring a
// non-empty inspection template reference).
type ValidateFunc func(d *types.Deliverable) error

// KindSpec is one registered deliverable kind.
type KindSpec struct {
	Kind       string
	MinVersion string // semver, e.g. "v1.0.0"
	Validate   ValidateFunc
}

// Registry holds registered kinds, keyed by Kind.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]KindSpec
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]KindSpec)}
}

// Register adds or replaces a kind spec. MinVersion must be a valid
// semver string; Register panics on a malformed one since this is
// always called at process startup with a hardcoded value, never with
// untrusted input.
func (r *Registry) Register(spec KindSpec) {
	if !semver.IsValid(spec.MinVersion) {
		panic(fmt.Sprintf("deliverable: invalid min_version %q for kind %q", spec.MinVersion, spec.Kind))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[spec.Kind] = spec
}

// Validate runs the registered hook for d.Kind, if any, and checks
// that callerVersion (the schema version the caller was built
// against) is compatible with the kind's minimum required version.
// An unregistered kind is accepted with no extra checks — the
// registry augments validation for known kinds, it does not gate
// unknown ones.
func (r *Registry) Validate(d *types.Deliverable, callerVersion string) error {
	r.mu.RLock()
	spec, ok := r.kinds[d.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	if semver.Compare(callerVersion, spec.MinVersion) < 0 {
		return fmt.Errorf("deliverable kind %q requires schema >= %s, caller has %s: %w",
			d.Kind, spec.MinVersion, callerVersion, types.ErrValidation)
	}
	if spec.Validate != nil {
		if err := spec.Validate(d); err != nil {
			return fmt.Errorf("deliverable kind %q validation: %w", d.Kind, err)
		}
	}
	return nil
}
