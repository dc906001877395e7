package main

import (
	"crypto/rand"
	"encoding/hex"
)

// newTaskID mints a task/fix-task ID in the same style as the audit
// package's event IDs: a short random hex suffix, not a counter, so
// IDs generated by concurrent CLI invocations never collide.
func newTaskID() string {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing indicates a broken host environment; a
		// predictable fallback is safer than propagating an error
		// through an IDGenerator signature that returns none.
		return "T-fallback-" + hex.EncodeToString(b[:])
	}
	return "T-" + hex.EncodeToString(b[:])
}
