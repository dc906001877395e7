// Package fingerprint derives the canonical idempotency key for a
// submitted transition command. Two commands that mean the same thing
// — same task, same action, same caller-supplied fields — must
// fingerprint identically even if submitted with different field
// ordering, casing, or incidental whitespace.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// serverGeneratedKeys are fields the caller may include in a payload
// that must never affect the fingerprint, because the server, not the
// client, decides their value (e.g. the id assigned to a fix task
// raised as a side effect).
var serverGeneratedKeys = map[string]bool{
	"fix_task_id": true,
}

// Canonicalize produces a deterministic string representation of a
// command's identifying fields, suitable for hashing. The identifying
// fields are task_id, actor_user_id, action, expected_row_version, and
// payload: two requests that differ only in actor or expected version
// must not fingerprint identically. It drops server-generated payload
// keys, lowercases and hyphenates string identifiers, coerces
// non-string scalars to their string form, trims whitespace, and sorts
// map keys so field order never affects the result.
func Canonicalize(taskID, actorID, action string, expectedRowVersion int64, payload map[string]any) string {
	var b strings.Builder
	b.WriteString(normalizeIdentifier(taskID))
	b.WriteByte('\x00')
	b.WriteString(normalizeIdentifier(actorID))
	b.WriteByte('\x00')
	b.WriteString(normalizeIdentifier(action))
	b.WriteByte('\x00')
	b.WriteString(strconv.FormatInt(expectedRowVersion, 10))
	b.WriteByte('\x00')

	keys := make([]string, 0, len(payload))
	for k := range payload {
		if serverGeneratedKeys[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		b.WriteString(normalizeIdentifier(k))
		b.WriteByte('=')
		b.WriteString(canonicalValue(payload[k]))
		b.WriteByte('&')
	}

	return b.String()
}

// Fingerprint returns the hex-encoded SHA-256 digest of the canonical
// form. The executor compares it against the fingerprint stored on a
// prior transition sharing the same client_event_id to distinguish a
// genuine replay from an idempotency conflict.
func Fingerprint(taskID, actorID, action string, expectedRowVersion int64, payload map[string]any) string {
	sum := sha256.Sum256([]byte(Canonicalize(taskID, actorID, action, expectedRowVersion, payload)))
	return hex.EncodeToString(sum[:])
}

func normalizeIdentifier(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.Join(strings.Fields(s), "-")
	return s
}

func canonicalValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case bool:
		return fmt.Sprintf("%t", val)
	case fmt.Stringer:
		return normalizeIdentifier(val.String())
	default:
		return fmt.Sprintf("%v", val)
	}
}
