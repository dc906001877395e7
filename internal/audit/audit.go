// Package audit maintains an append-only JSONL trail, independent of
// the transactional transition log in storage — this one is for
// operators tailing a file, not for the idempotency/replay machinery.
// Entries are written only by callers of Append; the executor and
// taskctl do not call it, so applied transitions are not recorded here.
package audit

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// FileName is the audit log file name stored under the configured
	// audit directory.
	FileName = "transitions.jsonl"
	idPrefix = "aud-"
)

// Entry is one audited transition.
type Entry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	TaskID        string `json:"task_id"`
	Action        string `json:"action"`
	ActorID       string `json:"actor_id"`
	ClientEventID string `json:"client_event_id"`
	FromStatus    string `json:"from_status"`
	ToStatus      string `json:"to_status"`
	Error         string `json:"error,omitempty"`

	Extra map[string]any `json:"extra,omitempty"`
}

// Path returns the audit log path under dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// EnsureFile creates the audit log under dir if it does not exist.
func EnsureFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("creating audit directory %s: %w", dir, err)
	}
	p := Path(dir)
	if _, err := os.Stat(p); err == nil {
		return p, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat audit log: %w", err)
	}
	if err := os.WriteFile(p, []byte{}, 0644); err != nil {
		return "", fmt.Errorf("creating audit log: %w", err)
	}
	return p, nil
}

// Append writes e as a single JSON line to the audit log under dir.
// This is append-only: callers must never mutate existing lines.
func Append(dir string, e *Entry) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil entry")
	}
	if e.TaskID == "" || e.Action == "" {
		return "", fmt.Errorf("audit entry requires task_id and action")
	}

	p, err := EnsureFile(dir)
	if err != nil {
		return "", err
	}

	if e.ID == "" {
		e.ID, err = newID()
		if err != nil {
			return "", err
		}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	} else {
		e.CreatedAt = e.CreatedAt.UTC()
	}

	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("opening audit log: %w", err)
	}
	defer func() { _ = f.Close() }()

	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return "", fmt.Errorf("writing audit entry: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return "", fmt.Errorf("flushing audit log: %w", err)
	}

	return e.ID, nil
}

func newID() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generating audit id: %w", err)
	}
	return idPrefix + hex.EncodeToString(b[:]), nil
}
