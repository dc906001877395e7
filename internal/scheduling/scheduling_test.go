package scheduling

import (
	"testing"
	"time"
)

func TestParseDueAtRecognizesRelativeExpression(t *testing.T) {
	p := NewParser()
	now := time.Date(2026, 7, 30, 8, 0, 0, 0, time.UTC)

	got, err := p.ParseDueAt("tomorrow at 5pm", now)
	if err != nil {
		t.Fatalf("ParseDueAt: %v", err)
	}
	if !got.After(now) {
		t.Fatalf("expected parsed due date to be after now, got %v", got)
	}
}

func TestParseDueAtRejectsUnrecognizableText(t *testing.T) {
	p := NewParser()
	_, err := p.ParseDueAt("asdkjfh not a date", time.Now())
	if err == nil {
		t.Fatalf("expected an error for unparseable text")
	}
}
