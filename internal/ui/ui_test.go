package ui

import "testing"

func TestRenderStatusPlainWhenColorDisabled(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if got := RenderStatus("blocked"); got != "blocked" {
		t.Fatalf("expected plain status text with NO_COLOR set, got %q", got)
	}
}

func TestGetWidthFallsBackWhenNotATerminal(t *testing.T) {
	if w := GetWidth(); w <= 0 {
		t.Fatalf("expected a positive width, got %d", w)
	}
}

func TestRenderMarkdownReturnsSourceWhenNotATerminal(t *testing.T) {
	got, err := RenderMarkdown("# hello")
	if err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	if got != "# hello" {
		t.Fatalf("expected raw source returned in non-terminal test environment, got %q", got)
	}
}
