package ui

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders markdown source for terminal display,
// falling back to the raw source if no TTY renderer is available.
// No taskctl command calls it.
func RenderMarkdown(source string) (string, error) {
	if !IsTerminal() {
		return source, nil
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(GetWidth()),
	)
	if err != nil {
		return "", fmt.Errorf("building markdown renderer: %w", err)
	}
	out, err := r.Render(source)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}
