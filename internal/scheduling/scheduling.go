// Package scheduling parses the natural-language due-date and SLA
// expressions operators enter when creating a deliverable ("in 2
// business days", "end of shift today") into concrete timestamps.
package scheduling

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Parser wraps an olebedev/when rule set configured for English
// shift-floor phrasing.
type Parser struct {
	w *when.Parser
}

// NewParser builds a Parser with the combined common + English rule
// set, the same combination the library's own README demonstrates.
func NewParser() *Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{w: w}
}

// ParseDueAt parses text relative to now and returns the resulting
// timestamp. An expression with no recognizable time reference
// returns an error rather than defaulting to some implicit due date.
func (p *Parser) ParseDueAt(text string, now time.Time) (time.Time, error) {
	r, err := p.w.Parse(text, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing due-date expression %q: %w", text, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("no recognizable due-date expression in %q", text)
	}
	return r.Time, nil
}
