package recommend

import (
	"strings"

	"schoolinfra/domain/infra"
)

// Separator joins recommendations inside a single cell
const Separator = "; "

// Labeler turns facility counts into recommendation labels
type Labeler struct {
	rules []Rule
}

// NewLabeler creates a labeler; nil rules fall back to DefaultRules
func NewLabeler(rules []Rule) *Labeler {
	if rules == nil {
		rules = DefaultRules
	}
	return &Labeler{rules: rules}
}

// Rules returns the rules in evaluation order
func (l *Labeler) Rules() []Rule {
	return l.rules
}

// Label returns the recommendations for one record.
// A record without schools has no defined ratio, so only NoActionText applies.
// A rule whose count is missing or unparsable does not fire.
func (l *Labeler) Label(r infra.Record) []string {
	total := r.Total()
	var labels []string
	if total > 0 {
		for _, rule := range l.rules {
			count, ok := infra.ParseNumber(r.Value(rule.Column))
			if ok && count/total < rule.Threshold {
				labels = append(labels, rule.Recommendation)
			}
		}
	}
	if len(labels) == 0 {
		labels = append(labels, NoActionText)
	}
	return labels
}

// Join encodes labels into a single cell
func Join(labels []string) string {
	return strings.Join(labels, Separator)
}

// Split decodes a cell into labels; empty cells have no labels
func Split(cell string) []string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	parts := strings.Split(cell, Separator)
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			labels = append(labels, p)
		}
	}
	return labels
}
