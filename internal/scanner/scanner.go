// Package scanner detects fabrication markers in tool result text.
//
// Fabricated tool output tends to narrate its own success: "the file has
// been written to disk", "operation completed successfully". Real tools
// rarely congratulate themselves; they return data. The scanner matches a
// configured phrase set against result text and reports which phrases
// appeared. It makes no judgement on its own — scoring is the scorer's
// concern.
package scanner

import "strings"

// DefaultPatterns returns the built-in completion-claim phrases. The
// slice is freshly allocated so callers may not mutate shared state.
func DefaultPatterns() []string {
	return []string{
		"successfully created",
		"successfully completed",
		"completed successfully",
		"successfully executed",
		"successfully obtained",
		"has been written to disk",
		"has been created",
		"saved successfully",
		"operation completed",
		"search completed",
		"results obtained",
		"i have successfully",
	}
}

// Scanner matches a fixed, ordered pattern set against result text.
// Matching is case-insensitive substring matching; scan results preserve
// configuration order, not discovery order, so verdicts are reproducible
// across runs.
type Scanner struct {
	patterns []string
}

// New builds a scanner from the default pattern set plus any
// caller-supplied additions. Additions are strictly additive; duplicates
// (case-insensitive) and empty strings are dropped.
func New(extra ...string) *Scanner {
	return newScanner(DefaultPatterns(), extra)
}

// NewWithPatterns builds a scanner from an explicit base set, bypassing
// the defaults. Used by tests and by callers that manage the full set
// themselves.
func NewWithPatterns(patterns []string) *Scanner {
	return newScanner(patterns, nil)
}

func newScanner(base, extra []string) *Scanner {
	seen := make(map[string]struct{}, len(base)+len(extra))
	merged := make([]string, 0, len(base)+len(extra))
	for _, p := range append(append([]string{}, base...), extra...) {
		key := strings.ToLower(strings.TrimSpace(p))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, key)
	}
	return &Scanner{patterns: merged}
}

// Patterns returns a copy of the configured pattern set in match order.
func (s *Scanner) Patterns() []string {
	out := make([]string, len(s.patterns))
	copy(out, s.patterns)
	return out
}

// Scan returns the patterns found in text, in configuration order, each
// at most once.
func (s *Scanner) Scan(text string) []string {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)

	var matched []string
	for _, p := range s.patterns {
		if strings.Contains(lower, p) {
			matched = append(matched, p)
		}
	}
	return matched
}
