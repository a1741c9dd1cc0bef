package knowledge

import "strings"

// Matcher resolves a query to the first entry whose keyword occurs in it.
// Entries are scanned in definition order; first match wins, not best match.
type Matcher struct {
	base *Base
}

// NewMatcher creates a matcher over base.
func NewMatcher(base *Base) *Matcher {
	return &Matcher{base: base}
}

// Match returns the first entry any of whose keywords is a substring of the
// lower-cased query.
// Time Complexity: O(entries * keywords * len(query))
func (m *Matcher) Match(query string) (Entry, bool) {
	lower := strings.ToLower(query)
	for _, e := range m.base.entries {
		for _, k := range e.Keywords {
			if strings.Contains(lower, k) {
				return e, true
			}
		}
	}
	return Entry{}, false
}

// Answer returns the matching entry's answer, or FallbackAnswer.
func (m *Matcher) Answer(query string) string {
	if e, ok := m.Match(query); ok {
		return e.Answer
	}
	return FallbackAnswer
}
