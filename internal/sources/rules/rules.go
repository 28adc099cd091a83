package rules

import "regexp"

// Classifier extracts one label from free text, or reports that nothing
// matched.
type Classifier interface {
	Classify(text string) (string, bool)
}

// Rule is one (pattern -> label) entry of an ordered rule set. A fixed Label
// wins over the capture; otherwise the first capture group (or the whole
// match) becomes the label, passed through Normalize when set.
type Rule struct {
	Pattern   *regexp.Regexp
	Label     string
	Normalize func(string) string
}

// Set is an ordered rule list; the first matching rule wins.
type Set struct {
	rules []Rule
}

func NewSet(rules ...Rule) *Set {
	return &Set{rules: rules}
}

func (s *Set) Classify(text string) (string, bool) {
	for _, r := range s.rules {
		m := r.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if r.Label != "" {
			return r.Label, true
		}
		label := m[0]
		if len(m) > 1 && m[1] != "" {
			label = m[1]
		}
		if r.Normalize != nil {
			label = r.Normalize(label)
		}
		return label, true
	}
	return "", false
}
