// CLAUDE:SUMMARY Free-text category normalization: Unicode folding plus ordered first-match substring rules with a catch-all label.
package survey

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Fold prepares a raw answer for matching: NFC composition, lowercase, trim.
// Composition keeps Kazakh letters typed as base+combining mark comparable
// with the precomposed trigger phrases.
func Fold(s string) string {
	return strings.TrimSpace(strings.ToLower(norm.NFC.String(s)))
}

// Rule maps matching input to a canonical label.
//
// A rule matches when the folded input equals one of Exact, or when one of
// AnyOf is contained (or AnyOf is empty) and all of AllOf are contained.
// A rule with neither AnyOf nor AllOf only matches through Exact.
type Rule struct {
	Label string   `yaml:"label" json:"label"`
	Exact []string `yaml:"exact,omitempty" json:"exact,omitempty"`
	AnyOf []string `yaml:"any_of,omitempty" json:"any_of,omitempty"`
	AllOf []string `yaml:"all_of,omitempty" json:"all_of,omitempty"`
}

func (r Rule) matches(folded string) bool {
	for _, e := range r.Exact {
		if folded == Fold(e) {
			return true
		}
	}
	if len(r.AnyOf) == 0 && len(r.AllOf) == 0 {
		return false
	}
	if len(r.AnyOf) > 0 && !containsAny(folded, r.AnyOf) {
		return false
	}
	for _, p := range r.AllOf {
		if !strings.Contains(folded, Fold(p)) {
			return false
		}
	}
	return true
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, Fold(p)) {
			return true
		}
	}
	return false
}

// Normalizer maps any string onto a fixed label set. Rule order matters:
// the first matching rule wins.
type Normalizer struct {
	Rules   []Rule `yaml:"rules" json:"rules"`
	Default string `yaml:"default" json:"default"`
}

// Normalize returns the label for raw, or Default when no rule matches.
func (n Normalizer) Normalize(raw string) string {
	folded := Fold(raw)
	for _, r := range n.Rules {
		if r.matches(folded) {
			return r.Label
		}
	}
	return n.Default
}

// Labels returns every label the normalizer can produce, Default last.
func (n Normalizer) Labels() []string {
	seen := make(map[string]bool, len(n.Rules)+1)
	labels := make([]string, 0, len(n.Rules)+1)
	for _, r := range n.Rules {
		if !seen[r.Label] {
			seen[r.Label] = true
			labels = append(labels, r.Label)
		}
	}
	if !seen[n.Default] {
		labels = append(labels, n.Default)
	}
	return labels
}
