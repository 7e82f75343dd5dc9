// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package criteria validates and normalizes inclusion/exclusion rules.
// Every function returns a new CriteriaSet; callers replace state and never
// mutate a set in place.
package criteria

import (
	"strings"

	"github.com/pdiddy/screening-engine/pkg/types"
)

// Set normalizes both rule lists and rejects the result when no rule is left.
func Set(inclusion, exclusion []string) (types.CriteriaSet, error) {
	c := Normalize(inclusion, exclusion)
	if c.IsEmpty() {
		return types.CriteriaSet{}, &types.ValidationError{
			Field:  "criteria",
			Reason: "at least one inclusion or exclusion rule is required",
		}
	}
	return c, nil
}

// Normalize trims rules, strips list bullets, drops empty rules, and
// deduplicates each list preserving first-seen order. An empty result is
// a valid value.
func Normalize(inclusion, exclusion []string) types.CriteriaSet {
	return types.CriteriaSet{
		Inclusion: normalizeRules(inclusion),
		Exclusion: normalizeRules(exclusion),
	}
}

// ParseLines splits free text into one rule per non-blank line. Lines may
// start with "- " as entered in the criteria editor.
func ParseLines(text string) []string {
	var rules []string
	for _, line := range strings.Split(text, "\n") {
		if r := normalizeRule(line); r != "" {
			rules = append(rules, r)
		}
	}
	return rules
}

// MergeTemplate appends the template's rule to the matching list unless it
// is already present. Applying the same template twice is a no-op.
func MergeTemplate(existing types.CriteriaSet, t Template) types.CriteriaSet {
	out := existing.Clone()
	rule := normalizeRule(t.Rule)
	if rule == "" {
		return out
	}
	switch t.Kind {
	case KindInclusion:
		if !contains(out.Inclusion, rule) {
			out.Inclusion = append(out.Inclusion, rule)
		}
	case KindExclusion:
		if !contains(out.Exclusion, rule) {
			out.Exclusion = append(out.Exclusion, rule)
		}
	}
	return out
}

func normalizeRules(rules []string) []string {
	out := make([]string, 0, len(rules))
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		r = normalizeRule(r)
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// normalizeRule trims whitespace and any leading "- " or "* " bullets, so
// normalizing an already normalized rule returns it unchanged.
func normalizeRule(r string) string {
	r = strings.TrimSpace(r)
	for strings.HasPrefix(r, "- ") || strings.HasPrefix(r, "* ") {
		r = strings.TrimSpace(r[2:])
	}
	if r == "-" || r == "*" {
		return ""
	}
	return r
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
