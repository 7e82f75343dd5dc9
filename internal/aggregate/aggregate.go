// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate derives progress statistics and filtered views from a
// record snapshot. It owns no state: every result is recomputed from the
// records passed in, so it can never drift from them.
package aggregate

import (
	"math"
	"strings"

	"github.com/pdiddy/screening-engine/pkg/types"
)

// ComputeStats counts records per status and decision in a single pass.
func ComputeStats(records []types.StudyRecord) types.AggregateStats {
	stats := types.AggregateStats{Total: len(records)}
	for _, r := range records {
		c := r.Classification
		stats.EstimatedCost += c.Cost
		switch c.Status {
		case types.StatusPending:
			stats.Pending++
		case types.StatusInProgress:
			stats.InProgress++
		case types.StatusFailed:
			stats.Failed++
		case types.StatusDecided:
			stats.Decided++
			switch c.Decision {
			case types.DecisionInclude:
				stats.Included++
			case types.DecisionMaybe:
				stats.Maybe++
			case types.DecisionExclude:
				stats.Excluded++
			}
		}
	}
	stats.Processed = stats.Decided + stats.Failed
	return stats
}

// Filter narrows a view. Zero-valued fields match everything; set fields
// are combined with AND.
type Filter struct {
	Status     types.Status
	Decision   types.Decision
	SearchText string
}

// IsEmpty reports whether the filter matches every record.
func (f Filter) IsEmpty() bool {
	return f.Status == "" && f.Decision == "" && strings.TrimSpace(f.SearchText) == ""
}

// Match reports whether r satisfies every set field of f.
func (f Filter) Match(r types.StudyRecord) bool {
	if f.Status != "" && r.Classification.Status != f.Status {
		return false
	}
	if f.Decision != "" && (r.Classification.Status != types.StatusDecided || r.Classification.Decision != f.Decision) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.SearchText)); q != "" {
		return matchesText(r, q)
	}
	return true
}

// View returns copies of the records matching f, in input order.
func View(records []types.StudyRecord, f Filter) []types.StudyRecord {
	out := make([]types.StudyRecord, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// ConfidencePercent converts a confidence in [0,1] to a rounded integer
// percentage.
func ConfidencePercent(confidence float64) int {
	return int(math.Round(confidence * 100))
}

func matchesText(r types.StudyRecord, q string) bool {
	if strings.Contains(strings.ToLower(r.Title), q) || strings.Contains(strings.ToLower(r.Abstract), q) {
		return true
	}
	for _, a := range r.Authors {
		if strings.Contains(strings.ToLower(a), q) {
			return true
		}
	}
	return false
}
