// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// AggregateStats is a derived view over a record snapshot. It is never
// stored; see aggregate.ComputeStats.
type AggregateStats struct {
	Total      int `json:"total" yaml:"total"`
	Pending    int `json:"pending" yaml:"pending"`
	InProgress int `json:"in_progress" yaml:"in_progress"`
	Decided    int `json:"decided" yaml:"decided"`
	Failed     int `json:"failed" yaml:"failed"`

	Included int `json:"included" yaml:"included"`
	Maybe    int `json:"maybe" yaml:"maybe"`
	Excluded int `json:"excluded" yaml:"excluded"`

	// Processed counts decided and failed records only.
	Processed int `json:"processed" yaml:"processed"`

	// EstimatedCost sums the per-record classification cost in USD.
	EstimatedCost float64 `json:"estimated_cost" yaml:"estimated_cost"`
}

// Percent returns processed/total as an integer percentage.
func (s AggregateStats) Percent() int {
	if s.Total == 0 {
		return 0
	}
	return s.Processed * 100 / s.Total
}

// Complete reports whether every record is terminal.
func (s AggregateStats) Complete() bool {
	return s.Total > 0 && s.Processed == s.Total
}
