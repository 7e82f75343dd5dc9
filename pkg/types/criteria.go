// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CriteriaSet holds the normalized inclusion and exclusion rules of a screen.
// Values are replaced wholesale; use Clone before handing one to another owner.
type CriteriaSet struct {
	Inclusion []string `json:"inclusion" yaml:"inclusion"`
	Exclusion []string `json:"exclusion" yaml:"exclusion"`
}

// IsEmpty reports whether the set has no rules at all.
func (c CriteriaSet) IsEmpty() bool {
	return len(c.Inclusion) == 0 && len(c.Exclusion) == 0
}

// Clone returns a deep copy.
func (c CriteriaSet) Clone() CriteriaSet {
	return CriteriaSet{
		Inclusion: append([]string(nil), c.Inclusion...),
		Exclusion: append([]string(nil), c.Exclusion...),
	}
}

// PipelineRun is one pass of classification over a frozen set of records
// under one criteria snapshot.
type PipelineRun struct {
	ID        string      `json:"id" yaml:"id"`
	Criteria  CriteriaSet `json:"criteria" yaml:"criteria"`
	RecordIDs []string    `json:"record_ids" yaml:"record_ids"`
	StartedAt time.Time   `json:"started_at" yaml:"started_at"`
}

// Contains reports whether id is part of the run.
func (r PipelineRun) Contains(id string) bool {
	for _, rid := range r.RecordIDs {
		if rid == id {
			return true
		}
	}
	return false
}
