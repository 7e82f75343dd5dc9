// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"math"
	"strings"
)

// Status is the classification lifecycle state of a record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDecided    Status = "decided"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDecided, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further automatic change will happen.
func (s Status) Terminal() bool {
	return s == StatusDecided || s == StatusFailed
}

// Decision is the screening outcome for a decided record.
type Decision string

const (
	DecisionInclude Decision = "include"
	DecisionMaybe   Decision = "maybe"
	DecisionExclude Decision = "exclude"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	switch d {
	case DecisionInclude, DecisionMaybe, DecisionExclude:
		return true
	}
	return false
}

// ParseDecision accepts a decision name in any letter case.
func ParseDecision(s string) (Decision, error) {
	d := Decision(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", &ValidationError{Field: "decision", Reason: fmt.Sprintf("unknown decision %q", s)}
	}
	return d, nil
}

// ParseStatus accepts a status name in any letter case.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", s)}
	}
	return st, nil
}

// ClassificationState is the mutable screening state of a record.
// Decision, Confidence and Rationale are set only when Status is decided;
// Error only when Status is failed.
type ClassificationState struct {
	Status     Status   `json:"status" yaml:"status"`
	Decision   Decision `json:"decision,omitempty" yaml:"decision,omitempty"`
	Confidence float64  `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Rationale  string   `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	Error      string   `json:"error,omitempty" yaml:"error,omitempty"`

	// Cost is the reported cost in USD of the classification call that
	// produced this state. Zero for pending and in-progress records.
	Cost float64 `json:"cost,omitempty" yaml:"cost,omitempty"`
}

// Pending returns the initial state of every ingested record.
func Pending() ClassificationState {
	return ClassificationState{Status: StatusPending}
}

// InProgress returns the state of a record dispatched to the classifier.
func InProgress() ClassificationState {
	return ClassificationState{Status: StatusInProgress}
}

// Decided returns a decided state.
func Decided(d Decision, confidence float64, rationale string, cost float64) ClassificationState {
	return ClassificationState{
		Status:     StatusDecided,
		Decision:   d,
		Confidence: confidence,
		Rationale:  rationale,
		Cost:       cost,
	}
}

// Failed returns a failed state carrying the failure reason.
func Failed(reason string, cost float64) ClassificationState {
	return ClassificationState{Status: StatusFailed, Error: reason, Cost: cost}
}

// Validate checks that the fields present match the status.
func (c ClassificationState) Validate() error {
	switch c.Status {
	case StatusPending, StatusInProgress:
		if c.Decision != "" || c.Confidence != 0 || c.Rationale != "" || c.Error != "" || c.Cost != 0 {
			return &ValidationError{Field: "classification", Reason: fmt.Sprintf("%s state carries outcome fields", c.Status)}
		}
	case StatusDecided:
		if !c.Decision.Valid() {
			return &ValidationError{Field: "decision", Reason: fmt.Sprintf("unknown decision %q", c.Decision)}
		}
		if math.IsNaN(c.Confidence) || c.Confidence < 0 || c.Confidence > 1 {
			return &ValidationError{Field: "confidence", Reason: fmt.Sprintf("%f out of range [0,1]", c.Confidence)}
		}
		if c.Error != "" {
			return &ValidationError{Field: "error", Reason: "decided state carries an error"}
		}
	case StatusFailed:
		if c.Error == "" {
			return &ValidationError{Field: "error", Reason: "failed state needs a reason"}
		}
		if c.Decision != "" || c.Confidence != 0 || c.Rationale != "" {
			return &ValidationError{Field: "decision", Reason: "failed state carries a decision"}
		}
	default:
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", c.Status)}
	}
	return nil
}
