// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify scores one study record against a criteria set.
// The scheduler depends only on the Classifier interface; ClaudeClassifier
// is the production implementation and RateLimited bounds its call rate.
package classify

import (
	"context"

	"github.com/pdiddy/screening-engine/pkg/types"
)

// Classifier decides whether a record meets a criteria set. Implementations
// enforce their own per-call timeout and report every failure as a
// *ClassificationError.
type Classifier interface {
	Classify(ctx context.Context, rec types.StudyRecord, criteria types.CriteriaSet) (Result, error)
}

// Result is a successful classification.
type Result struct {
	Decision   types.Decision `json:"decision" yaml:"decision"`
	Confidence float64        `json:"confidence" yaml:"confidence"`
	Rationale  string         `json:"rationale" yaml:"rationale"`

	// Cost is the USD cost of the call, zero when unknown.
	Cost float64 `json:"cost" yaml:"cost"`
}

// Validate checks the decision and the confidence range.
func (r Result) Validate() error {
	return types.Decided(r.Decision, r.Confidence, r.Rationale, r.Cost).Validate()
}

// Func adapts a plain function to the Classifier interface.
type Func func(ctx context.Context, rec types.StudyRecord, criteria types.CriteriaSet) (Result, error)

// Classify calls f.
func (f Func) Classify(ctx context.Context, rec types.StudyRecord, criteria types.CriteriaSet) (Result, error) {
	return f(ctx, rec, criteria)
}
