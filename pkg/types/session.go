// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// Stage is the position of a screening session in its workflow.
type Stage string

const (
	StageUpload     Stage = "upload"
	StageCriteria   Stage = "criteria"
	StageProcessing Stage = "processing"
	StageResults    Stage = "results"
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageUpload, StageCriteria, StageProcessing, StageResults:
		return true
	}
	return false
}

// ParseStage converts a stored stage name.
func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	if !st.Valid() {
		return "", &ValidationError{Field: "stage", Reason: fmt.Sprintf("unknown stage %q", s)}
	}
	return st, nil
}

// SessionState is everything needed to persist and restore a session.
type SessionState struct {
	ID        string        `json:"id" yaml:"id"`
	Stage     Stage         `json:"stage" yaml:"stage"`
	Criteria  CriteriaSet   `json:"criteria" yaml:"criteria"`
	Run       *PipelineRun  `json:"run,omitempty" yaml:"run,omitempty"`
	Records   []StudyRecord `json:"records" yaml:"records"`
	UpdatedAt time.Time     `json:"updated_at" yaml:"updated_at"`
}
