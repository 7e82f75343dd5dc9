// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"fmt"

	"github.com/pdiddy/screening-engine/pkg/types"
)

// Sentinel errors for session operations.
var (
	ErrCriteriaLocked = errors.New("criteria cannot change while records are processing")
	ErrNoRun          = errors.New("no pipeline run")
)

// InvalidStageTransitionError reports an event that is not allowed in the
// current stage, or whose guard rejected it. The stage is unchanged.
type InvalidStageTransitionError struct {
	From  types.Stage
	Event Event
	Err   error
}

func (e *InvalidStageTransitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s rejected in stage %s: %v", e.Event, e.From, e.Err)
	}
	return fmt.Sprintf("%s is not valid in stage %s", e.Event, e.From)
}

func (e *InvalidStageTransitionError) Unwrap() error { return e.Err }
