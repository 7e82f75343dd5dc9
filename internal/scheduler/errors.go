// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scheduler

import (
	"errors"
	"fmt"
)

// Sentinel errors for run control.
var (
	ErrAlreadyRunning = errors.New("a classification run is already active")
	ErrNotPaused      = errors.New("run is not paused")
	ErrNotRunning     = errors.New("no active classification run")
)

// SchedulerFault is an infrastructure failure that halts dispatch. Results
// already written to the store are kept.
type SchedulerFault struct {
	Op       string
	RecordID string
	Err      error
}

func (f *SchedulerFault) Error() string {
	if f.RecordID == "" {
		return fmt.Sprintf("scheduler fault during %s: %v", f.Op, f.Err)
	}
	return fmt.Sprintf("scheduler fault during %s of %s: %v", f.Op, f.RecordID, f.Err)
}

func (f *SchedulerFault) Unwrap() error { return f.Err }
