// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"sync"

	"github.com/pdiddy/screening-engine/pkg/types"
)

// Event triggers a stage transition.
type Event string

const (
	EventRecordsIngested    Event = "records_ingested"
	EventCriteriaConfirmed  Event = "criteria_confirmed"
	EventAllRecordsTerminal Event = "all_records_terminal"
	EventNewImportStarted   Event = "new_import_started"
	EventBackToUpload       Event = "back_to_upload"
	EventCancelled          Event = "cancelled"
	EventPartialAccepted    Event = "partial_accepted"
)

// transitions maps stage and event to the next stage.
var transitions = map[types.Stage]map[Event]types.Stage{
	types.StageUpload: {
		EventRecordsIngested: types.StageCriteria,
	},
	types.StageCriteria: {
		EventCriteriaConfirmed: types.StageProcessing,
		EventBackToUpload:      types.StageUpload,
	},
	types.StageProcessing: {
		EventAllRecordsTerminal: types.StageResults,
		EventCancelled:          types.StageCriteria,
		EventPartialAccepted:    types.StageResults,
	},
	types.StageResults: {
		EventNewImportStarted: types.StageUpload,
	},
}

// Machine holds the current stage. It is safe for concurrent use.
type Machine struct {
	mu    sync.Mutex
	stage types.Stage

	// OnTransition, when set, is called after every successful transition.
	OnTransition func(from, to types.Stage, ev Event)
}

// NewMachine starts in the upload stage.
func NewMachine() *Machine {
	return &Machine{stage: types.StageUpload}
}

// Stage returns the current stage.
func (m *Machine) Stage() types.Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage
}

// Can reports whether ev is defined for the current stage. Guards are not
// evaluated.
func (m *Machine) Can(ev Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := transitions[m.stage][ev]
	return ok
}

// Fire applies ev. guard, when non-nil, runs with the machine locked after
// the event is known to be valid and may perform the work the transition
// stands for; a guard error aborts the transition. On any error the stage
// is unchanged and the error is an *InvalidStageTransitionError.
func (m *Machine) Fire(ev Event, guard func() error) error {
	m.mu.Lock()
	from := m.stage
	to, ok := transitions[from][ev]
	if !ok {
		m.mu.Unlock()
		return &InvalidStageTransitionError{From: from, Event: ev}
	}
	if guard != nil {
		if err := guard(); err != nil {
			m.mu.Unlock()
			return &InvalidStageTransitionError{From: from, Event: ev, Err: err}
		}
	}
	m.stage = to
	hook := m.OnTransition
	m.mu.Unlock()

	if hook != nil {
		hook(from, to, ev)
	}
	return nil
}

// set forces the stage when restoring a persisted session.
func (m *Machine) set(stage types.Stage) {
	m.mu.Lock()
	m.stage = stage
	m.mu.Unlock()
}
