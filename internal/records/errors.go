package records

import (
	"fmt"

	"github.com/pdiddy/screening-engine/pkg/types"
)

// IngestError reports an import batch the store refuses to accept.
type IngestError struct {
	Reason string
}

func (e *IngestError) Error() string {
	return "ingest: " + e.Reason
}

// InvalidTransitionError reports a classification status change that is not
// reachable from the record's current status. The record is left unchanged.
type InvalidTransitionError struct {
	ID   string
	From types.Status
	To   types.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("record %s: invalid transition %s -> %s", e.ID, e.From, e.To)
}
