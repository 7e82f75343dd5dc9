// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind groups classification failures by cause.
type ErrorKind string

const (
	KindTimeout   ErrorKind = "timeout"
	KindMalformed ErrorKind = "malformed_response"
	KindQuota     ErrorKind = "quota"
	KindService   ErrorKind = "service"
	KindTransport ErrorKind = "transport"
)

// ClassificationError is a per-record failure. The scheduler records it as
// a failed status and moves on.
type ClassificationError struct {
	Kind   ErrorKind
	Reason string

	// Cost is charged even when the response could not be used.
	Cost float64
	Err  error
}

func (e *ClassificationError) Error() string {
	if e.Reason == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// AsClassificationError converts any error into a *ClassificationError.
// Deadline errors become KindTimeout; anything unrecognised is a transport
// failure.
func AsClassificationError(err error) *ClassificationError {
	var ce *ClassificationError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ClassificationError{Kind: KindTimeout, Reason: "classification timed out", Err: err}
	}
	return &ClassificationError{Kind: KindTransport, Reason: err.Error(), Err: err}
}
