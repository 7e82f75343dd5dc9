// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import "fmt"

// UnsupportedFormatError reports an import file whose extension and content
// match no known format.
type UnsupportedFormatError struct {
	Name string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported import format: %s (want .ris, .json or .yaml)", e.Name)
}

// PayloadTooLargeError reports an import above the configured ceiling.
type PayloadTooLargeError struct {
	Size  int64
	Limit int64
}

func (e *PayloadTooLargeError) Error() string {
	if e.Size > e.Limit {
		return fmt.Sprintf("import of %d bytes exceeds the limit of %d bytes", e.Size, e.Limit)
	}
	return fmt.Sprintf("import exceeds the limit of %d bytes", e.Limit)
}
