// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the screening pipeline.
// Implements: StudyRecord and RawRecord (ingestion), ClassificationState
// (per-record screening outcome), CriteriaSet, PipelineRun, and
// AggregateStats (derived progress view).
package types

import "fmt"

// RawRecord is one bibliographic entry as parsed from an import file, before
// the store assigns it an identity. Every field is optional because source
// data is often incomplete.
type RawRecord struct {
	Title    string   `json:"title,omitempty" yaml:"title,omitempty"`
	Authors  []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Year     int      `json:"year,omitempty" yaml:"year,omitempty"`
	Abstract string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	DOI      string   `json:"doi,omitempty" yaml:"doi,omitempty"`
	Journal  string   `json:"journal,omitempty" yaml:"journal,omitempty"`
}

// IsEmpty reports whether the record carries no usable bibliographic data.
func (r RawRecord) IsEmpty() bool {
	return r.Title == "" && r.Abstract == "" && len(r.Authors) == 0 && r.DOI == ""
}

// StudyRecord is one record under screening. Bibliographic fields are fixed
// at ingestion; only Classification changes afterwards.
type StudyRecord struct {
	// ID is assigned at ingestion in input order (e.g. "rec-0001").
	ID string `json:"id" yaml:"id"`

	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Authors lists the authors in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Year is the publication year, 0 when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Keywords is deduplicated at ingestion.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	DOI     string `json:"doi,omitempty" yaml:"doi,omitempty"`
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	Classification ClassificationState `json:"classification" yaml:"classification"`
}

// Clone returns a deep copy of the record.
func (r StudyRecord) Clone() StudyRecord {
	c := r
	if r.Authors != nil {
		c.Authors = append([]string(nil), r.Authors...)
	}
	if r.Keywords != nil {
		c.Keywords = append([]string(nil), r.Keywords...)
	}
	return c
}

// RecordID formats the stable identifier for the record at zero-based
// position i of an import batch.
func RecordID(i int) string {
	return fmt.Sprintf("rec-%04d", i+1)
}
