// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package records holds the in-memory collection of study records under
// screening. The Store is the only mutable state shared between the
// scheduler's workers and progress readers; every read returns a copy.
package records

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pdiddy/screening-engine/pkg/types"
)

// transitions lists the allowed classification status changes.
var transitions = map[types.Status][]types.Status{
	types.StatusPending:    {types.StatusInProgress},
	types.StatusInProgress: {types.StatusDecided, types.StatusFailed, types.StatusPending},
	types.StatusFailed:     {types.StatusPending},
}

// CanTransition reports whether a record may move from one status to another.
func CanTransition(from, to types.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Store manages the study records of one screening session.
type Store struct {
	mu         sync.RWMutex
	order      []string
	byID       map[string]*types.StudyRecord
	maxRecords int
}

// New creates an empty store that accepts at most maxRecords per import.
// A non-positive limit falls back to types.DefaultMaxRecords.
func New(maxRecords int) *Store {
	if maxRecords <= 0 {
		maxRecords = types.DefaultMaxRecords
	}
	return &Store{
		byID:       make(map[string]*types.StudyRecord),
		maxRecords: maxRecords,
	}
}

// Ingest replaces the store content with raw, assigning ids in input order
// and setting every record to pending. The previous records are discarded.
func (s *Store) Ingest(raw []types.RawRecord) ([]types.StudyRecord, error) {
	if len(raw) == 0 {
		return nil, &IngestError{Reason: "no records to ingest"}
	}
	if len(raw) > s.maxRecords {
		return nil, &IngestError{Reason: fmt.Sprintf("%d records exceed the limit of %d", len(raw), s.maxRecords)}
	}

	order := make([]string, len(raw))
	byID := make(map[string]*types.StudyRecord, len(raw))
	out := make([]types.StudyRecord, len(raw))
	for i, r := range raw {
		rec := &types.StudyRecord{
			ID:             types.RecordID(i),
			Title:          strings.TrimSpace(r.Title),
			Authors:        trimAll(r.Authors),
			Year:           r.Year,
			Abstract:       strings.TrimSpace(r.Abstract),
			Keywords:       keywordSet(r.Keywords),
			DOI:            strings.TrimSpace(r.DOI),
			Journal:        strings.TrimSpace(r.Journal),
			Classification: types.Pending(),
		}
		order[i] = rec.ID
		byID[rec.ID] = rec
		out[i] = rec.Clone()
	}

	s.mu.Lock()
	s.order = order
	s.byID = byID
	s.mu.Unlock()
	return out, nil
}

// Restore loads previously persisted records as-is, except that records
// left in progress by an interrupted run go back to pending.
func (s *Store) Restore(recs []types.StudyRecord) error {
	order := make([]string, 0, len(recs))
	byID := make(map[string]*types.StudyRecord, len(recs))
	for _, r := range recs {
		if r.ID == "" {
			return &IngestError{Reason: "restored record without id"}
		}
		if _, dup := byID[r.ID]; dup {
			return &IngestError{Reason: fmt.Sprintf("duplicate record id %q", r.ID)}
		}
		c := r.Clone()
		if c.Classification.Status == types.StatusInProgress {
			c.Classification = types.Pending()
		}
		if err := c.Classification.Validate(); err != nil {
			return fmt.Errorf("restoring %s: %w", r.ID, err)
		}
		order = append(order, c.ID)
		byID[c.ID] = &c
	}

	s.mu.Lock()
	s.order = order
	s.byID = byID
	s.mu.Unlock()
	return nil
}

// Reset discards every record.
func (s *Store) Reset() {
	s.mu.Lock()
	s.order = nil
	s.byID = make(map[string]*types.StudyRecord)
	s.mu.Unlock()
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(id string) (types.StudyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return types.StudyRecord{}, &types.NotFoundError{ID: id}
	}
	return rec.Clone(), nil
}

// UpdateClassification sets the classification state of one record. The
// new state must be internally consistent and reachable from the current
// status.
func (s *Store) UpdateClassification(id string, state types.ClassificationState) error {
	if err := state.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return &types.NotFoundError{ID: id}
	}
	from := rec.Classification.Status
	if !CanTransition(from, state.Status) {
		return &InvalidTransitionError{ID: id, From: from, To: state.Status}
	}
	rec.Classification = state
	return nil
}

// Snapshot returns a deep copy of every record in ingestion order.
func (s *Store) Snapshot() []types.StudyRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.StudyRecord, len(s.order))
	for i, id := range s.order {
		out[i] = s.byID[id].Clone()
	}
	return out
}

// IDs returns every record id in ingestion order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func trimAll(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// keywordSet trims and deduplicates keywords case-insensitively, keeping
// the first spelling seen.
func keywordSet(in []string) []string {
	var out []string
	seen := make(map[string]bool, len(in))
	for _, kw := range in {
		kw = strings.TrimSpace(kw)
		key := strings.ToLower(kw)
		if kw == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, kw)
	}
	return out
}
