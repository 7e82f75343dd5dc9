// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences a screening session through its stages:
// upload, criteria, processing and results. A Session owns the record
// store, the current criteria, the active pipeline run and the scheduler
// that classifies it; callers drive it only through its methods.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/screening-engine/internal/aggregate"
	"github.com/pdiddy/screening-engine/internal/classify"
	"github.com/pdiddy/screening-engine/internal/criteria"
	"github.com/pdiddy/screening-engine/internal/records"
	"github.com/pdiddy/screening-engine/internal/scheduler"
	"github.com/pdiddy/screening-engine/pkg/types"
)

// Options configures a Session.
type Options struct {
	MaxRecords  int
	Concurrency int
	Logger      *slog.Logger

	// Observer receives every record the scheduler updates.
	Observer func(types.StudyRecord)
}

// Session is one screening session.
type Session struct {
	id          string
	store       *records.Store
	machine     *Machine
	sched       *scheduler.Scheduler
	concurrency int
	logger      *slog.Logger

	mu       sync.Mutex
	criteria types.CriteriaSet
	run      *types.PipelineRun
	handle   *scheduler.Handle
	settled  chan struct{}
	summary  scheduler.Summary
	fault    error
}

// NewSession creates a session in the upload stage.
func NewSession(c classify.Classifier, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = types.DefaultConcurrency
	}
	store := records.New(opts.MaxRecords)
	schedOpts := []scheduler.Option{scheduler.WithLogger(logger)}
	if opts.Observer != nil {
		schedOpts = append(schedOpts, scheduler.WithObserver(opts.Observer))
	}

	s := &Session{
		id:          uuid.NewString(),
		store:       store,
		machine:     NewMachine(),
		sched:       scheduler.New(store, c, schedOpts...),
		concurrency: concurrency,
		logger:      logger,
	}
	s.machine.OnTransition = func(from, to types.Stage, ev Event) {
		logger.Info("stage changed", "session", s.id, "from", from, "to", to, "event", ev)
	}
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Stage returns the current stage.
func (s *Session) Stage() types.Stage { return s.machine.Stage() }

// Import replaces the records with raw and moves to the criteria stage.
// It is only valid in the upload stage.
func (s *Session) Import(raw []types.RawRecord) (int, error) {
	var n int
	err := s.machine.Fire(EventRecordsIngested, func() error {
		recs, err := s.store.Ingest(raw)
		n = len(recs)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("records imported", "session", s.id, "count", n)
	return n, nil
}

// SetCriteria normalizes and stores the criteria. Both lists empty is a
// *types.ValidationError.
func (s *Session) SetCriteria(inclusion, exclusion []string) (types.CriteriaSet, error) {
	set, err := criteria.Set(inclusion, exclusion)
	if err != nil {
		return types.CriteriaSet{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine.Stage() == types.StageProcessing {
		return types.CriteriaSet{}, ErrCriteriaLocked
	}
	s.criteria = set
	return set.Clone(), nil
}

// ApplyTemplate merges a built-in template rule into the criteria.
func (s *Session) ApplyTemplate(id string) (types.CriteriaSet, error) {
	tmpl, err := criteria.TemplateByID(id)
	if err != nil {
		return types.CriteriaSet{}, &types.NotFoundError{Kind: "criteria template", ID: id}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine.Stage() == types.StageProcessing {
		return types.CriteriaSet{}, ErrCriteriaLocked
	}
	s.criteria = criteria.MergeTemplate(s.criteria, tmpl)
	return s.criteria.Clone(), nil
}

// Criteria returns a copy of the current criteria.
func (s *Session) Criteria() types.CriteriaSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria.Clone()
}

// ConfirmCriteria freezes the criteria and the record set into a new
// pipeline run, moves to the processing stage and starts classification.
// Cancelling ctx cancels the run.
func (s *Session) ConfirmCriteria(ctx context.Context) (*scheduler.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := types.PipelineRun{
		ID:        uuid.NewString(),
		Criteria:  s.criteria.Clone(),
		RecordIDs: s.store.IDs(),
		StartedAt: time.Now().UTC(),
	}
	var h *scheduler.Handle
	err := s.machine.Fire(EventCriteriaConfirmed, func() error {
		if run.Criteria.IsEmpty() {
			return &types.ValidationError{Field: "criteria", Reason: "at least one inclusion or exclusion rule is required"}
		}
		var err error
		h, err = s.sched.Start(ctx, run, s.concurrency)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.run = &run
	s.fault = nil
	s.summary = scheduler.Summary{}
	s.watchLocked(h)
	return h, nil
}

// Restart resumes classification of the current run's pending records
// when no run is active, for example after Restore or a scheduler fault.
func (s *Session) Restart(ctx context.Context) (*scheduler.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restartLocked(ctx)
}

func (s *Session) restartLocked(ctx context.Context) (*scheduler.Handle, error) {
	if stage := s.machine.Stage(); stage != types.StageProcessing {
		return nil, &InvalidStageTransitionError{From: stage, Event: EventCriteriaConfirmed}
	}
	if s.run == nil {
		return nil, ErrNoRun
	}
	h, err := s.sched.Start(ctx, *s.run, s.concurrency)
	if err != nil {
		return nil, err
	}
	s.fault = nil
	s.watchLocked(h)
	return h, nil
}

// watchLocked observes h and settles the stage when it finishes.
func (s *Session) watchLocked(h *scheduler.Handle) {
	settled := make(chan struct{})
	s.handle = h
	s.settled = settled
	go func() {
		defer close(settled)
		sum, err := h.Wait(context.Background())

		s.mu.Lock()
		defer s.mu.Unlock()
		if h.Cancelled() && s.settled != settled {
			// A run confirmed after the cancel owns the summary now.
			return
		}
		s.summary.Decided += sum.Decided
		s.summary.Failed += sum.Failed
		s.summary.Cancelled += sum.Cancelled
		if s.handle != h {
			return
		}
		s.handle = nil
		switch {
		case err != nil:
			s.fault = err
			s.logger.Error("classification halted", "session", s.id, "run", h.ID(), "error", err)
		case h.Cancelled():
			if ferr := s.machine.Fire(EventCancelled, nil); ferr != nil {
				s.logger.Warn("cancelling stage", "session", s.id, "error", ferr)
			}
		default:
			s.completeLocked()
		}
	}()
}

// completeLocked moves to results when every record of the run is
// decided. Failures keep the session in processing until they are
// requeued or accepted.
func (s *Session) completeLocked() {
	stats := aggregate.ComputeStats(s.runRecordsLocked())
	if stats.Failed > 0 {
		s.logger.Warn("run finished with failed records", "session", s.id, "failed", stats.Failed)
		return
	}
	err := s.machine.Fire(EventAllRecordsTerminal, func() error {
		if stats.Processed != stats.Total {
			return fmt.Errorf("%d of %d records are not terminal", stats.Total-stats.Processed, stats.Total)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("completing run", "session", s.id, "error", err)
	}
}

func (s *Session) runRecordsLocked() []types.StudyRecord {
	if s.run == nil {
		return nil
	}
	out := make([]types.StudyRecord, 0, len(s.run.RecordIDs))
	for _, id := range s.run.RecordIDs {
		if rec, err := s.store.Get(id); err == nil {
			out = append(out, rec)
		}
	}
	return out
}

// Wait blocks until the current run finishes and the stage has settled.
func (s *Session) Wait(ctx context.Context) (scheduler.Summary, error) {
	s.mu.Lock()
	settled := s.settled
	s.mu.Unlock()
	if settled == nil {
		return scheduler.Summary{}, ErrNoRun
	}
	select {
	case <-settled:
	case <-ctx.Done():
		return scheduler.Summary{}, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary, s.fault
}

// Pause stops dispatch of the active run.
func (s *Session) Pause() error {
	return s.sched.Pause()
}

// Resume continues a paused run.
func (s *Session) Resume() error {
	return s.sched.Resume()
}

// Paused reports whether the active run is paused.
func (s *Session) Paused() bool {
	if h := s.sched.Active(); h != nil {
		return h.Paused()
	}
	return false
}

// Cancel stops the run and returns to the criteria stage. Records not yet
// classified go back to pending; decided and failed records are kept. The
// criteria can be confirmed again at once, without waiting for abandoned
// calls to return.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Fire(EventCancelled, func() error {
		if s.handle != nil {
			s.handle.Cancel()
			s.handle = nil
		}
		return nil
	})
}

// Requeue resets failed records of the current run to pending and makes
// sure a run is classifying them.
func (s *Session) Requeue(ctx context.Context, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stage := s.machine.Stage(); stage != types.StageProcessing {
		return fmt.Errorf("requeue in stage %s: %w", stage, ErrNoRun)
	}
	if s.run == nil {
		return ErrNoRun
	}
	if s.handle != nil && s.handle.Cancelled() {
		return fmt.Errorf("requeue while cancelling: %w", scheduler.ErrNotRunning)
	}
	restart := false
	for _, id := range ids {
		if !s.run.Contains(id) {
			return &types.NotFoundError{ID: id}
		}
		queued, err := s.sched.Requeue(id)
		if err != nil {
			return err
		}
		if !queued {
			restart = true
		}
	}
	if restart || (len(ids) > 0 && (s.handle == nil || finished(s.handle))) {
		if _, err := s.restartLocked(ctx); err != nil {
			return err
		}
	}
	return nil
}

// finished reports whether h is done but not yet settled by its watcher.
func finished(h *scheduler.Handle) bool {
	select {
	case <-h.Done():
		return true
	default:
		return false
	}
}

// FailedIDs returns the ids of failed records in the current run.
func (s *Session) FailedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, r := range s.runRecordsLocked() {
		if r.Classification.Status == types.StatusFailed {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// AcceptPartial moves to results with failed records left as they are.
// Nothing may be pending or in progress.
func (s *Session) AcceptPartial() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Fire(EventPartialAccepted, func() error {
		if s.handle != nil {
			return scheduler.ErrAlreadyRunning
		}
		stats := aggregate.ComputeStats(s.runRecordsLocked())
		if stats.Pending+stats.InProgress > 0 {
			return fmt.Errorf("%d records still pending", stats.Pending+stats.InProgress)
		}
		return nil
	})
}

// BackToUpload returns from criteria to upload.
func (s *Session) BackToUpload() error {
	return s.machine.Fire(EventBackToUpload, nil)
}

// NewImport discards the records and the run and returns to upload. The
// criteria are kept for the next import.
func (s *Session) NewImport() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Fire(EventNewImportStarted, func() error {
		s.store.Reset()
		s.run = nil
		s.settled = nil
		s.summary = scheduler.Summary{}
		s.fault = nil
		return nil
	})
}

// Run returns a copy of the current pipeline run.
func (s *Session) Run() (types.PipelineRun, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == nil {
		return types.PipelineRun{}, false
	}
	run := *s.run
	run.Criteria = s.run.Criteria.Clone()
	run.RecordIDs = append([]string(nil), s.run.RecordIDs...)
	return run, true
}

// Fault returns the scheduler fault that halted the last run, if any.
func (s *Session) Fault() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fault
}

// Stats computes statistics over every record in the session.
func (s *Session) Stats() types.AggregateStats {
	return aggregate.ComputeStats(s.store.Snapshot())
}

// View returns the records matching f.
func (s *Session) View(f aggregate.Filter) []types.StudyRecord {
	return aggregate.View(s.store.Snapshot(), f)
}

// Snapshot returns a copy of every record.
func (s *Session) Snapshot() []types.StudyRecord {
	return s.store.Snapshot()
}

// State captures the session for persistence.
func (s *Session) State() types.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := types.SessionState{
		ID:        s.id,
		Stage:     s.machine.Stage(),
		Criteria:  s.criteria.Clone(),
		Records:   s.store.Snapshot(),
		UpdatedAt: time.Now().UTC(),
	}
	if s.run != nil {
		run := *s.run
		st.Run = &run
	}
	return st
}

// Restore loads a persisted session. Records left in progress become
// pending; call Restart to continue a processing session.
func (s *Session) Restore(st types.SessionState) error {
	if !st.Stage.Valid() {
		return &types.ValidationError{Field: "stage", Reason: fmt.Sprintf("unknown stage %q", st.Stage)}
	}
	if st.Stage == types.StageProcessing && st.Run == nil {
		return fmt.Errorf("restoring processing session: %w", ErrNoRun)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle != nil {
		return scheduler.ErrAlreadyRunning
	}
	if err := s.store.Restore(st.Records); err != nil {
		return err
	}
	if st.ID != "" {
		s.id = st.ID
	}
	s.criteria = st.Criteria.Clone()
	s.run = nil
	if st.Run != nil {
		run := *st.Run
		s.run = &run
	}
	s.settled = nil
	s.summary = scheduler.Summary{}
	s.fault = nil
	s.machine.set(st.Stage)
	return nil
}
