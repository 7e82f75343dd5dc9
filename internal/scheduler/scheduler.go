// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scheduler drives the records of a pipeline run through a
// classifier with bounded concurrency. One dispatch goroutine per run hands
// pending records to workers in ingestion order; pause and cancel stop
// dispatch without interrupting calls already in flight. A call abandoned by
// a cancelled run is never reissued while it is outstanding; its result is
// handed to the active run when that run still holds the record.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/screening-engine/internal/classify"
	"github.com/pdiddy/screening-engine/internal/records"
	"github.com/pdiddy/screening-engine/pkg/types"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger used for run and record events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithObserver registers fn to receive a copy of every record whose
// classification the scheduler changes. fn runs on worker goroutines and
// must not block.
func WithObserver(fn func(types.StudyRecord)) Option {
	return func(s *Scheduler) { s.observer = fn }
}

// Scheduler runs at most one classification run at a time.
type Scheduler struct {
	store      *records.Store
	classifier classify.Classifier
	logger     *slog.Logger
	observer   func(types.StudyRecord)

	mu     sync.Mutex
	active *Handle

	// Records whose call from a cancelled run has not returned yet.
	omu     sync.Mutex
	orphans map[string]bool
}

// New creates a scheduler writing results into store.
func New(store *records.Store, classifier classify.Classifier, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:      store,
		classifier: classifier,
		logger:     slog.New(slog.DiscardHandler),
		orphans:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summary counts what a run did.
type Summary struct {
	Decided   int `json:"decided" yaml:"decided"`
	Failed    int `json:"failed" yaml:"failed"`
	Cancelled int `json:"cancelled" yaml:"cancelled"`
}

// Total returns the number of records the run touched.
func (s Summary) Total() int {
	return s.Decided + s.Failed + s.Cancelled
}

// HasFailures reports whether any record failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// Start begins classifying the pending records of run and returns
// immediately. Records already decided or failed are left alone. It fails
// with ErrAlreadyRunning while a previous run is active. A cancelled run
// stops being active at once, even while its abandoned calls drain.
// Cancelling ctx cancels the run.
func (s *Scheduler) Start(ctx context.Context, run types.PipelineRun, concurrency int) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return nil, ErrAlreadyRunning
	}
	if concurrency <= 0 {
		concurrency = types.DefaultConcurrency
	}

	queue := make([]string, 0, len(run.RecordIDs))
	for _, id := range run.RecordIDs {
		rec, err := s.store.Get(id)
		if err != nil {
			return nil, fmt.Errorf("starting run %s: %w", run.ID, err)
		}
		switch rec.Classification.Status {
		case types.StatusPending:
			queue = append(queue, id)
		case types.StatusInProgress:
			// Left behind by an interrupted process; nothing is working on it.
			if err := s.store.UpdateClassification(id, types.Pending()); err != nil {
				return nil, fmt.Errorf("starting run %s: %w", run.ID, err)
			}
			queue = append(queue, id)
		}
	}

	h := &Handle{
		s:           s,
		run:         run,
		concurrency: concurrency,
		done:        make(chan struct{}),
		queue:       queue,
		inflight:    make(map[string]bool),
		adopted:     make(map[string]bool),
	}
	h.cond = sync.NewCond(&h.mu)
	s.active = h
	go h.loop(ctx)
	return h, nil
}

// Active returns the running handle, or nil.
func (s *Scheduler) Active() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Pause stops dispatch of the active run.
func (s *Scheduler) Pause() error {
	h := s.Active()
	if h == nil {
		return ErrNotRunning
	}
	return h.Pause()
}

// Resume restarts dispatch of the active run.
func (s *Scheduler) Resume() error {
	h := s.Active()
	if h == nil {
		return ErrNotRunning
	}
	return h.Resume()
}

// Cancel cancels the active run.
func (s *Scheduler) Cancel() error {
	h := s.Active()
	if h == nil {
		return ErrNotRunning
	}
	h.Cancel()
	return nil
}

// Requeue resets one failed record to pending. When the record belongs to
// the active run it is queued behind the records still waiting and queued
// is true. Otherwise the record waits for the next Start.
func (s *Scheduler) Requeue(id string) (queued bool, err error) {
	if h := s.Active(); h != nil {
		return h.requeue(id)
	}
	return false, s.resetFailed(id)
}

func (s *Scheduler) resetFailed(id string) error {
	rec, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if rec.Classification.Status != types.StatusFailed {
		return &records.InvalidTransitionError{ID: id, From: rec.Classification.Status, To: types.StatusPending}
	}
	return s.store.UpdateClassification(id, types.Pending())
}

// detach clears h as the active run.
func (s *Scheduler) detach(h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == h {
		s.active = nil
	}
}

func (s *Scheduler) abandon(id string) {
	s.omu.Lock()
	defer s.omu.Unlock()
	s.orphans[id] = true
}

func (s *Scheduler) orphaned(id string) bool {
	s.omu.Lock()
	defer s.omu.Unlock()
	return s.orphans[id]
}

// lateResult routes the result of a call abandoned when from was
// cancelled. It is recorded only if the active run still holds the record.
func (s *Scheduler) lateResult(from *Handle, rec types.StudyRecord, state types.ClassificationState) {
	s.omu.Lock()
	delete(s.orphans, rec.ID)
	s.omu.Unlock()

	if h := s.Active(); h != nil && h != from && h.acceptLate(rec, state) {
		s.logger.Debug("recorded late result", "run", h.run.ID, "from", from.run.ID, "record", rec.ID)
		return
	}
	s.logger.Debug("discarding late result", "run", from.run.ID, "record", rec.ID)
}

func (s *Scheduler) notify(rec types.StudyRecord) {
	if s.observer != nil {
		s.observer(rec)
	}
}

// Handle controls and observes one run.
type Handle struct {
	s           *Scheduler
	run         types.PipelineRun
	concurrency int
	done        chan struct{}

	// Set before done is closed.
	result Summary
	err    error

	mu        sync.Mutex
	cond      *sync.Cond
	queue     []string
	inflight  map[string]bool
	paused    bool
	cancelled bool
	stopped   bool
	fault     error
	summary   Summary

	// In flight without a call of this run; the result comes from a
	// cancelled run's call.
	adopted map[string]bool
}

// ID returns the run id.
func (h *Handle) ID() string { return h.run.ID }

// Done is closed once dispatch has stopped and every in-flight call has
// returned.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the run is done or ctx ends. The error is the
// *SchedulerFault that halted the run, if any.
func (h *Handle) Wait(ctx context.Context) (Summary, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	}
}

// Paused reports whether dispatch is paused.
func (h *Handle) Paused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused
}

// Cancelled reports whether the run was cancelled.
func (h *Handle) Cancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

// Pause stops dispatching new records. Calls in flight complete and their
// results are recorded.
func (h *Handle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled || h.stopped {
		return ErrNotRunning
	}
	h.paused = true
	return nil
}

// Resume continues dispatch after Pause.
func (h *Handle) Resume() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled || h.stopped {
		return ErrNotRunning
	}
	if !h.paused {
		return ErrNotPaused
	}
	h.paused = false
	h.cond.Broadcast()
	return nil
}

// Cancel stops dispatch, returns queued and in-flight records to pending
// and releases the scheduler for a new run. Calls in flight are not
// interrupted; their results go to the next run if it holds the record
// and are discarded otherwise. Decided and failed records keep their
// state.
func (h *Handle) Cancel() {
	h.cancel()
	h.s.detach(h)
}

func (h *Handle) cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled || (h.stopped && len(h.inflight) == 0) {
		return
	}
	h.cancelled = true
	h.summary.Cancelled += len(h.queue) + len(h.inflight)
	h.queue = nil
	for id := range h.inflight {
		if err := h.s.store.UpdateClassification(id, types.Pending()); err != nil {
			h.s.logger.Warn("resetting cancelled record", "run", h.run.ID, "record", id, "error", err)
		}
		h.s.abandon(id)
	}
	h.cond.Broadcast()
}

// requeue resets id and queues it unless dispatch has already stopped.
// A cancelled run reports the record as queued: it is left for the re-run
// that follows the cancel.
func (h *Handle) requeue(id string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.s.resetFailed(id); err != nil {
		return false, err
	}
	switch {
	case h.cancelled:
		return true, nil
	case h.stopped || !h.run.Contains(id):
		return false, nil
	}
	h.queue = append(h.queue, id)
	h.cond.Broadcast()
	return true, nil
}

// acceptLate records the result of an abandoned call for a record this
// run still holds, either adopted in flight or still queued.
func (h *Handle) acceptLate(rec types.StudyRecord, state types.ClassificationState) bool {
	h.mu.Lock()
	if h.cancelled || !h.run.Contains(rec.ID) {
		h.mu.Unlock()
		return false
	}
	switch {
	case h.adopted[rec.ID]:
		delete(h.adopted, rec.ID)
		delete(h.inflight, rec.ID)
	case h.dequeue(rec.ID):
		if err := h.s.store.UpdateClassification(rec.ID, types.InProgress()); err != nil {
			h.failLocked(&SchedulerFault{Op: "recording late result", RecordID: rec.ID, Err: err})
			h.mu.Unlock()
			return false
		}
	default:
		h.mu.Unlock()
		return false
	}
	h.cond.Broadcast()
	if err := h.s.store.UpdateClassification(rec.ID, state); err != nil {
		h.failLocked(&SchedulerFault{Op: "recording late result", RecordID: rec.ID, Err: err})
		h.mu.Unlock()
		return false
	}
	h.count(state)
	h.mu.Unlock()

	rec.Classification = state
	h.s.notify(rec)
	return true
}

// dequeue removes id from the queue. Callers hold h.mu.
func (h *Handle) dequeue(id string) bool {
	for i, q := range h.queue {
		if q == id {
			h.queue = append(h.queue[:i:i], h.queue[i+1:]...)
			return true
		}
	}
	return false
}

// failLocked records the first fault. Callers hold h.mu.
func (h *Handle) failLocked(f *SchedulerFault) {
	if h.fault == nil {
		h.fault = f
	}
	h.cond.Broadcast()
}

// count adds a recorded result to the summary. Callers hold h.mu.
func (h *Handle) count(state types.ClassificationState) {
	if state.Status == types.StatusDecided {
		h.summary.Decided++
	} else {
		h.summary.Failed++
	}
}

// waiting reports whether the dispatch loop has nothing to do yet.
// Callers hold h.mu.
func (h *Handle) waiting() bool {
	if h.cancelled || h.fault != nil {
		return false
	}
	if len(h.queue) == 0 {
		return len(h.inflight) > 0
	}
	return h.paused || len(h.inflight) >= h.concurrency
}

func (h *Handle) loop(ctx context.Context) {
	stop := context.AfterFunc(ctx, h.Cancel)
	defer stop()

	log := h.s.logger.With("run", h.run.ID)
	log.Info("run started", "queued", len(h.queue), "concurrency", h.concurrency)

	var g errgroup.Group
	h.mu.Lock()
	for {
		for h.waiting() {
			h.cond.Wait()
		}
		if h.cancelled || h.fault != nil || (len(h.queue) == 0 && len(h.inflight) == 0) {
			break
		}

		id := h.queue[0]
		h.queue = h.queue[1:]
		rec, err := h.dispatch(id)
		if err != nil {
			var terr *records.InvalidTransitionError
			if errors.As(err, &terr) {
				log.Warn("skipping record", "record", id, "status", terr.From)
				continue
			}
			h.fault = &SchedulerFault{Op: "dispatch", RecordID: id, Err: err}
			break
		}
		if h.s.orphaned(id) {
			// A cancelled run's call for this record is still out.
			h.adopted[id] = true
			log.Debug("awaiting abandoned call", "record", id)
			continue
		}
		g.Go(func() error { return h.work(ctx, rec) })
	}
	h.stopped = true
	if len(h.inflight) == 0 {
		// Only returning workers remain; a new run may start.
		h.s.detach(h)
	}
	h.mu.Unlock()

	err := g.Wait()

	h.mu.Lock()
	if h.fault != nil {
		err = h.fault
	}
	h.result = h.summary
	h.err = err
	cancelled := h.cancelled
	h.mu.Unlock()

	switch {
	case err != nil:
		log.Error("run halted", "error", err, "decided", h.result.Decided, "failed", h.result.Failed)
	case cancelled:
		log.Info("run cancelled", "decided", h.result.Decided, "failed", h.result.Failed, "cancelled", h.result.Cancelled)
	default:
		log.Info("run finished", "decided", h.result.Decided, "failed", h.result.Failed)
	}

	h.s.detach(h)
	close(h.done)
}

// dispatch marks id in progress. Callers hold h.mu.
func (h *Handle) dispatch(id string) (types.StudyRecord, error) {
	if err := h.s.store.UpdateClassification(id, types.InProgress()); err != nil {
		return types.StudyRecord{}, err
	}
	rec, err := h.s.store.Get(id)
	if err != nil {
		return types.StudyRecord{}, err
	}
	h.inflight[id] = true
	return rec, nil
}

func (h *Handle) work(ctx context.Context, rec types.StudyRecord) error {
	h.s.notify(rec)
	res, cerr := h.s.classifier.Classify(ctx, rec, h.run.Criteria)
	state := outcome(res, cerr)

	h.mu.Lock()
	delete(h.inflight, rec.ID)
	h.cond.Broadcast()
	if h.cancelled {
		h.mu.Unlock()
		h.s.lateResult(h, rec, state)
		return nil
	}
	if err := h.s.store.UpdateClassification(rec.ID, state); err != nil {
		fault := &SchedulerFault{Op: "recording result", RecordID: rec.ID, Err: err}
		h.failLocked(fault)
		h.mu.Unlock()
		return fault
	}
	h.count(state)
	h.mu.Unlock()

	if state.Status == types.StatusDecided {
		h.s.logger.Debug("record decided", "run", h.run.ID, "record", rec.ID, "decision", state.Decision, "confidence", state.Confidence)
	} else {
		h.s.logger.Warn("record failed", "run", h.run.ID, "record", rec.ID, "reason", state.Error)
	}
	rec.Classification = state
	h.s.notify(rec)
	return nil
}

// outcome turns a classifier reply into the record's next state.
func outcome(res classify.Result, err error) types.ClassificationState {
	if err != nil {
		ce := classify.AsClassificationError(err)
		reason := ce.Error()
		if reason == "" {
			reason = "classification failed"
		}
		return types.Failed(reason, ce.Cost)
	}
	if verr := res.Validate(); verr != nil {
		return types.Failed(fmt.Sprintf("%s: %v", classify.KindMalformed, verr), res.Cost)
	}
	return types.Decided(res.Decision, res.Confidence, res.Rationale, res.Cost)
}
