package scheduler

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/screening-engine/internal/aggregate"
	"github.com/pdiddy/screening-engine/internal/classify"
	"github.com/pdiddy/screening-engine/internal/records"
	"github.com/pdiddy/screening-engine/pkg/types"
)

var testCriteria = types.CriteriaSet{Inclusion: []string{"Human subjects"}}

func newStore(t *testing.T, titles ...string) *records.Store {
	t.Helper()
	raw := make([]types.RawRecord, len(titles))
	for i, title := range titles {
		raw[i] = types.RawRecord{Title: title}
	}
	s := records.New(100)
	_, err := s.Ingest(raw)
	require.NoError(t, err)
	return s
}

func newRun(s *records.Store) types.PipelineRun {
	return types.PipelineRun{ID: "run-1", Criteria: testCriteria, RecordIDs: s.IDs()}
}

func waitRun(t *testing.T, h *Handle) (Summary, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sum, err := h.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "run did not finish")
	return sum, err
}

func statusOf(t *testing.T, s *records.Store, id string) types.Status {
	t.Helper()
	rec, err := s.Get(id)
	require.NoError(t, err)
	return rec.Classification.Status
}

func countStatus(s *records.Store, st types.Status) int {
	n := 0
	for _, r := range s.Snapshot() {
		if r.Classification.Status == st {
			n++
		}
	}
	return n
}

// callCounter records how often each record was classified.
type callCounter struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *callCounter) add(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[id]++
}

func (c *callCounter) get(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[id]
}

func includeAll(counter *callCounter) classify.Classifier {
	return classify.Func(func(_ context.Context, rec types.StudyRecord, _ types.CriteriaSet) (classify.Result, error) {
		if counter != nil {
			counter.add(rec.ID)
		}
		return classify.Result{Decision: types.DecisionInclude, Confidence: 0.8, Cost: 0.001}, nil
	})
}

func TestScenarioIncludeExcludeTimeout(t *testing.T) {
	store := newStore(t, "A", "B", "C")
	var order []string
	c := classify.Func(func(_ context.Context, rec types.StudyRecord, _ types.CriteriaSet) (classify.Result, error) {
		order = append(order, rec.Title)
		switch rec.Title {
		case "A":
			return classify.Result{Decision: types.DecisionInclude, Confidence: 0.9}, nil
		case "B":
			return classify.Result{Decision: types.DecisionExclude, Confidence: 0.4}, nil
		}
		return classify.Result{}, &classify.ClassificationError{Kind: classify.KindTimeout, Reason: "classification timed out"}
	})

	h, err := New(store, c).Start(context.Background(), newRun(store), 1)
	require.NoError(t, err)
	sum, err := waitRun(t, h)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, order, "concurrency 1 dispatches in ingestion order")
	assert.Equal(t, Summary{Decided: 2, Failed: 1}, sum)

	snap := store.Snapshot()
	assert.Equal(t, types.DecisionInclude, snap[0].Classification.Decision)
	assert.Equal(t, 90, aggregate.ConfidencePercent(snap[0].Classification.Confidence))
	assert.Equal(t, types.DecisionExclude, snap[1].Classification.Decision)
	assert.Equal(t, 40, aggregate.ConfidencePercent(snap[1].Classification.Confidence))
	assert.Equal(t, types.StatusFailed, snap[2].Classification.Status)
	assert.Contains(t, snap[2].Classification.Error, "timeout")

	stats := aggregate.ComputeStats(snap)
	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Included)
	assert.Equal(t, 0, stats.Maybe)
	assert.Equal(t, 1, stats.Excluded)
	assert.Equal(t, 1, stats.Failed)
}

func TestConcurrencyLimit(t *testing.T) {
	store := newStore(t, "1", "2", "3", "4", "5", "6", "7", "8", "9", "10")
	var current, peak int32
	c := classify.Func(func(context.Context, types.StudyRecord, types.CriteriaSet) (classify.Result, error) {
		n := atomic.AddInt32(&current, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		return classify.Result{Decision: types.DecisionMaybe, Confidence: 0.5}, nil
	})

	h, err := New(store, c).Start(context.Background(), newRun(store), 3)
	require.NoError(t, err)
	sum, err := waitRun(t, h)
	require.NoError(t, err)

	assert.Equal(t, 10, sum.Decided)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Equal(t, 10, countStatus(store, types.StatusDecided))
}

func TestPauseResumeRoundTrip(t *testing.T) {
	store := newStore(t, "A", "B", "C", "D")
	counter := &callCounter{}
	gate := make(chan struct{})
	c := classify.Func(func(_ context.Context, rec types.StudyRecord, _ types.CriteriaSet) (classify.Result, error) {
		counter.add(rec.ID)
		if rec.Title == "A" {
			<-gate
		}
		return classify.Result{Decision: types.DecisionExclude, Confidence: 0.7}, nil
	})

	h, err := New(store, c).Start(context.Background(), newRun(store), 1)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return statusOf(t, store, "rec-0001") == types.StatusInProgress }, time.Second, time.Millisecond)

	require.NoError(t, h.Pause())
	assert.True(t, h.Paused())
	close(gate)

	// The in-flight result is recorded but nothing new is dispatched.
	require.Eventually(t, func() bool { return statusOf(t, store, "rec-0001") == types.StatusDecided }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 3, countStatus(store, types.StatusPending))
	assert.Equal(t, 0, countStatus(store, types.StatusInProgress))

	require.NoError(t, h.Resume())
	sum, err := waitRun(t, h)
	require.NoError(t, err)

	assert.Equal(t, Summary{Decided: 4}, sum)
	for _, id := range store.IDs() {
		assert.Equal(t, 1, counter.get(id), "%s classified once", id)
		assert.Equal(t, types.StatusDecided, statusOf(t, store, id))
	}
}

func TestResumeErrors(t *testing.T) {
	store := newStore(t, "A")
	gate := make(chan struct{})
	c := classify.Func(func(context.Context, types.StudyRecord, types.CriteriaSet) (classify.Result, error) {
		<-gate
		return classify.Result{Decision: types.DecisionInclude, Confidence: 1}, nil
	})
	s := New(store, c)

	assert.ErrorIs(t, s.Resume(), ErrNotRunning)
	assert.ErrorIs(t, s.Pause(), ErrNotRunning)

	h, err := s.Start(context.Background(), newRun(store), 1)
	require.NoError(t, err)
	assert.ErrorIs(t, h.Resume(), ErrNotPaused)
	assert.ErrorIs(t, s.Resume(), ErrNotPaused)

	close(gate)
	_, err = waitRun(t, h)
	require.NoError(t, err)
	assert.ErrorIs(t, h.Pause(), ErrNotRunning)
}

func TestStartWhileRunning(t *testing.T) {
	store := newStore(t, "A", "B")
	gate := make(chan struct{})
	c := classify.Func(func(context.Context, types.StudyRecord, types.CriteriaSet) (classify.Result, error) {
		<-gate
		return classify.Result{Decision: types.DecisionInclude, Confidence: 1}, nil
	})
	s := New(store, c)

	h, err := s.Start(context.Background(), newRun(store), 1)
	require.NoError(t, err)
	_, err = s.Start(context.Background(), newRun(store), 1)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Same(t, h, s.Active())

	close(gate)
	_, err = waitRun(t, h)
	require.NoError(t, err)
	assert.Nil(t, s.Active())

	// Nothing pending: a new run finishes at once.
	h2, err := s.Start(context.Background(), newRun(store), 1)
	require.NoError(t, err)
	sum, err := waitRun(t, h2)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)
}

func TestCancelThenRestart(t *testing.T) {
	store := newStore(t, "A", "B", "C", "D", "E")
	counter := &callCounter{}
	gate := make(chan struct{})
	blocking := classify.Func(func(_ context.Context, rec types.StudyRecord, _ types.CriteriaSet) (classify.Result, error) {
		counter.add(rec.ID)
		if rec.Title != "A" {
			<-gate
		}
		return classify.Result{Decision: types.DecisionInclude, Confidence: 0.6}, nil
	})

	s := New(store, blocking)
	h, err := s.Start(context.Background(), newRun(store), 2)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return statusOf(t, store, "rec-0001") == types.StatusDecided && countStatus(store, types.StatusInProgress) == 2
	}, time.Second, time.Millisecond)

	h.Cancel()
	assert.True(t, h.Cancelled())
	assert.Equal(t, 0, countStatus(store, types.StatusInProgress))
	assert.Equal(t, 4, countStatus(store, types.StatusPending))

	assert.Nil(t, s.Active(), "a cancelled run releases the scheduler at once")

	close(gate)
	sum, err := waitRun(t, h)
	require.NoError(t, err)
	assert.Equal(t, Summary{Decided: 1, Cancelled: 4}, sum)
	assert.Equal(t, 4, countStatus(store, types.StatusPending), "late results are discarded")
	assert.Equal(t, types.StatusDecided, statusOf(t, store, "rec-0001"))

	restart := &callCounter{}
	s2 := New(store, includeAll(restart))
	h2, err := s2.Start(context.Background(), newRun(store), 2)
	require.NoError(t, err)
	sum, err = waitRun(t, h2)
	require.NoError(t, err)

	assert.Equal(t, Summary{Decided: 4}, sum)
	assert.Equal(t, 0, restart.get("rec-0001"), "decided records are not reclassified")
	for _, id := range []string{"rec-0002", "rec-0003", "rec-0004", "rec-0005"} {
		assert.Equal(t, 1, restart.get(id))
	}
	assert.Equal(t, 5, countStatus(store, types.StatusDecided))
}

func TestContextCancelsRun(t *testing.T) {
	store := newStore(t, "A", "B")
	c := classify.Func(func(ctx context.Context, _ types.StudyRecord, _ types.CriteriaSet) (classify.Result, error) {
		<-ctx.Done()
		return classify.Result{}, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	h, err := New(store, c).Start(ctx, newRun(store), 1)
	require.NoError(t, err)
	cancel()

	sum, err := waitRun(t, h)
	require.NoError(t, err)
	assert.True(t, h.Cancelled())
	assert.Equal(t, 2, sum.Cancelled)
	assert.Equal(t, 2, countStatus(store, types.StatusPending))
}

func TestRequeueAfterRun(t *testing.T) {
	store := newStore(t, "A", "B", "C")
	counter := &callCounter{}
	var attempts int32
	c := classify.Func(func(_ context.Context, rec types.StudyRecord, _ types.CriteriaSet) (classify.Result, error) {
		counter.add(rec.ID)
		if rec.Title == "C" && atomic.AddInt32(&attempts, 1) == 1 {
			return classify.Result{}, &classify.ClassificationError{Kind: classify.KindQuota, Reason: "rate limited"}
		}
		return classify.Result{Decision: types.DecisionMaybe, Confidence: 0.5}, nil
	})
	s := New(store, c)

	h, err := s.Start(context.Background(), newRun(store), 1)
	require.NoError(t, err)
	sum, err := waitRun(t, h)
	require.NoError(t, err)
	require.True(t, sum.HasFailures())
	require.Equal(t, types.StatusFailed, statusOf(t, store, "rec-0003"))

	var terr *records.InvalidTransitionError
	_, err = s.Requeue("rec-0001")
	assert.ErrorAs(t, err, &terr, "decided records cannot be requeued")
	_, err = s.Requeue("rec-9999")
	assert.ErrorIs(t, err, types.ErrNotFound)

	queued, err := s.Requeue("rec-0003")
	require.NoError(t, err)
	assert.False(t, queued, "no run is active to pick it up")
	assert.Equal(t, types.StatusPending, statusOf(t, store, "rec-0003"))
	_, err = s.Requeue("rec-0003")
	assert.ErrorAs(t, err, &terr, "pending records cannot be requeued")

	h, err = s.Start(context.Background(), newRun(store), 1)
	require.NoError(t, err)
	sum, err = waitRun(t, h)
	require.NoError(t, err)

	assert.Equal(t, Summary{Decided: 1}, sum)
	assert.Equal(t, 1, counter.get("rec-0001"))
	assert.Equal(t, 2, counter.get("rec-0003"))
	assert.Equal(t, 3, countStatus(store, types.StatusDecided))
}

func TestRequeueDuringRun(t *testing.T) {
	store := newStore(t, "A", "B")
	counter := &callCounter{}
	gate := make(chan struct{})
	c := classify.Func(func(_ context.Context, rec types.StudyRecord, _ types.CriteriaSet) (classify.Result, error) {
		counter.add(rec.ID)
		switch {
		case rec.Title == "A" && counter.get(rec.ID) == 1:
			return classify.Result{}, errors.New("connection reset")
		case rec.Title == "B":
			<-gate
		}
		return classify.Result{Decision: types.DecisionInclude, Confidence: 0.9}, nil
	})
	s := New(store, c)

	h, err := s.Start(context.Background(), newRun(store), 1)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return statusOf(t, store, "rec-0001") == types.StatusFailed && statusOf(t, store, "rec-0002") == types.StatusInProgress
	}, time.Second, time.Millisecond)

	rec, err := store.Get("rec-0001")
	require.NoError(t, err)
	assert.Contains(t, rec.Classification.Error, "connection reset")

	queued, err := s.Requeue("rec-0001")
	require.NoError(t, err)
	assert.True(t, queued)
	close(gate)

	sum, err := waitRun(t, h)
	require.NoError(t, err)
	assert.Equal(t, Summary{Decided: 2, Failed: 1}, sum)
	assert.Equal(t, 2, counter.get("rec-0001"))
	assert.Equal(t, 2, countStatus(store, types.StatusDecided))
}

func TestSchedulerFaultPreservesDecisions(t *testing.T) {
	store := newStore(t, "A", "B", "C")
	var calls int32
	c := classify.Func(func(_ context.Context, rec types.StudyRecord, _ types.CriteriaSet) (classify.Result, error) {
		atomic.AddInt32(&calls, 1)
		if rec.Title == "B" {
			// Drop B from the store so its result cannot be recorded.
			kept := store.Snapshot()[:1]
			require.NoError(t, store.Restore(kept))
		}
		return classify.Result{Decision: types.DecisionInclude, Confidence: 0.9}, nil
	})

	h, err := New(store, c).Start(context.Background(), newRun(store), 1)
	require.NoError(t, err)
	sum, err := waitRun(t, h)

	var fault *SchedulerFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "rec-0002", fault.RecordID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, 1, sum.Decided)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "dispatch halts after a fault")
	assert.Equal(t, types.StatusDecided, statusOf(t, store, "rec-0001"))
}

func TestInvalidResultBecomesFailure(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
	}{
		{name: "above one", confidence: 1.5},
		{name: "not a number", confidence: math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t, "A")
			c := classify.Func(func(context.Context, types.StudyRecord, types.CriteriaSet) (classify.Result, error) {
				return classify.Result{Decision: types.DecisionInclude, Confidence: tt.confidence}, nil
			})

			h, err := New(store, c).Start(context.Background(), newRun(store), 1)
			require.NoError(t, err)
			sum, err := waitRun(t, h)
			require.NoError(t, err)

			assert.Equal(t, Summary{Failed: 1}, sum)
			rec, _ := store.Get("rec-0001")
			assert.Contains(t, rec.Classification.Error, string(classify.KindMalformed))
		})
	}
}

func TestEmptyClassificationErrorBecomesFailure(t *testing.T) {
	store := newStore(t, "A", "B")
	c := classify.Func(func(_ context.Context, rec types.StudyRecord, _ types.CriteriaSet) (classify.Result, error) {
		if rec.Title == "A" {
			return classify.Result{}, &classify.ClassificationError{}
		}
		return classify.Result{Decision: types.DecisionInclude, Confidence: 0.9}, nil
	})

	h, err := New(store, c).Start(context.Background(), newRun(store), 1)
	require.NoError(t, err)
	sum, err := waitRun(t, h)
	require.NoError(t, err, "a per-record failure never halts the run")

	assert.Equal(t, Summary{Decided: 1, Failed: 1}, sum)
	rec, _ := store.Get("rec-0001")
	assert.Equal(t, types.StatusFailed, rec.Classification.Status)
	assert.Equal(t, "classification failed", rec.Classification.Error)
}

func TestRestartAfterCancelAdoptsLateResult(t *testing.T) {
	store := newStore(t, "A", "B")
	counter := &callCounter{}
	gate := make(chan struct{})
	c := classify.Func(func(_ context.Context, rec types.StudyRecord, _ types.CriteriaSet) (classify.Result, error) {
		counter.add(rec.ID)
		if rec.Title == "A" {
			<-gate
			return classify.Result{Decision: types.DecisionInclude, Confidence: 0.9}, nil
		}
		return classify.Result{Decision: types.DecisionExclude, Confidence: 0.7}, nil
	})
	s := New(store, c)

	h, err := s.Start(context.Background(), newRun(store), 1)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return statusOf(t, store, "rec-0001") == types.StatusInProgress }, time.Second, time.Millisecond)

	h.Cancel()
	assert.Equal(t, types.StatusPending, statusOf(t, store, "rec-0001"))

	// The abandoned call for A is still out; the new run waits for it
	// instead of classifying A a second time.
	h2, err := s.Start(context.Background(), newRun(store), 1)
	require.NoError(t, err)
	assert.Same(t, h2, s.Active())
	require.Eventually(t, func() bool { return statusOf(t, store, "rec-0001") == types.StatusInProgress }, time.Second, time.Millisecond)

	close(gate)
	sum, err := waitRun(t, h2)
	require.NoError(t, err)
	assert.Equal(t, Summary{Decided: 2}, sum)
	assert.Equal(t, 1, counter.get("rec-0001"), "one call per record at a time")
	assert.Equal(t, 1, counter.get("rec-0002"))

	rec, _ := store.Get("rec-0001")
	assert.Equal(t, types.DecisionInclude, rec.Classification.Decision)

	sum, err = waitRun(t, h)
	require.NoError(t, err)
	assert.Equal(t, Summary{Cancelled: 2}, sum)
}

func TestLateResultForQueuedRecord(t *testing.T) {
	store := newStore(t, "A", "B")
	gateA := make(chan struct{})
	gateB := make(chan struct{})
	counter := &callCounter{}
	c := classify.Func(func(_ context.Context, rec types.StudyRecord, _ types.CriteriaSet) (classify.Result, error) {
		counter.add(rec.ID)
		switch rec.Title {
		case "A":
			<-gateA
		case "B":
			<-gateB
		}
		return classify.Result{Decision: types.DecisionMaybe, Confidence: 0.5}, nil
	})
	s := New(store, c)

	h, err := s.Start(context.Background(), newRun(store), 1)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return statusOf(t, store, "rec-0001") == types.StatusInProgress }, time.Second, time.Millisecond)
	h.Cancel()

	// B goes first and holds the only slot, so A is still queued when the
	// abandoned call returns.
	run := types.PipelineRun{ID: "run-2", Criteria: testCriteria, RecordIDs: []string{"rec-0002", "rec-0001"}}
	h2, err := s.Start(context.Background(), run, 1)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return statusOf(t, store, "rec-0002") == types.StatusInProgress }, time.Second, time.Millisecond)

	close(gateA)
	require.Eventually(t, func() bool { return statusOf(t, store, "rec-0001") == types.StatusDecided }, time.Second, time.Millisecond)
	assert.Equal(t, types.StatusInProgress, statusOf(t, store, "rec-0002"))

	close(gateB)
	sum, err := waitRun(t, h2)
	require.NoError(t, err)
	assert.Equal(t, Summary{Decided: 2}, sum)
	assert.Equal(t, 1, counter.get("rec-0001"))
}

func TestRequeueAfterDispatchStopped(t *testing.T) {
	store := newStore(t, "A", "B")
	release := make(chan struct{})
	var attempts int32
	c := classify.Func(func(_ context.Context, rec types.StudyRecord, _ types.CriteriaSet) (classify.Result, error) {
		if rec.Title == "A" && atomic.AddInt32(&attempts, 1) == 1 {
			return classify.Result{}, &classify.ClassificationError{Kind: classify.KindService, Reason: "overloaded"}
		}
		return classify.Result{Decision: types.DecisionInclude, Confidence: 0.9}, nil
	})
	var once sync.Once
	slow := func(r types.StudyRecord) {
		if r.ID == "rec-0002" && r.Classification.Status == types.StatusDecided {
			once.Do(func() { <-release })
		}
	}
	s := New(store, c, WithObserver(slow))

	h, err := s.Start(context.Background(), newRun(store), 1)
	require.NoError(t, err)

	// B's worker is stuck in the observer after dispatch has ended.
	require.Eventually(t, func() bool { return s.Active() == nil }, time.Second, time.Millisecond)
	select {
	case <-h.Done():
		t.Fatal("run finished while a worker was still notifying")
	default:
	}

	queued, err := s.Requeue("rec-0001")
	require.NoError(t, err)
	assert.False(t, queued, "a run that stopped dispatching cannot take the record")
	assert.Equal(t, types.StatusPending, statusOf(t, store, "rec-0001"))

	h2, err := s.Start(context.Background(), newRun(store), 1)
	require.NoError(t, err)
	close(release)

	sum, err := waitRun(t, h2)
	require.NoError(t, err)
	assert.Equal(t, Summary{Decided: 1}, sum)
	assert.Equal(t, 2, countStatus(store, types.StatusDecided))
	_, err = waitRun(t, h)
	require.NoError(t, err)
}

func TestObserverSeesEveryChange(t *testing.T) {
	store := newStore(t, "A", "B")
	var mu sync.Mutex
	seen := make(map[string][]types.Status)
	obs := func(r types.StudyRecord) {
		mu.Lock()
		defer mu.Unlock()
		seen[r.ID] = append(seen[r.ID], r.Classification.Status)
	}

	h, err := New(store, includeAll(nil), WithObserver(obs)).Start(context.Background(), newRun(store), 1)
	require.NoError(t, err)
	_, err = waitRun(t, h)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	for _, id := range store.IDs() {
		assert.Equal(t, []types.Status{types.StatusInProgress, types.StatusDecided}, seen[id], id)
	}
}

func TestStartResetsStaleInProgress(t *testing.T) {
	store := newStore(t, "A")
	require.NoError(t, store.UpdateClassification("rec-0001", types.InProgress()))

	h, err := New(store, includeAll(nil)).Start(context.Background(), newRun(store), 1)
	require.NoError(t, err)
	sum, err := waitRun(t, h)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Decided)
}

func TestStartUnknownRecord(t *testing.T) {
	store := newStore(t, "A")
	run := types.PipelineRun{ID: "run-x", RecordIDs: []string{"rec-0042"}}
	_, err := New(store, includeAll(nil)).Start(context.Background(), run, 1)
	assert.ErrorIs(t, err, types.ErrNotFound)
}
