// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package screen drives a screening session from the command line: it waits
// for the active run to settle while printing progress, toggling pause on
// request and checkpointing the session to durable storage.
package screen

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pdiddy/screening-engine/internal/aggregate"
	"github.com/pdiddy/screening-engine/internal/pipeline"
	"github.com/pdiddy/screening-engine/internal/scheduler"
	"github.com/pdiddy/screening-engine/pkg/types"
)

// DefaultInterval is the progress and checkpoint period.
const DefaultInterval = 2 * time.Second

// Checkpointer persists a session snapshot.
type Checkpointer interface {
	Save(ctx context.Context, st types.SessionState) error
}

// Config controls Drive.
type Config struct {
	// Interval between progress lines and checkpoints.
	Interval time.Duration

	// AcceptPartial moves a run that ended with failures to results.
	AcceptPartial bool

	// PauseToggle pauses or resumes the run on each receive.
	PauseToggle <-chan struct{}
}

// Outcome summarises a driven run.
type Outcome struct {
	Stage   types.Stage
	Stats   types.AggregateStats
	Summary scheduler.Summary

	// Interrupted is set when ctx was cancelled before the run finished.
	Interrupted bool
}

// Drive blocks until the session's current run settles. Progress goes to
// w every cfg.Interval and the session is checkpointed alongside. A run
// halted by a scheduler fault returns the fault after a final checkpoint.
// w must be safe for concurrent use when it is shared with RecordPrinter.
func Drive(ctx context.Context, sess *pipeline.Session, cp Checkpointer, w io.Writer, cfg Config) (Outcome, error) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	type settled struct {
		sum scheduler.Summary
		err error
	}
	done := make(chan settled, 1)
	go func() {
		sum, err := sess.Wait(context.Background())
		done <- settled{sum, err}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var result settled
loop:
	for {
		select {
		case result = <-done:
			break loop
		case <-ticker.C:
			stats := sess.Stats()
			fmt.Fprintln(w, ProgressLine(stats, sess.Paused()))
			if err := cp.Save(context.Background(), sess.State()); err != nil {
				fmt.Fprintf(w, "  warning: checkpoint failed: %v\n", err)
			}
		case <-cfg.PauseToggle:
			togglePause(sess, w)
		}
	}

	out := Outcome{Summary: result.sum, Interrupted: ctx.Err() != nil}
	if result.err == nil && cfg.AcceptPartial && sess.Stage() == types.StageProcessing && len(sess.FailedIDs()) > 0 {
		if err := sess.AcceptPartial(); err != nil {
			result.err = fmt.Errorf("accepting partial results: %w", err)
		}
	}

	out.Stage = sess.Stage()
	out.Stats = sess.Stats()
	if err := cp.Save(context.Background(), sess.State()); err != nil {
		return out, fmt.Errorf("saving session: %w", err)
	}
	fmt.Fprintln(w, SummaryLine(out.Stats))
	return out, result.err
}

func togglePause(sess *pipeline.Session, w io.Writer) {
	if sess.Paused() {
		if err := sess.Resume(); err != nil {
			fmt.Fprintf(w, "  warning: resume failed: %v\n", err)
			return
		}
		fmt.Fprintln(w, "resumed")
		return
	}
	if err := sess.Pause(); err != nil {
		fmt.Fprintf(w, "  warning: pause failed: %v\n", err)
		return
	}
	fmt.Fprintln(w, "paused (in-flight records will finish)")
}

// ProgressLine formats one progress report.
func ProgressLine(s types.AggregateStats, paused bool) string {
	line := fmt.Sprintf("progress: %d/%d (%d%%) included=%d maybe=%d excluded=%d failed=%d cost=$%.4f",
		s.Processed, s.Total, s.Percent(), s.Included, s.Maybe, s.Excluded, s.Failed, s.EstimatedCost)
	if paused {
		line += " [paused]"
	}
	return line
}

// SummaryLine formats the end-of-run summary.
func SummaryLine(s types.AggregateStats) string {
	return fmt.Sprintf("\nScreening summary: %d included, %d maybe, %d excluded, %d failed, %d pending (total: %d, cost: $%.4f)",
		s.Included, s.Maybe, s.Excluded, s.Failed, s.Pending+s.InProgress, s.Total, s.EstimatedCost)
}

// RecordPrinter returns a scheduler observer that writes one line per
// terminal record. It is safe for concurrent use.
func RecordPrinter(w io.Writer) func(types.StudyRecord) {
	var mu sync.Mutex
	return func(r types.StudyRecord) {
		c := r.Classification
		var line string
		switch c.Status {
		case types.StatusDecided:
			line = fmt.Sprintf("%-8s %s (%d%%) %s", c.Decision, r.ID, aggregate.ConfidencePercent(c.Confidence), truncate(r.Title, 60))
		case types.StatusFailed:
			line = fmt.Sprintf("%-8s %s: %s", "failed", r.ID, c.Error)
		default:
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(w, line)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
