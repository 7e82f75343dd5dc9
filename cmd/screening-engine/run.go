// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/screening-engine/internal/pipeline"
	"github.com/pdiddy/screening-engine/internal/screen"
	"github.com/pdiddy/screening-engine/internal/sessiondb"
	"github.com/pdiddy/screening-engine/pkg/types"
)

// addRunFlags registers the flags shared by screen and resume.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Int("concurrency", 0, "maximum records classified at once (default 4)")
	cmd.Flags().String("model", "", "Claude model identifier")
	cmd.Flags().Float64("rate", 0, "maximum classification requests per second (0 = unlimited)")
	cmd.Flags().Duration("interval", screen.DefaultInterval, "progress and checkpoint interval")
	cmd.Flags().Bool("accept-partial", false, "move to results even when some records failed")
	cmd.Flags().String("out", "", "export results to this file when screening completes")
	cmd.Flags().String("format", "", "export format: csv, tsv, json, yaml, ris (default: from --out extension)")
}

// signalContext is cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// pauseToggles delivers one value per pause signal until ctx is done.
func pauseToggles(ctx context.Context) <-chan struct{} {
	out := make(chan struct{})
	if len(pauseSignals) == 0 {
		return out
	}
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, pauseSignals...)
	go func() {
		defer signal.Stop(sig)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sig:
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// driveSession waits for the session's run while reporting progress, then
// exports or explains what is left to do.
func driveSession(ctx context.Context, cmd *cobra.Command, sess *pipeline.Session, db *sessiondb.DB, cfg types.ScreeningConfig) error {
	interval, _ := cmd.Flags().GetDuration("interval")
	acceptPartial, _ := cmd.Flags().GetBool("accept-partial")

	toggleCtx, stopToggles := context.WithCancel(ctx)
	defer stopToggles()
	if len(pauseSignals) > 0 {
		fmt.Fprintf(os.Stdout, "screening %d records (send SIGUSR1 to pid %d to pause or resume, Ctrl-C to stop)\n",
			sess.Stats().Total, os.Getpid())
	}

	out, err := screen.Drive(ctx, sess, db, os.Stdout, screen.Config{
		Interval:      interval,
		AcceptPartial: acceptPartial,
		PauseToggle:   pauseToggles(toggleCtx),
	})
	if err != nil {
		return fmt.Errorf("classification halted: %w; run 'screening-engine resume' to continue", err)
	}

	switch {
	case out.Interrupted:
		return fmt.Errorf("screening interrupted with %d records unclassified; progress saved to %s, run 'screening-engine resume' to continue",
			out.Stats.Pending+out.Stats.InProgress, cfg.Session.Dir)
	case out.Stage == types.StageProcessing:
		return fmt.Errorf("%d record(s) failed classification; run 'screening-engine resume --retry-failed' or 'screening-engine resume --accept-partial'",
			out.Stats.Failed)
	}
	return exportOnCompletion(cmd, sess.Snapshot())
}

// exportOnCompletion writes results when --out was given.
func exportOnCompletion(cmd *cobra.Command, records []types.StudyRecord) error {
	outPath, _ := cmd.Flags().GetString("out")
	if outPath == "" {
		fmt.Fprintln(os.Stdout, "screening complete; run 'screening-engine export --out results.csv' to write the decisions")
		return nil
	}
	format, _ := cmd.Flags().GetString("format")
	return writeExport(outPath, format, records)
}

func sessionOptions(cfg types.ScreeningConfig) pipeline.Options {
	return pipeline.Options{
		MaxRecords:  cfg.Ingest.MaxRecords,
		Concurrency: cfg.Scheduler.Concurrency,
		Logger:      newLogger(),
		Observer:    screen.RecordPrinter(os.Stdout),
	}
}

func loadState(ctx context.Context, db *sessiondb.DB, id string) (types.SessionState, error) {
	if id == "" {
		return db.Latest(ctx)
	}
	return db.Load(ctx, id)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
