// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/screening-engine/internal/pipeline"
	"github.com/pdiddy/screening-engine/pkg/types"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Continue the saved screening session",
	Long: `Resume reloads the most recent session (or --session) from the session
database and finishes it. Records that were in flight when the previous
screen stopped are classified again; decided records are kept.

Use --retry-failed to classify failed records again, or --accept-partial to
move to results with the failures recorded.`,
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().String("session", "", "session id (default: most recent)")
	resumeCmd.Flags().Bool("retry-failed", false, "requeue failed records before continuing")
	addRunFlags(resumeCmd)

	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	cfg := screeningConfig(cmd)
	sessionID, _ := cmd.Flags().GetString("session")
	retry, _ := cmd.Flags().GetBool("retry-failed")

	db, err := openSessionDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	st, err := loadState(context.Background(), db, sessionID)
	if err != nil {
		return err
	}
	switch st.Stage {
	case types.StageUpload:
		return fmt.Errorf("session %s has no records; run 'screening-engine screen' first", st.ID)
	case types.StageResults:
		fmt.Fprintf(os.Stdout, "session %s is already complete\n", st.ID)
		return exportOnCompletion(cmd, st.Records)
	}

	classifier, err := newClassifier(cfg.Classifier)
	if err != nil {
		return err
	}
	sess := pipeline.NewSession(classifier, sessionOptions(cfg))
	if err := sess.Restore(st); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	if sess.Stage() == types.StageCriteria {
		printCriteria(sess.Criteria())
		if _, err := sess.ConfirmCriteria(ctx); err != nil {
			return err
		}
	} else if failed := sess.FailedIDs(); retry && len(failed) > 0 {
		fmt.Fprintf(os.Stdout, "requeueing %d failed record(s)\n", len(failed))
		if err := sess.Requeue(ctx, failed...); err != nil {
			return err
		}
	} else if _, err := sess.Restart(ctx); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "resumed session %s\n", sess.ID())
	return driveSession(ctx, cmd, sess, db, cfg)
}
