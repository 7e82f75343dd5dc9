// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/screening-engine/internal/aggregate"
	"github.com/pdiddy/screening-engine/pkg/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the stage and statistics of the saved session",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().String("session", "", "session id (default: most recent)")
	statsCmd.Flags().Bool("json", false, "output statistics as JSON")

	rootCmd.AddCommand(statsCmd)
}

type statsReport struct {
	Session   string               `json:"session"`
	Stage     types.Stage          `json:"stage"`
	UpdatedAt time.Time            `json:"updated_at"`
	Run       string               `json:"run,omitempty"`
	Criteria  types.CriteriaSet    `json:"criteria"`
	Stats     types.AggregateStats `json:"stats"`
	Percent   int                  `json:"percent"`
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := screeningConfig(cmd)
	sessionID, _ := cmd.Flags().GetString("session")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	db, err := openSessionDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	st, err := loadState(context.Background(), db, sessionID)
	if err != nil {
		return err
	}

	stats := aggregate.ComputeStats(st.Records)
	report := statsReport{
		Session:   st.ID,
		Stage:     st.Stage,
		UpdatedAt: st.UpdatedAt,
		Criteria:  st.Criteria,
		Stats:     stats,
		Percent:   stats.Percent(),
	}
	if st.Run != nil {
		report.Run = st.Run.ID
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(os.Stdout, "Session:     %s\n", report.Session)
	fmt.Fprintf(os.Stdout, "Stage:       %s\n", report.Stage)
	fmt.Fprintf(os.Stdout, "Updated:     %s\n", formatTime(report.UpdatedAt))
	if st.Run != nil {
		fmt.Fprintf(os.Stdout, "Run:         %s (started %s)\n", st.Run.ID, formatTime(st.Run.StartedAt))
	}
	fmt.Fprintf(os.Stdout, "Criteria:    %d inclusion, %d exclusion\n", len(st.Criteria.Inclusion), len(st.Criteria.Exclusion))
	fmt.Fprintf(os.Stdout, "Records:     %d total, %d pending, %d in progress, %d decided, %d failed\n",
		stats.Total, stats.Pending, stats.InProgress, stats.Decided, stats.Failed)
	fmt.Fprintf(os.Stdout, "Decisions:   %d included, %d maybe, %d excluded\n", stats.Included, stats.Maybe, stats.Excluded)
	fmt.Fprintf(os.Stdout, "Progress:    %d/%d (%d%%)\n", stats.Processed, stats.Total, stats.Percent())
	fmt.Fprintf(os.Stdout, "Cost:        $%.4f\n", stats.EstimatedCost)
	return nil
}
