// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/screening-engine/internal/aggregate"
	"github.com/pdiddy/screening-engine/internal/export"
	"github.com/pdiddy/screening-engine/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export screened records of the saved session",
	Long: `Export writes the records of the saved session as csv, tsv, json, yaml,
or ris. Filter with --status, --decision, and --search; filters combine with
AND. Without --out the export goes to stdout.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("session", "", "session id (default: most recent)")
	exportCmd.Flags().String("out", "", "output file (default: stdout)")
	exportCmd.Flags().String("format", "", "export format: csv, tsv, json, yaml, ris (default: from --out extension, else csv)")
	exportCmd.Flags().String("status", "", "filter by status: pending, in_progress, decided, failed")
	exportCmd.Flags().String("decision", "", "filter by decision: include, maybe, exclude")
	exportCmd.Flags().String("search", "", "filter by text in title, abstract, or authors")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := screeningConfig(cmd)
	sessionID, _ := cmd.Flags().GetString("session")
	outPath, _ := cmd.Flags().GetString("out")
	format, _ := cmd.Flags().GetString("format")

	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}

	db, err := openSessionDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	st, err := loadState(context.Background(), db, sessionID)
	if err != nil {
		return err
	}
	records := aggregate.View(st.Records, filter)

	if outPath == "" || outPath == "-" {
		if format == "" {
			format = string(export.FormatCSV)
		}
		f, err := export.ParseFormat(format)
		if err != nil {
			return err
		}
		return export.Write(os.Stdout, f, records)
	}
	return writeExport(outPath, format, records)
}

func filterFromFlags(cmd *cobra.Command) (aggregate.Filter, error) {
	var f aggregate.Filter
	if s, _ := cmd.Flags().GetString("status"); s != "" {
		st, err := types.ParseStatus(s)
		if err != nil {
			return f, err
		}
		f.Status = st
	}
	if s, _ := cmd.Flags().GetString("decision"); s != "" {
		d, err := types.ParseDecision(s)
		if err != nil {
			return f, err
		}
		f.Decision = d
	}
	f.SearchText, _ = cmd.Flags().GetString("search")
	return f, nil
}

// writeExport writes records to path. An empty format is taken from the
// file extension.
func writeExport(path, format string, records []types.StudyRecord) error {
	var f export.Format
	if format != "" {
		var err error
		if f, err = export.ParseFormat(format); err != nil {
			return err
		}
	}
	if err := export.WriteFile(path, f, records); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "exported %d records to %s\n", len(records), path)
	return nil
}
