// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List or delete saved screening sessions",
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().String("delete", "", "delete the session with this id")

	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg := screeningConfig(cmd)
	db, err := openSessionDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if id, _ := cmd.Flags().GetString("delete"); id != "" {
		if err := db.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "deleted session %s\n", id)
		return nil
	}

	infos, err := db.List(ctx)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No saved sessions.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-10s  %7s  %s\n", "Session", "Stage", "Records", "Updated")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 80))
	for _, info := range infos {
		fmt.Fprintf(os.Stdout, "%-36s  %-10s  %7d  %s\n", info.ID, info.Stage, info.Records, formatTime(info.UpdatedAt))
	}
	return nil
}
