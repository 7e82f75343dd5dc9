// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/screening-engine/internal/criteria"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List built-in criteria templates",
	Long: `Templates lists commonly used screening rules. Pass an id to
'screen --template' to add its rule to the inclusion or exclusion criteria.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		tmpls := criteria.Templates()
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(tmpls)
		}

		fmt.Fprintf(os.Stdout, "%-38s  %-9s  %s\n", "ID", "Kind", "Rule")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
		for _, t := range tmpls {
			fmt.Fprintf(os.Stdout, "%-38s  %-9s  %s\n", t.ID, t.Kind, t.Rule)
		}
		return nil
	},
}

func init() {
	templatesCmd.Flags().Bool("json", false, "output templates as JSON")

	rootCmd.AddCommand(templatesCmd)
}
