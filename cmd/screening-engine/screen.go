// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/screening-engine/internal/criteria"
	"github.com/pdiddy/screening-engine/internal/ingest"
	"github.com/pdiddy/screening-engine/internal/pipeline"
	"github.com/pdiddy/screening-engine/pkg/types"
)

var screenCmd = &cobra.Command{
	Use:   "screen [file]",
	Short: "Import a reference export and screen every record",
	Long: `Screen imports a RIS, JSON, or YAML export, applies the inclusion and
exclusion criteria, and classifies every record with Claude. Progress is
checkpointed to the session database, so an interrupted screen can be
continued with resume.

Criteria come from --include and --exclude (repeatable, one rule per line),
a --criteria-file with inclusion and exclusion lists, and --template ids
(see the templates command).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScreen,
}

func init() {
	screenCmd.Flags().String("input", "", "reference export to import (.ris, .json, .yaml)")
	screenCmd.Flags().StringArray("include", nil, "inclusion rule (repeatable)")
	screenCmd.Flags().StringArray("exclude", nil, "exclusion rule (repeatable)")
	screenCmd.Flags().String("criteria-file", "", "YAML file with inclusion and exclusion lists")
	screenCmd.Flags().StringSlice("template", nil, "criteria template id (repeatable)")
	addRunFlags(screenCmd)

	rootCmd.AddCommand(screenCmd)
}

func runScreen(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	if input == "" && len(args) > 0 {
		input = args[0]
	}
	if input == "" {
		return fmt.Errorf("provide a reference export with --input or as an argument")
	}

	cfg := screeningConfig(cmd)
	inclusion, exclusion, err := criteriaFromFlags(cmd)
	if err != nil {
		return err
	}
	templates, _ := cmd.Flags().GetStringSlice("template")

	up, err := ingest.LoadFile(input, cfg.Ingest.MaxUploadBytes)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "loaded %d records from %s (%s)\n", up.Count, input, up.Format)

	classifier, err := newClassifier(cfg.Classifier)
	if err != nil {
		return err
	}
	db, err := openSessionDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sess := pipeline.NewSession(classifier, sessionOptions(cfg))
	if _, err := sess.Import(up.Records); err != nil {
		return err
	}
	if len(inclusion)+len(exclusion) > 0 {
		if _, err := sess.SetCriteria(inclusion, exclusion); err != nil {
			return err
		}
	}
	for _, id := range templates {
		if _, err := sess.ApplyTemplate(strings.TrimSpace(id)); err != nil {
			return err
		}
	}
	printCriteria(sess.Criteria())

	ctx, stop := signalContext()
	defer stop()

	if _, err := sess.ConfirmCriteria(ctx); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "session %s\n", sess.ID())
	return driveSession(ctx, cmd, sess, db, cfg)
}

// criteriaFromFlags gathers rules from --include, --exclude and
// --criteria-file. Each flag value may hold several rules, one per line.
func criteriaFromFlags(cmd *cobra.Command) (inclusion, exclusion []string, err error) {
	inc, _ := cmd.Flags().GetStringArray("include")
	exc, _ := cmd.Flags().GetStringArray("exclude")
	for _, v := range inc {
		inclusion = append(inclusion, criteria.ParseLines(v)...)
	}
	for _, v := range exc {
		exclusion = append(exclusion, criteria.ParseLines(v)...)
	}

	path, _ := cmd.Flags().GetString("criteria-file")
	if path == "" {
		return inclusion, exclusion, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading criteria file: %w", err)
	}
	var set types.CriteriaSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, nil, &types.ValidationError{Field: "criteria-file", Reason: err.Error()}
	}
	return append(inclusion, set.Inclusion...), append(exclusion, set.Exclusion...), nil
}

func printCriteria(c types.CriteriaSet) {
	fmt.Fprintln(os.Stdout, "inclusion criteria:")
	printRules(c.Inclusion)
	fmt.Fprintln(os.Stdout, "exclusion criteria:")
	printRules(c.Exclusion)
}

func printRules(rules []string) {
	if len(rules) == 0 {
		fmt.Fprintln(os.Stdout, "  (none)")
		return
	}
	for _, r := range rules {
		fmt.Fprintf(os.Stdout, "  - %s\n", r)
	}
}
