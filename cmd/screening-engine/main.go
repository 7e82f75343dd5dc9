// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the screening-engine CLI.
// Subcommands import a bibliographic export, screen every record against
// inclusion and exclusion criteria with Claude, and export the decisions.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/screening-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ and .env at startup,
// in lookup order.
var loadedSecrets []map[string]string

// rootCmd is the base command for the screening-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "screening-engine",
	Short: "Claude-assisted title and abstract screening for systematic reviews",
	Long: `screening-engine screens the records of a literature search against
inclusion and exclusion criteria. Each record is classified as include,
maybe, or exclude with a confidence and a rationale.

Use screen to import a RIS, JSON, or YAML export and classify it, resume to
finish an interrupted or partially failed screen, stats to inspect the saved
session, and export to write the decisions as csv, tsv, json, yaml, or ris.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		files, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		env, err := secrets.LoadEnv(".env")
		if err != nil {
			return err
		}
		loadedSecrets = []map[string]string{files, env}

		keys := make([]string, 0, len(files)+len(env))
		for _, src := range loadedSecrets {
			for k := range src {
				keys = append(keys, k)
			}
		}
		if len(keys) > 0 {
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./screening-engine.yaml or ~/.config/screening-engine/config.yaml)")
	rootCmd.PersistentFlags().String("session-dir", "", "directory holding session.db (default \"session\")")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (default info)")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text or json (default text)")

	_ = viper.BindPFlag("session.dir", rootCmd.PersistentFlags().Lookup("session-dir"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("screening-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "screening-engine"))
		}
	}

	setConfigDefaults()

	viper.SetEnvPrefix("SCREENING_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
