//go:build mage

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Screen builds the CLI and screens a reference export from imports/ with
// the criteria in criteria.yaml.
func Screen(file string) error {
	mg.Deps(Init, Build)
	input := file
	if !strings.ContainsRune(file, filepath.Separator) {
		input = filepath.Join("imports", file)
	}
	fmt.Printf("[screen] %s\n", input)
	return sh.RunV(binPath(), "screen", input, "--criteria-file", "criteria.yaml")
}

// Resume continues the saved session, retrying failed records.
func Resume() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "resume", "--retry-failed")
}

// Export writes the saved session's decisions to exports/ in the given format.
func Export(format string) error {
	mg.Deps(Init, Build)
	out := filepath.Join("exports", "screening."+format)
	return sh.RunV(binPath(), "export", "--format", format, "--out", out)
}
