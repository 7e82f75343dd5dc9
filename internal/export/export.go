// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes screened records as delimited text (csv, tsv),
// hierarchical text (json, yaml) or RIS for re-import into a reference
// manager.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/screening-engine/internal/aggregate"
	"github.com/pdiddy/screening-engine/pkg/types"
)

// Format is an export format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatRIS  Format = "ris"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatCSV, FormatTSV, FormatJSON, FormatYAML, FormatRIS}
}

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	if f == "yml" {
		f = FormatYAML
	}
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", &types.ValidationError{Field: "format", Reason: fmt.Sprintf("unknown export format %q", s)}
}

// Entry is one exported record.
type Entry struct {
	ID         string   `json:"id" yaml:"id"`
	Title      string   `json:"title" yaml:"title"`
	Authors    []string `json:"authors" yaml:"authors"`
	Year       int      `json:"year,omitempty" yaml:"year,omitempty"`
	Journal    string   `json:"journal,omitempty" yaml:"journal,omitempty"`
	DOI        string   `json:"doi,omitempty" yaml:"doi,omitempty"`
	Abstract   string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Keywords   []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Status     string   `json:"status" yaml:"status"`
	Decision   string   `json:"decision,omitempty" yaml:"decision,omitempty"`
	Confidence *int     `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Rationale  string   `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	Error      string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Entries converts records to export entries. Confidence is a rounded
// percentage and is only present for decided records.
func Entries(records []types.StudyRecord) []Entry {
	entries := make([]Entry, len(records))
	for i, r := range records {
		c := r.Classification
		e := Entry{
			ID:       r.ID,
			Title:    r.Title,
			Authors:  append([]string{}, r.Authors...),
			Year:     r.Year,
			Journal:  r.Journal,
			DOI:      r.DOI,
			Abstract: r.Abstract,
			Keywords: r.Keywords,
			Status:   string(c.Status),
			Error:    c.Error,
		}
		if c.Status == types.StatusDecided {
			pct := aggregate.ConfidencePercent(c.Confidence)
			e.Decision = string(c.Decision)
			e.Confidence = &pct
			e.Rationale = c.Rationale
		}
		entries[i] = e
	}
	return entries
}

// Write encodes records to w in the given format.
func Write(w io.Writer, format Format, records []types.StudyRecord) error {
	entries := Entries(records)
	switch format {
	case FormatCSV:
		return writeDelimited(w, ',', entries)
	case FormatTSV:
		return writeDelimited(w, '\t', entries)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case FormatRIS:
		return writeRIS(w, entries)
	}
	return &types.ValidationError{Field: "format", Reason: fmt.Sprintf("unknown export format %q", format)}
}

// WriteFile writes records to path, creating parent directories. The
// format defaults to the file extension when empty.
func WriteFile(path string, format Format, records []types.StudyRecord) error {
	if format == "" {
		f, err := ParseFormat(filepath.Ext(path))
		if err != nil {
			return err
		}
		format = f
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := Write(f, format, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var delimitedHeader = []string{
	"id", "title", "authors", "year", "journal", "doi", "keywords",
	"status", "decision", "confidence", "rationale", "error", "abstract",
}

func writeDelimited(w io.Writer, comma rune, entries []Entry) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if err := cw.Write(delimitedHeader); err != nil {
		return err
	}
	for _, e := range entries {
		year, conf := "", ""
		if e.Year != 0 {
			year = strconv.Itoa(e.Year)
		}
		if e.Confidence != nil {
			conf = strconv.Itoa(*e.Confidence)
		}
		row := []string{
			e.ID, e.Title, strings.Join(e.Authors, "; "), year, e.Journal, e.DOI,
			strings.Join(e.Keywords, "; "), e.Status, e.Decision, conf, e.Rationale,
			e.Error, e.Abstract,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeRIS emits one JOUR record per entry. The screening outcome goes in
// N1 notes so reference managers keep it.
func writeRIS(w io.Writer, entries []Entry) error {
	var b strings.Builder
	for _, e := range entries {
		risLine(&b, "TY", "JOUR")
		risLine(&b, "ID", e.ID)
		risLine(&b, "TI", e.Title)
		for _, a := range e.Authors {
			risLine(&b, "AU", a)
		}
		if e.Year != 0 {
			risLine(&b, "PY", strconv.Itoa(e.Year))
		}
		risLine(&b, "JO", e.Journal)
		risLine(&b, "DO", e.DOI)
		for _, kw := range e.Keywords {
			risLine(&b, "KW", kw)
		}
		risLine(&b, "AB", e.Abstract)
		switch {
		case e.Decision != "":
			risLine(&b, "N1", fmt.Sprintf("Screening: %s (%d%%)", e.Decision, *e.Confidence))
			risLine(&b, "N1", e.Rationale)
		case e.Error != "":
			risLine(&b, "N1", "Screening failed: "+e.Error)
		default:
			risLine(&b, "N1", "Screening: "+e.Status)
		}
		b.WriteString("ER  - \n\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func risLine(b *strings.Builder, tag, value string) {
	value = strings.Join(strings.Fields(value), " ")
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s  - %s\n", tag, value)
}
