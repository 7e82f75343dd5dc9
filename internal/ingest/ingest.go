// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest turns an uploaded bibliographic file into raw records.
// It accepts RIS exports from reference managers and JSON or YAML lists of
// records.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/screening-engine/pkg/types"
)

// Format names an import file format.
type Format string

const (
	FormatRIS  Format = "ris"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Upload is the validated content of one import file.
type Upload struct {
	Format  Format
	Records []types.RawRecord
	Count   int
}

// recordList is the object form of a JSON or YAML import.
type recordList struct {
	Records []types.RawRecord `json:"records" yaml:"records"`
}

// LoadFile opens path and calls Load. Files above maxBytes are rejected
// before they are read.
func LoadFile(path string, maxBytes int64) (Upload, error) {
	f, err := os.Open(path)
	if err != nil {
		return Upload{}, fmt.Errorf("opening import %s: %w", path, err)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && maxBytes > 0 && info.Size() > maxBytes {
		return Upload{}, &PayloadTooLargeError{Size: info.Size(), Limit: maxBytes}
	}
	return Load(filepath.Base(path), f, maxBytes)
}

// Load reads at most maxBytes from r, detects the format from name and
// content, and parses it. Records without any bibliographic data are
// dropped; an import left with no records is a *types.ValidationError.
func Load(name string, r io.Reader, maxBytes int64) (Upload, error) {
	if maxBytes <= 0 {
		maxBytes = types.DefaultMaxUploadBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return Upload{}, fmt.Errorf("reading import %s: %w", name, err)
	}
	if int64(len(data)) > maxBytes {
		return Upload{}, &PayloadTooLargeError{Limit: maxBytes}
	}

	format, ok := DetectFormat(name, data)
	if !ok {
		return Upload{}, &UnsupportedFormatError{Name: name}
	}

	var raw []types.RawRecord
	switch format {
	case FormatRIS:
		raw, err = ParseRIS(bytes.NewReader(data))
	case FormatJSON:
		raw, err = parseJSON(data)
	case FormatYAML:
		raw, err = parseYAML(data)
	}
	if err != nil {
		return Upload{}, &types.ValidationError{Field: "import", Reason: fmt.Sprintf("parsing %s as %s: %v", name, format, err)}
	}

	records := make([]types.RawRecord, 0, len(raw))
	for _, rec := range raw {
		if !rec.IsEmpty() {
			records = append(records, rec)
		}
	}
	if len(records) == 0 {
		return Upload{}, &types.ValidationError{Field: "import", Reason: fmt.Sprintf("no records found in %s", name)}
	}
	return Upload{Format: format, Records: records, Count: len(records)}, nil
}

// DetectFormat picks the format from the file extension, falling back to
// the content for unknown extensions.
func DetectFormat(name string, data []byte) (Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ris":
		return FormatRIS, true
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	}

	head := bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\ufeff")))
	switch {
	case bytes.HasPrefix(head, []byte("TY  -")), bytes.HasPrefix(head, []byte("TY -")):
		return FormatRIS, true
	case bytes.HasPrefix(head, []byte("[")), bytes.HasPrefix(head, []byte("{")):
		return FormatJSON, true
	}
	return "", false
}

func parseJSON(data []byte) ([]types.RawRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var recs []types.RawRecord
		if err := json.Unmarshal(trimmed, &recs); err != nil {
			return nil, err
		}
		return recs, nil
	}
	var list recordList
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, err
	}
	return list.Records, nil
}

func parseYAML(data []byte) ([]types.RawRecord, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	if node.Content[0].Kind == yaml.SequenceNode {
		var recs []types.RawRecord
		if err := node.Content[0].Decode(&recs); err != nil {
			return nil, err
		}
		return recs, nil
	}
	var list recordList
	if err := node.Content[0].Decode(&list); err != nil {
		return nil, err
	}
	return list.Records, nil
}
