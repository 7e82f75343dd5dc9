// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdiddy/screening-engine/pkg/types"
)

// maxRISLine bounds a single RIS line; abstracts can be long.
const maxRISLine = 1 << 20

// ParseRIS reads RIS tagged records. Lines look like "TI  - Title"; a line
// without a tag continues the previous field. Unknown tags are ignored.
func ParseRIS(r io.Reader) ([]types.RawRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxRISLine)

	var (
		out     []types.RawRecord
		cur     types.RawRecord
		open    bool
		lastTag string
		lineNo  int
	)
	flush := func() {
		if open {
			out = append(out, cur)
		}
		cur = types.RawRecord{}
		open = false
		lastTag = ""
	}

	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		tag, value, ok := splitRISLine(line)
		if !ok {
			if open && lastTag != "" {
				appendContinuation(&cur, lastTag, strings.TrimSpace(line))
			}
			continue
		}

		switch tag {
		case "TY":
			flush()
			open = true
		case "ER":
			flush()
			continue
		}
		if !open {
			// Content outside TY..ER is not part of any record.
			continue
		}
		lastTag = tag
		applyRISTag(&cur, tag, value)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading RIS line %d: %w", lineNo+1, err)
	}
	flush()
	return out, nil
}

// splitRISLine recognises "XY  - value". Some exporters emit a single
// space before the hyphen or nothing after it.
func splitRISLine(line string) (tag, value string, ok bool) {
	if len(line) < 4 || !isTagChar(line[0]) || !isTagChar(line[1]) {
		return "", "", false
	}
	rest := line[2:]
	trimmed := strings.TrimLeft(rest, " ")
	if len(rest)-len(trimmed) < 1 || !strings.HasPrefix(trimmed, "-") {
		return "", "", false
	}
	return line[:2], strings.TrimSpace(trimmed[1:]), true
}

func isTagChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func applyRISTag(rec *types.RawRecord, tag, value string) {
	if value == "" {
		return
	}
	switch tag {
	case "TI", "T1":
		rec.Title = joinField(rec.Title, value)
	case "AU", "A1", "A2":
		rec.Authors = append(rec.Authors, value)
	case "PY", "Y1", "DA":
		if rec.Year == 0 {
			rec.Year = parseYear(value)
		}
	case "AB", "N2":
		rec.Abstract = joinField(rec.Abstract, value)
	case "KW":
		rec.Keywords = append(rec.Keywords, value)
	case "DO":
		rec.DOI = value
	case "JO", "JF", "T2":
		if rec.Journal == "" {
			rec.Journal = value
		}
	}
}

func appendContinuation(rec *types.RawRecord, tag, value string) {
	switch tag {
	case "TI", "T1":
		rec.Title = joinField(rec.Title, value)
	case "AB", "N2":
		rec.Abstract = joinField(rec.Abstract, value)
	}
}

func joinField(existing, value string) string {
	if existing == "" {
		return value
	}
	return existing + " " + value
}

// parseYear takes the leading four digits of "2019", "2019/05/01/" or
// "2019///".
func parseYear(value string) int {
	if len(value) < 4 {
		return 0
	}
	y, err := strconv.Atoi(value[:4])
	if err != nil {
		return 0
	}
	return y
}
