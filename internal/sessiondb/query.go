// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sessiondb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/screening-engine/pkg/types"
)

// QueryOptions filters stored records. Zero values match everything.
type QueryOptions struct {
	Status   types.Status
	Decision types.Decision

	// Limit caps the result count. Zero means no limit.
	Limit int
}

// Query returns the records of a session in ingestion order.
func (s *DB) Query(ctx context.Context, sessionID string, opts QueryOptions) ([]types.StudyRecord, error) {
	var (
		qb   strings.Builder
		args = []any{sessionID}
	)
	qb.WriteString(
		`SELECT id, title, authors, year, abstract, keywords, doi, journal,
			status, decision, confidence, rationale, error, cost
		FROM records WHERE session_id = ?`)
	if opts.Status != "" {
		qb.WriteString(` AND status = ?`)
		args = append(args, string(opts.Status))
	}
	if opts.Decision != "" {
		qb.WriteString(` AND decision = ?`)
		args = append(args, string(opts.Decision))
	}
	qb.WriteString(` ORDER BY position`)
	if opts.Limit > 0 {
		qb.WriteString(` LIMIT ?`)
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var out []types.StudyRecord
	for rows.Next() {
		var (
			r                 types.StudyRecord
			authors, keywords string
			status, decision  string
		)
		err := rows.Scan(&r.ID, &r.Title, &authors, &r.Year, &r.Abstract, &keywords, &r.DOI, &r.Journal,
			&status, &decision, &r.Classification.Confidence, &r.Classification.Rationale,
			&r.Classification.Error, &r.Classification.Cost)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.Classification.Status = types.Status(status)
		r.Classification.Decision = types.Decision(decision)
		if err := json.Unmarshal([]byte(authors), &r.Authors); err != nil {
			return nil, fmt.Errorf("decoding authors of %s: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(keywords), &r.Keywords); err != nil {
			return nil, fmt.Errorf("decoding keywords of %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SessionInfo summarises a stored session.
type SessionInfo struct {
	ID        string
	Stage     types.Stage
	Records   int
	UpdatedAt time.Time
}

// List returns every stored session, most recent first.
func (s *DB) List(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.stage, s.updated_at, count(r.id)
		FROM sessions s LEFT JOIN records r ON r.session_id = s.id
		GROUP BY s.id ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var (
			info    SessionInfo
			stage   string
			updated string
		)
		if err := rows.Scan(&info.ID, &stage, &updated, &info.Records); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		info.Stage = types.Stage(stage)
		info.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, info)
	}
	return out, rows.Err()
}
