// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the slog.Logger shared by the CLI and the
// screening components.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New creates a slog.Logger writing to w. Format "json" selects the JSON
// handler; anything else uses the text handler.
func New(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelFromString(level)}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "", "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
