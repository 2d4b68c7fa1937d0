// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the structured diagnostic logger. Diagnostics go
// to stderr and never mix with the output of the commands being run.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Config selects the level and encoding of diagnostic output.
type Config struct {
	Level slog.Level
	JSON  bool
}

// New returns a logger writing to w.
func New(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	var h slog.Handler
	if cfg.JSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("pid", os.Getpid())
}
