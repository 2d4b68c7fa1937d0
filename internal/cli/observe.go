package cli

import (
	"log/slog"
	"time"

	"github.com/marcelocantos/ttsh/internal/audit"
	"github.com/marcelocantos/ttsh/internal/schedule"
	"github.com/marcelocantos/ttsh/internal/syntax"
)

// observers fans lifecycle events out to several observers.
type observers []schedule.Observer

func (obs observers) Started(seq int, cmd *syntax.Node) {
	for _, o := range obs {
		o.Started(seq, cmd)
	}
}

func (obs observers) Finished(seq int, cmd *syntax.Node, status int, elapsed time.Duration) {
	for _, o := range obs {
		o.Finished(seq, cmd, status, elapsed)
	}
}

// history records every completed top-level command in the run history.
type history struct {
	logger *audit.Logger
	script string
	mode   string
	cwd    string
	log    *slog.Logger
}

func (h *history) Started(int, *syntax.Node) {}

func (h *history) Finished(seq int, cmd *syntax.Node, status int, elapsed time.Duration) {
	err := h.logger.Log(audit.Record{
		Script:   h.script,
		Mode:     h.mode,
		Command:  seq,
		Text:     syntax.Format(cmd),
		ExitCode: status,
		Duration: elapsed,
		Cwd:      h.cwd,
	})
	// Best-effort history logging; don't fail the run if it fails.
	if err != nil {
		h.log.Warn("history entry not written", "seq", seq, "err", err)
	}
}
