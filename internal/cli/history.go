package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/marcelocantos/ttsh/internal/audit"
)

// RunHistoryVerify handles ttsh history verify.
func RunHistoryVerify(w io.Writer, logPath string) int {
	if err := audit.Verify(logPath); err != nil {
		fmt.Fprintf(w, "history verification FAILED: %v\n", err)
		return 1
	}
	fmt.Fprintln(w, "history integrity verified")
	return 0
}

// RunHistoryShow handles ttsh history show: the last n entries, optionally
// only those of the most recent run.
func RunHistoryShow(w io.Writer, logPath string, n int, lastRun bool) int {
	runID := ""
	if lastRun {
		last, err := audit.Tail(logPath, 1, "")
		if err != nil {
			fmt.Fprintf(w, "ttsh history: %v\n", err)
			return 1
		}
		if len(last) > 0 {
			runID = last[0].RunID
		}
	}

	entries, err := audit.Tail(logPath, n, runID)
	if err != nil {
		fmt.Fprintf(w, "ttsh history: %v\n", err)
		return 1
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "no history entries")
		return 0
	}
	for _, e := range entries {
		data, _ := json.MarshalIndent(e, "", "  ")
		fmt.Fprintf(w, "%s\n", data)
	}
	return 0
}
