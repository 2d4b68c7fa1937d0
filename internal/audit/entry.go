package audit

import "time"

// Entry represents one completed top-level command in the run history.
type Entry struct {
	Seq      uint64    `json:"seq"`
	Time     time.Time `json:"ts"`
	PrevHash string    `json:"prev_hash"`
	RunID    string    `json:"run_id"`          // shared by every command of one ttsh invocation
	Script   string    `json:"script"`          // script file as given on the command line
	Mode     string    `json:"mode"`            // "sequential" or "time-travel"
	Command  int       `json:"command"`         // 1-based position within the script
	Text     string    `json:"text"`            // canonical command text
	ExitCode int       `json:"exit_code"`       // shell status
	Error    string    `json:"error,omitempty"` // set when the command could not run
	Duration float64   `json:"duration_ms"`     // execution time in milliseconds
	Cwd      string    `json:"cwd"`             // working directory
	Hash     string    `json:"hash"`            // SHA-256 of this entry (with hash field empty)
}

// Record carries the caller-supplied fields of an entry.
type Record struct {
	Script   string
	Mode     string
	Command  int
	Text     string
	ExitCode int
	Error    string
	Duration time.Duration
	Cwd      string
}
