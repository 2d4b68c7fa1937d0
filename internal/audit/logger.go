package audit

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const genesisInput = "ttsh-genesis"

// Logger is an append-only, hash-chained history writer. One Logger is
// used per ttsh invocation; all its entries share a run id.
type Logger struct {
	mu       sync.Mutex
	path     string
	runID    string
	seq      uint64
	prevHash string
	broken   string
}

// NewLogger opens or creates a history log at the given path.
// It verifies the existing chain and resumes it. A log that fails
// verification is moved aside to <path>.broken and a new chain is started.
func NewLogger(path string) (*Logger, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	l := &Logger{
		path:     path,
		runID:    uuid.NewString(),
		prevHash: genesisHash(),
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return l, nil
	case err != nil:
		return nil, fmt.Errorf("read history: %w", err)
	}

	if err := verifyLines(splitLines(data)); err != nil {
		l.broken = path + ".broken"
		if err := os.Rename(path, l.broken); err != nil {
			return nil, fmt.Errorf("move aside broken history: %w", err)
		}
		return l, nil
	}

	// Read existing log to find last entry.
	lines := splitLines(data)
	if len(lines) > 0 {
		var last Entry
		if err := json.Unmarshal(lines[len(lines)-1], &last); err == nil {
			l.seq = last.Seq
			l.prevHash = last.Hash
		}
	}
	return l, nil
}

// Log appends an entry for a completed command.
func (l *Logger) Log(r Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		Seq:      l.seq + 1,
		Time:     time.Now().UTC(),
		PrevHash: l.prevHash,
		RunID:    l.runID,
		Script:   r.Script,
		Mode:     r.Mode,
		Command:  r.Command,
		Text:     r.Text,
		ExitCode: r.ExitCode,
		Error:    r.Error,
		Duration: float64(r.Duration.Microseconds()) / 1000.0,
		Cwd:      r.Cwd,
	}

	// Compute hash with Hash field empty.
	entry.Hash = computeHash(entry)

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write history entry: %w", err)
	}

	// Only advance the chain once the entry is on disk.
	l.seq = entry.Seq
	l.prevHash = entry.Hash
	return nil
}

// Path returns the history file path.
func (l *Logger) Path() string {
	return l.path
}

// RunID identifies this invocation's entries.
func (l *Logger) RunID() string {
	return l.runID
}

// Broken returns where a corrupt log was moved by NewLogger, or "".
func (l *Logger) Broken() string {
	return l.broken
}

func genesisHash() string {
	h := sha256.Sum256([]byte(genesisInput))
	return fmt.Sprintf("%x", h)
}

func computeHash(e Entry) string {
	e.Hash = "" // hash is computed with this field empty
	data, _ := json.Marshal(e)
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h)
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}
