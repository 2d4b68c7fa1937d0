// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package watchdog guards against runaway process creation while a script
// runs. The guard is a separate copy of the ttsh binary running at raised
// priority, so it keeps getting scheduled while the machine is flooded.
//
// Every interval it counts processes by command name and owner. When one
// group grows past the threshold, every member is stopped, repeatedly,
// until no new members appear; then the whole group is killed.
package watchdog

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"

	"github.com/marcelocantos/ttsh/internal/logging"
)

// EnvVar carries the encoded Config to the guard process. Its presence
// turns the binary into a watchdog.
const EnvVar = "TTSH_WATCHDOG"

// Config controls a guard process.
type Config struct {
	Interval  time.Duration
	Threshold int // group size that triggers suppression
	Priority  int // nice value the guard runs at
	LogLevel  slog.Level
}

func (c Config) encode() string {
	v := url.Values{}
	v.Set("interval", c.Interval.String())
	v.Set("threshold", strconv.Itoa(c.Threshold))
	v.Set("priority", strconv.Itoa(c.Priority))
	v.Set("log", c.LogLevel.String())
	return v.Encode()
}

func decode(s string) (Config, error) {
	v, err := url.ParseQuery(s)
	if err != nil {
		return Config{}, err
	}
	var c Config
	if c.Interval, err = time.ParseDuration(v.Get("interval")); err != nil {
		return Config{}, fmt.Errorf("interval: %w", err)
	}
	if c.Threshold, err = strconv.Atoi(v.Get("threshold")); err != nil {
		return Config{}, fmt.Errorf("threshold: %w", err)
	}
	if c.Priority, err = strconv.Atoi(v.Get("priority")); err != nil {
		return Config{}, fmt.Errorf("priority: %w", err)
	}
	if err := c.LogLevel.UnmarshalText([]byte(v.Get("log"))); err != nil {
		return Config{}, fmt.Errorf("log: %w", err)
	}
	if c.Interval <= 0 || c.Threshold <= 0 {
		return Config{}, fmt.Errorf("interval and threshold must be positive")
	}
	return c, nil
}

// Guard is a running watchdog process.
type Guard struct {
	cmd *exec.Cmd
	log *slog.Logger
}

// Start launches a guard process watching on behalf of the caller.
func Start(cfg Config, log *slog.Logger) (*Guard, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(), EnvVar+"="+cfg.encode())
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start watchdog: %w", err)
	}
	log.Debug("watchdog started", "pid", cmd.Process.Pid, "interval", cfg.Interval, "threshold", cfg.Threshold)
	return &Guard{cmd: cmd, log: log}, nil
}

// Pid returns the guard's process id.
func (g *Guard) Pid() int { return g.cmd.Process.Pid }

// Stop kills the guard and reaps it.
func (g *Guard) Stop() {
	_ = g.cmd.Process.Kill()
	err := g.cmd.Wait()
	g.log.Debug("watchdog stopped", "pid", g.cmd.Process.Pid, "err", err)
}

// Serve runs the guard loop if this process was started by Start. It
// reports false otherwise; when it returns true the caller should exit
// with the returned status.
func Serve() (int, bool) {
	enc, ok := os.LookupEnv(EnvVar)
	if !ok {
		return 0, false
	}
	os.Unsetenv(EnvVar)

	cfg, err := decode(enc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ttsh: watchdog: bad configuration: %v\n", err)
		return 1, true
	}
	log := logging.New(os.Stderr, logging.Config{Level: cfg.LogLevel}).With("component", "watchdog")

	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, cfg.Priority); err != nil {
		fmt.Fprintf(os.Stderr, "ttsh: watchdog: cannot raise priority to %d: %v\n", cfg.Priority, err)
		return 1, true
	}

	list, err := ProcTable(procfs.DefaultMountPoint)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ttsh: watchdog: %v\n", err)
		return 1, true
	}

	parent := unix.Getppid()
	w := &Watcher{
		Threshold: cfg.Threshold,
		List:      list,
		Signal:    unix.Kill,
		Exclude:   []int{os.Getpid(), parent},
		Log:       log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGTERM, unix.SIGINT)
	defer stop()
	w.Run(ctx, cfg.Interval, parent)
	return 0, true
}

// Proc is one entry in the process table. Key groups processes that share
// a command name and owner.
type Proc struct {
	PID int
	Key string
}

// ProcTable returns a lister for the procfs mounted at root.
func ProcTable(root string) (func() ([]Proc, error), error) {
	fs, err := procfs.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", root, err)
	}
	return func() ([]Proc, error) {
		procs, err := fs.AllProcs()
		if err != nil {
			return nil, err
		}
		out := make([]Proc, 0, len(procs))
		for _, p := range procs {
			// Processes may exit between listing and reading.
			comm, err := p.Comm()
			if err != nil {
				continue
			}
			var st unix.Stat_t
			if err := unix.Stat(filepath.Join(root, strconv.Itoa(p.PID)), &st); err != nil {
				continue
			}
			out = append(out, Proc{PID: p.PID, Key: fmt.Sprintf("%s-%d", comm, st.Uid)})
		}
		return out, nil
	}, nil
}

// Watcher detects and suppresses process floods.
type Watcher struct {
	Threshold int
	List      func() ([]Proc, error)
	Signal    func(pid int, sig unix.Signal) error
	Exclude   []int // never signalled
	Log       *slog.Logger
}

// Run scans every interval until ctx is done or parent exits.
func (w *Watcher) Run(ctx context.Context, interval time.Duration, parent int) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if _, err := w.Scan(); err != nil {
			w.Log.Warn("scan failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if !alive(parent) {
			w.Log.Debug("parent gone, exiting", "parent", parent)
			return
		}
	}
}

// alive reports whether pid is still our parent.
func alive(pid int) bool {
	return unix.Getppid() == pid && unix.Kill(pid, 0) == nil
}

// Scan looks for a group larger than the threshold and, if it finds one,
// stops and then kills every member. It returns the number of processes
// killed.
func (w *Watcher) Scan() (int, error) {
	procs, err := w.List()
	if err != nil {
		return 0, err
	}

	counts := map[string]int{}
	var bomb string
	for _, p := range procs {
		if slices.Contains(w.Exclude, p.PID) {
			continue
		}
		counts[p.Key]++
		if counts[p.Key] > w.Threshold {
			bomb = p.Key
			break
		}
	}
	if bomb == "" {
		return 0, nil
	}
	w.Log.Warn("process flood detected", "key", bomb, "threshold", w.Threshold)

	// Freeze the group until it stops growing, so nothing forks while
	// the members are being killed.
	var stopped []int
	seen := map[int]bool{}
	for prev := -1; ; {
		procs, err := w.List()
		if err != nil {
			return 0, err
		}
		n := 0
		for _, p := range procs {
			if p.Key != bomb || slices.Contains(w.Exclude, p.PID) {
				continue
			}
			n++
			if !seen[p.PID] {
				_ = w.Signal(p.PID, unix.SIGSTOP)
				seen[p.PID] = true
				stopped = append(stopped, p.PID)
			}
		}
		if n == prev {
			break
		}
		prev = n
	}

	for _, pid := range stopped {
		_ = w.Signal(pid, unix.SIGKILL)
	}
	w.Log.Warn("process flood suppressed", "key", bomb, "killed", len(stopped))
	return len(stopped), nil
}
