package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/marcelocantos/ttsh/internal/audit"
	"github.com/marcelocantos/ttsh/internal/config"
	"github.com/marcelocantos/ttsh/internal/execute"
	"github.com/marcelocantos/ttsh/internal/graph"
	"github.com/marcelocantos/ttsh/internal/metrics"
	"github.com/marcelocantos/ttsh/internal/schedule"
	"github.com/marcelocantos/ttsh/internal/syntax"
	"github.com/marcelocantos/ttsh/internal/watchdog"
)

// StatusInterrupted is returned when the run is cancelled by a signal.
const StatusInterrupted = 130

// Options describes one ttsh invocation.
type Options struct {
	Script     string
	Print      bool // -p: print command trees instead of running them
	TimeTravel bool // -t: run independent commands concurrently
	Overload   bool // -o: run under the process-flood watchdog

	Config *config.Config
	Log    *slog.Logger

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Spawner starts time-travel commands; nil re-executes this binary.
	Spawner schedule.Spawner
}

// Run executes a script and returns the process exit status: 0 when
// printing or when nothing ran, otherwise the status of the most recently
// completed top-level command.
func Run(ctx context.Context, o Options) int {
	o.defaults()

	roots, err := parseScript(o.Script)
	if err != nil {
		return resolveError(o.Stderr, o.Script, err)
	}
	o.Log.Debug("parsed script", "script", o.Script, "commands", len(roots))

	if o.Print {
		if err := printTrees(o.Stdout, roots); err != nil {
			return resolveError(o.Stderr, o.Script, err)
		}
		return 0
	}

	if o.Overload {
		guard, err := watchdog.Start(watchdog.Config{
			Interval:  o.Config.Watchdog.IntervalDuration(),
			Threshold: o.Config.Watchdog.Threshold,
			Priority:  o.Config.Watchdog.Priority,
			LogLevel:  o.Config.Log.SlogLevel(),
		}, o.Log)
		if err != nil {
			// The script still runs, just unguarded.
			fmt.Fprintf(o.Stderr, "ttsh: %v\n", err)
		} else {
			defer guard.Stop()
		}
	}

	rec := metrics.New()
	obs := observers{rec}
	if h := o.openHistory(); h != nil {
		obs = append(obs, h)
	}

	var res schedule.Result
	if o.TimeTravel {
		res, err = o.timeTravel(ctx, roots, rec, obs)
	} else {
		res, err = o.sequential(ctx, roots, obs)
	}

	if path := o.Config.Metrics.Textfile; path != "" {
		if err := rec.WriteTextfile(path); err != nil {
			o.Log.Warn("metrics textfile not written", "path", path, "err", err)
		}
	}

	if err != nil {
		return resolveError(o.Stderr, o.Script, err)
	}
	if !res.Ran {
		return 0
	}
	return res.Status
}

func (o *Options) defaults() {
	if o.Config == nil {
		o.Config = config.DefaultConfig()
	}
	if o.Log == nil {
		o.Log = slog.New(slog.DiscardHandler)
	}
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

func parseScript(path string) ([]*syntax.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open: %w", err)
	}
	defer f.Close()
	return syntax.Parse(bufio.NewReader(f))
}

func printTrees(w io.Writer, roots []*syntax.Node) error {
	for i, n := range roots {
		if _, err := fmt.Fprintf(w, "# %d\n", i+1); err != nil {
			return err
		}
		if err := syntax.Print(w, n); err != nil {
			return err
		}
	}
	return nil
}

// sequential runs each top-level command in this process, in order.
func (o *Options) sequential(ctx context.Context, roots []*syntax.Node, obs schedule.Observer) (schedule.Result, error) {
	e := &execute.Executor{Stdin: o.Stdin, Stdout: o.Stdout, Stderr: o.Stderr}
	var res schedule.Result
	for i, n := range roots {
		seq := i + 1
		obs.Started(seq, n)
		start := time.Now()
		if err := e.Execute(ctx, n); err != nil {
			return res, err
		}
		obs.Finished(seq, n, n.Status, time.Since(start))
		res.Status = n.Status
		res.Ran = true
		res.Order = append(res.Order, seq)
	}
	return res, nil
}

// timeTravel runs the script's dependency graph, one process per command.
func (o *Options) timeTravel(ctx context.Context, roots []*syntax.Node, rec *metrics.Recorder, obs schedule.Observer) (schedule.Result, error) {
	g := graph.Build(graph.Units(roots))
	for _, n := range g.Nodes {
		o.Log.Debug("command", "seq", n.Seq, "cmd", syntax.Format(n.Cmd), "inputs", n.Inputs, "outputs", n.Outputs)
	}
	edges := g.Edges()
	rec.Edges(len(edges))
	o.Log.Debug("dependency graph", "commands", len(g.Nodes), "edges", fmt.Sprint(edges))

	spawner := o.Spawner
	if spawner == nil {
		spawner = &schedule.ReexecSpawner{Stdin: o.Stdin, Stdout: o.Stdout, Stderr: o.Stderr}
	}
	s := schedule.New(spawner,
		schedule.WithDrain(o.Config.Scheduler.Drain),
		schedule.WithLogger(o.Log),
		schedule.WithObserver(obs),
	)
	return s.Run(ctx, g)
}

func (o *Options) openHistory() *history {
	if !o.Config.History.Enabled || o.Config.History.Path == "" {
		return nil
	}
	logger, err := audit.NewLogger(o.Config.History.Path)
	if err != nil {
		// Continue without history.
		o.Log.Warn("history disabled", "err", err)
		return nil
	}
	if broken := logger.Broken(); broken != "" {
		fmt.Fprintf(o.Stderr, "ttsh: history failed verification, moved to %s\n", broken)
	}
	cwd, err := os.Getwd()
	if err != nil {
		o.Log.Debug("working directory unknown, history entries will omit it", "err", err)
	}
	mode := "sequential"
	if o.TimeTravel {
		mode = "time-travel"
	}
	return &history{logger: logger, script: o.Script, mode: mode, cwd: cwd, log: o.Log}
}

// resolveError reports a fatal error on stderr and picks the exit status.
// Non-zero command statuses never reach here: they are data, not errors.
func resolveError(w io.Writer, script string, err error) int {
	var synErr *syntax.Error
	switch {
	case errors.As(err, &synErr):
		fmt.Fprintf(w, "ttsh: %s:%d: %s\n", script, synErr.Line, synErr.Msg)
		return 1
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(w, "ttsh: interrupted")
		return StatusInterrupted
	}

	var spawnErr *schedule.SpawnError
	var execErr *execute.SpawnError
	if errors.As(err, &spawnErr) || errors.As(err, &execErr) {
		fmt.Fprintf(w, "ttsh: %v\n", err)
		return 1
	}
	fmt.Fprintf(w, "ttsh: %s: %v\n", script, err)
	return 1
}
