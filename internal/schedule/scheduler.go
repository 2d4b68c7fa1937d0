// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package schedule runs the commands of a dependency graph concurrently,
// starting each one as soon as every command it depends on has finished.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcelocantos/ttsh/internal/graph"
	"github.com/marcelocantos/ttsh/internal/syntax"
)

// State is the lifecycle position of one graph node.
type State int

const (
	Pending State = iota // waiting for predecessors
	Ready                // all predecessors done, not yet started
	Running
	Done
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Done:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Process is a started command.
type Process interface {
	Pid() int
	// Wait blocks until the process terminates and returns its shell
	// status. A non-nil error means the status could not be collected.
	Wait() (int, error)
}

// Spawner starts one top-level command in its own process.
type Spawner interface {
	Spawn(ctx context.Context, cmd *syntax.Node) (Process, error)
}

// Observer receives command lifecycle events. Calls are made from the
// scheduling goroutine, one at a time.
type Observer interface {
	Started(seq int, cmd *syntax.Node)
	Finished(seq int, cmd *syntax.Node, status int, elapsed time.Duration)
}

// SpawnError reports a command whose process could not be created.
type SpawnError struct {
	Seq int
	Cmd string
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("command %d (%s): cannot create process: %v", e.Seq, e.Cmd, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Result summarises a completed run.
type Result struct {
	Status int   // status of the most recently completed command
	Ran    bool  // false if no command ran
	Order  []int // sequence numbers in completion order
}

// Scheduler drives a graph to completion.
type Scheduler struct {
	spawner  Spawner
	drain    bool
	log      *slog.Logger
	observer Observer
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDrain controls whether every termination already available is
// collected before new commands are started. When off, exactly one
// termination is handled per round.
func WithDrain(drain bool) Option {
	return func(s *Scheduler) { s.drain = drain }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

// New creates a scheduler that starts commands with spawner.
func New(spawner Spawner, opts ...Option) *Scheduler {
	s := &Scheduler{
		spawner:  spawner,
		drain:    true,
		log:      slog.New(slog.DiscardHandler),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type exit struct {
	idx    int
	status int
	err    error
}

// run holds the state of one Run call. It is owned by the scheduling
// goroutine; waiters only send on exits.
type run struct {
	*Scheduler
	g       *graph.Graph
	state   []State
	indeg   []int
	started []time.Time
	exits   chan exit
	running int
	res     Result
	err     error
}

// Run executes every node of g. A non-zero exit status is not an error:
// dependents still run. If a process cannot be created, or ctx is
// cancelled, no further commands are started; commands already running
// are waited for before Run returns the error.
func (s *Scheduler) Run(ctx context.Context, g *graph.Graph) (Result, error) {
	r := &run{
		Scheduler: s,
		g:         g,
		state:     make([]State, len(g.Nodes)),
		indeg:     make([]int, len(g.Nodes)),
		started:   make([]time.Time, len(g.Nodes)),
		exits:     make(chan exit, len(g.Nodes)),
	}
	for i, n := range g.Nodes {
		r.indeg[i] = n.InDegree
		if n.InDegree == 0 {
			r.state[i] = Ready
		}
	}

	for done := 0; done < len(g.Nodes); {
		if r.err == nil {
			if err := ctx.Err(); err != nil {
				s.log.Info("interrupted, waiting for running commands", "running", r.running)
				r.err = err
			} else {
				r.spawnReady(ctx)
			}
		}
		if r.running == 0 {
			if r.err == nil {
				r.err = errors.New("no runnable command: dependency cycle")
			}
			break
		}

		r.reap(<-r.exits)
		done++
		for s.drain && r.running > 0 && r.tryReap() {
			done++
		}
	}
	return r.res, r.err
}

// spawnReady starts every Ready node in parse order.
func (r *run) spawnReady(ctx context.Context) {
	for i, st := range r.state {
		if st != Ready {
			continue
		}
		n := r.g.Nodes[i]
		p, err := r.spawner.Spawn(ctx, n.Cmd)
		if err != nil {
			r.err = &SpawnError{Seq: n.Seq, Cmd: syntax.Format(n.Cmd), Err: err}
			r.log.Error("spawn failed", "seq", n.Seq, "err", err)
			return
		}
		r.state[i] = Running
		r.started[i] = time.Now()
		r.running++
		r.log.Debug("started", "seq", n.Seq, "pid", p.Pid(), "cmd", syntax.Format(n.Cmd))
		r.observer.Started(n.Seq, n.Cmd)

		go func() {
			status, err := p.Wait()
			r.exits <- exit{idx: i, status: status, err: err}
		}()
	}
}

func (r *run) tryReap() bool {
	select {
	case e := <-r.exits:
		r.reap(e)
		return true
	default:
		return false
	}
}

// reap marks a terminated node Done and releases its successors.
func (r *run) reap(e exit) {
	n := r.g.Nodes[e.idx]
	r.state[e.idx] = Done
	r.running--

	if e.err != nil {
		r.log.Error("wait failed", "seq", n.Seq, "err", e.err)
		if r.err == nil {
			r.err = fmt.Errorf("command %d: wait: %w", n.Seq, e.err)
		}
	}

	elapsed := time.Since(r.started[e.idx])
	n.Cmd.SetStatus(e.status)
	r.res.Status = e.status
	r.res.Ran = true
	r.res.Order = append(r.res.Order, n.Seq)
	r.log.Debug("finished", "seq", n.Seq, "status", e.status, "elapsed", elapsed)
	r.observer.Finished(n.Seq, n.Cmd, e.status, elapsed)

	for _, succ := range n.Succ {
		r.indeg[succ]--
		if r.indeg[succ] == 0 {
			r.state[succ] = Ready
		}
	}
}

type nopObserver struct{}

func (nopObserver) Started(int, *syntax.Node) {}
func (nopObserver) Finished(int, *syntax.Node, int, time.Duration) {}
