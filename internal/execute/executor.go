// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package execute

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/marcelocantos/ttsh/internal/syntax"
)

// Executor runs a single command tree to completion. The zero value uses
// the process's own stdio, working directory and environment.
type Executor struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Dir    string
	Env    []string
}

// Execute runs n and records an exit status on every node it runs. The
// returned error is non-nil only when execution could not proceed (a
// process could not be created, or ctx was cancelled before a command
// started); non-zero exit statuses are not errors.
func (e *Executor) Execute(ctx context.Context, n *syntax.Node) error {
	_, err := e.run(ctx, n, e.stdin(), e.stdout())
	return err
}

func (e *Executor) run(ctx context.Context, n *syntax.Node, stdin io.Reader, stdout io.Writer) (int, error) {
	var (
		status int
		err    error
	)

	switch n.Kind {
	case syntax.Simple:
		status, err = e.simple(ctx, n, stdin, stdout)
	case syntax.Subshell:
		status, err = e.run(ctx, n.Body, stdin, stdout)
	case syntax.Sequence:
		if _, err = e.run(ctx, n.Left, stdin, stdout); err == nil {
			status, err = e.run(ctx, n.Right, stdin, stdout)
		}
	case syntax.And, syntax.Or:
		status, err = e.run(ctx, n.Left, stdin, stdout)
		if err == nil && (status == 0) == (n.Kind == syntax.And) {
			status, err = e.run(ctx, n.Right, stdin, stdout)
		}
	case syntax.Pipe:
		status, err = e.pipe(ctx, n, stdin, stdout)
	default:
		return 0, fmt.Errorf("unknown command kind %s", n.Kind)
	}
	if err != nil {
		return 0, err
	}

	n.SetStatus(status)
	return status, nil
}

// pipe runs both sides concurrently, joined by an OS pipe. The status of
// the pipeline is the status of its right side.
func (e *Executor) pipe(ctx context.Context, n *syntax.Node, stdin io.Reader, stdout io.Writer) (int, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return 0, &SpawnError{Cmd: "|", Err: err}
	}

	var (
		g      errgroup.Group
		status int
	)
	g.Go(func() error {
		// Close the write end so the reader sees EOF once the left side is done.
		defer w.Close()
		_, err := e.run(ctx, n.Left, stdin, w)
		return err
	})
	g.Go(func() error {
		defer r.Close()
		st, err := e.run(ctx, n.Right, r, stdout)
		status = st
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return status, nil
}

func (e *Executor) simple(ctx context.Context, n *syntax.Node, stdin io.Reader, stdout io.Writer) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	// Handle stdin redirect.
	if n.Input != "" {
		f, err := os.Open(e.path(n.Input))
		if err != nil {
			fmt.Fprintf(e.stderr(), "ttsh: %v\n", err)
			return 1, nil
		}
		defer f.Close()
		stdin = f
	}

	// Handle stdout redirect.
	if n.Output != "" {
		f, err := os.Create(e.path(n.Output))
		if err != nil {
			fmt.Fprintf(e.stderr(), "ttsh: %v\n", err)
			return 1, nil
		}
		defer f.Close()
		stdout = f
	}

	return runExternal(n.Words[0], n.Words[1:], e.Dir, e.Env, stdin, stdout, e.stderr())
}

func (e *Executor) path(p string) string {
	if e.Dir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(e.Dir, p)
}

func (e *Executor) stdin() io.Reader {
	if e.Stdin != nil {
		return e.Stdin
	}
	return os.Stdin
}

func (e *Executor) stdout() io.Writer {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stdout
}

func (e *Executor) stderr() io.Writer {
	if e.Stderr != nil {
		return e.Stderr
	}
	return os.Stderr
}
