// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package schedule

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/marcelocantos/ttsh/internal/execute"
	"github.com/marcelocantos/ttsh/internal/syntax"
)

// CommandEnv carries the canonical text of a command to a re-executed
// child. Its presence turns the binary into a single-command runner.
const CommandEnv = "TTSH_COMMAND"

// ReexecSpawner runs each command in a fresh copy of the current binary.
// The child receives the command as text in CommandEnv and must call
// ServeChild before doing anything else.
type ReexecSpawner struct {
	Path string   // defaults to os.Executable()
	Dir  string   // working directory; empty means the current one
	Env  []string // defaults to os.Environ()

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Spawn implements Spawner. ctx is not bound to the child: a command
// that has started always runs to completion.
func (s *ReexecSpawner) Spawn(ctx context.Context, cmd *syntax.Node) (Process, error) {
	path := s.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		path = exe
	}

	c := exec.Command(path)
	c.Dir = s.Dir
	c.Env = append(withoutCommandEnv(s.Env), CommandEnv+"="+syntax.Format(cmd))
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if s.Stdin != nil {
		c.Stdin = s.Stdin
	}
	if s.Stdout != nil {
		c.Stdout = s.Stdout
	}
	if s.Stderr != nil {
		c.Stderr = s.Stderr
	}
	if err := c.Start(); err != nil {
		return nil, err
	}
	return &process{cmd: c}, nil
}

func withoutCommandEnv(env []string) []string {
	if env == nil {
		env = os.Environ()
	}
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if !strings.HasPrefix(kv, CommandEnv+"=") {
			out = append(out, kv)
		}
	}
	return out
}

type process struct {
	cmd *exec.Cmd
}

func (p *process) Pid() int { return p.cmd.Process.Pid }

func (p *process) Wait() (int, error) {
	err := p.cmd.Wait()
	if p.cmd.ProcessState == nil {
		return 0, err
	}
	return execute.ExitStatus(p.cmd.ProcessState), nil
}

// ServeChild runs the command handed over in CommandEnv, if any. It
// reports false when the process is not a re-executed child; otherwise it
// returns the status the process should exit with.
func ServeChild() (int, bool) {
	src, ok := os.LookupEnv(CommandEnv)
	if !ok {
		return 0, false
	}
	// Commands run by this child must not inherit the handover.
	os.Unsetenv(CommandEnv)
	return serve(context.Background(), src, &execute.Executor{}), true
}

func serve(ctx context.Context, src string, e *execute.Executor) int {
	var stderr io.Writer = os.Stderr
	if e.Stderr != nil {
		stderr = e.Stderr
	}
	cmds, err := syntax.ParseString(src)
	if err != nil {
		fmt.Fprintf(stderr, "ttsh: child: %v\n", err)
		return 1
	}
	if len(cmds) != 1 {
		fmt.Fprintf(stderr, "ttsh: child: expected one command, got %d\n", len(cmds))
		return 1
	}
	if err := e.Execute(ctx, cmds[0]); err != nil {
		fmt.Fprintf(stderr, "ttsh: %v\n", err)
		return 1
	}
	return cmds[0].Status
}
