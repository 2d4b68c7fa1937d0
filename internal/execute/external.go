// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package execute

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"syscall"
)

// Conventional shell statuses for commands that never ran.
const (
	StatusNotExecutable = 126
	StatusNotFound      = 127
)

// SpawnError reports that the operating system refused to create a
// process. Unlike a non-zero exit status it aborts the whole run.
type SpawnError struct {
	Cmd string
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("%s: cannot create process: %v", e.Cmd, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// runExternal executes one program and waits for it. Failure to find or
// execute the program is reported on stderr and turned into the usual
// shell status; any other start failure is a *SpawnError.
func runExternal(name string, args []string, dir string, env []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		switch {
		case errors.Is(err, exec.ErrNotFound), errors.Is(err, exec.ErrDot):
			fmt.Fprintf(stderr, "ttsh: %s: command not found\n", name)
			return StatusNotFound, nil
		case errors.Is(err, fs.ErrNotExist):
			fmt.Fprintf(stderr, "ttsh: %s: no such file or directory\n", name)
			return StatusNotFound, nil
		case errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.ENOEXEC):
			fmt.Fprintf(stderr, "ttsh: %s: cannot execute\n", name)
			return StatusNotExecutable, nil
		}
		return 0, &SpawnError{Cmd: name, Err: err}
	}

	err := cmd.Wait()
	if cmd.ProcessState == nil {
		return 0, err
	}
	return ExitStatus(cmd.ProcessState), nil
}

// ExitStatus converts a finished process's state to a shell status:
// the exit code, or 128+signal for a process killed by a signal.
func ExitStatus(ps *os.ProcessState) int {
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return ps.ExitCode()
}
