// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package execute

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marcelocantos/ttsh/internal/syntax"
)

func parseOne(t *testing.T, src string) *syntax.Node {
	t.Helper()
	cmds, err := syntax.ParseString(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command in %q, got %d", src, len(cmds))
	}
	return cmds[0]
}

// run executes src in dir and returns the root node, stdout and stderr.
func run(t *testing.T, dir, src string) (*syntax.Node, string, string) {
	t.Helper()
	n := parseOne(t, src)
	var stdout, stderr bytes.Buffer
	e := &Executor{Stdin: strings.NewReader(""), Stdout: &stdout, Stderr: &stderr, Dir: dir}
	if err := e.Execute(context.Background(), n); err != nil {
		t.Fatalf("execute %q: %v", src, err)
	}
	if !n.Executed {
		t.Fatalf("root of %q has no status", src)
	}
	return n, stdout.String(), stderr.String()
}

func TestExecuteSimple(t *testing.T) {
	n, out, _ := run(t, t.TempDir(), "echo hello world")
	if out != "hello world\n" {
		t.Errorf("expected 'hello world', got %q", out)
	}
	if n.Status != 0 {
		t.Errorf("expected status 0, got %d", n.Status)
	}
}

func TestExecuteStatus(t *testing.T) {
	tests := []struct {
		src    string
		status int
		out    string
	}{
		{"true", 0, ""},
		{"false", 1, ""},
		{"false && echo skipped", 1, ""},
		{"true && echo ran", 0, "ran\n"},
		{"false || echo recovered", 0, "recovered\n"},
		{"true || echo skipped", 0, ""},
		{"false ; echo always", 0, "always\n"},
		{"echo first ; false", 1, "first\n"},
		{"false && echo no || echo yes", 0, "yes\n"},
		{"(false)", 1, ""},
		{"echo x | false", 1, ""},
		{"false | cat", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			n, out, _ := run(t, t.TempDir(), tt.src)
			if n.Status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, n.Status)
			}
			if out != tt.out {
				t.Errorf("expected output %q, got %q", tt.out, out)
			}
		})
	}
}

func TestExecuteSkippedBranchHasNoStatus(t *testing.T) {
	n, _, _ := run(t, t.TempDir(), "false && echo skipped")
	if n.Right.Executed {
		t.Error("right side of && should not have run")
	}
	if !n.Left.Executed || n.Left.Status != 1 {
		t.Errorf("left side should have status 1, got executed=%v status=%d", n.Left.Executed, n.Left.Status)
	}
}

func TestExecutePipeline(t *testing.T) {
	_, out, _ := run(t, t.TempDir(), "echo hello | tr a-z A-Z")
	if out != "HELLO\n" {
		t.Errorf("expected 'HELLO', got %q", out)
	}
}

func TestExecuteSubshellPipe(t *testing.T) {
	n, out, _ := run(t, t.TempDir(), "(echo a; echo b) | cat")
	if out != "a\nb\n" {
		t.Errorf("expected a and b, got %q", out)
	}
	if n.Status != 0 {
		t.Errorf("expected status 0, got %d", n.Status)
	}
}

func TestExecuteRedirects(t *testing.T) {
	dir := t.TempDir()
	run(t, dir, "echo hi > a.txt")
	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hi\n" {
		t.Errorf("expected file content 'hi', got %q", data)
	}

	_, out, _ := run(t, dir, "sort -r < a.txt")
	if out != "hi\n" {
		t.Errorf("expected 'hi' from redirected stdin, got %q", out)
	}

	run(t, dir, "cat < a.txt | tr a-z A-Z > b.txt")
	data, err = os.ReadFile(filepath.Join(dir, "b.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "HI\n" {
		t.Errorf("expected 'HI', got %q", data)
	}
}

func TestExecuteMissingInput(t *testing.T) {
	n, _, stderr := run(t, t.TempDir(), "cat < missing.txt")
	if n.Status != 1 {
		t.Errorf("expected status 1, got %d", n.Status)
	}
	if !strings.Contains(stderr, "missing.txt") {
		t.Errorf("expected diagnostic naming the file, got %q", stderr)
	}
}

func TestExecuteCommandNotFound(t *testing.T) {
	n, _, stderr := run(t, t.TempDir(), "no-such-command-ttsh")
	if n.Status != StatusNotFound {
		t.Errorf("expected status %d, got %d", StatusNotFound, n.Status)
	}
	if !strings.Contains(stderr, "command not found") {
		t.Errorf("expected 'command not found', got %q", stderr)
	}
}

func TestExecuteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := &Executor{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	if err := e.Execute(ctx, parseOne(t, "echo never")); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
