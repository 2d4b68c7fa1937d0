// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package syntax

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	l := NewLexer(strings.NewReader(src))
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("lex %q: %v", src, err)
		}
		toks = append(toks, tok)
		if tok.Kind == TokEOF {
			return toks
		}
	}
}

func TestLexOperators(t *testing.T) {
	got := lexAll(t, "a&&b||c|d;(e)<f>g")
	want := []Token{
		{Kind: TokWord, Text: "a", Line: 1},
		{Kind: TokOperator, Op: OpAnd, Line: 1},
		{Kind: TokWord, Text: "b", Line: 1},
		{Kind: TokOperator, Op: OpOr, Line: 1},
		{Kind: TokWord, Text: "c", Line: 1},
		{Kind: TokOperator, Op: OpPipe, Line: 1},
		{Kind: TokWord, Text: "d", Line: 1},
		{Kind: TokOperator, Op: OpSequence, Line: 1},
		{Kind: TokOperator, Op: OpSubshellOpen, Line: 1},
		{Kind: TokWord, Text: "e", Line: 1},
		{Kind: TokOperator, Op: OpSubshellClose, Line: 1},
		{Kind: TokOperator, Op: OpRedirectIn, Line: 1},
		{Kind: TokWord, Text: "f", Line: 1},
		{Kind: TokOperator, Op: OpRedirectOut, Line: 1},
		{Kind: TokWord, Text: "g", Line: 1},
		{Kind: TokEOF, Line: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestLexWordsAndLines(t *testing.T) {
	got := lexAll(t, "gcc -o out.bin main.c\t# build\n\ncp a,b@c:d/e+f%g^h!i_j x\n")
	want := []Token{
		{Kind: TokWord, Text: "gcc", Line: 1},
		{Kind: TokWord, Text: "-o", Line: 1},
		{Kind: TokWord, Text: "out.bin", Line: 1},
		{Kind: TokWord, Text: "main.c", Line: 1},
		{Kind: TokComment, Line: 1},
		{Kind: TokNewline, Line: 1},
		{Kind: TokNewline, Line: 2},
		{Kind: TokWord, Text: "cp", Line: 3},
		{Kind: TokWord, Text: "a,b@c:d/e+f%g^h!i_j", Line: 3},
		{Kind: TokWord, Text: "x", Line: 3},
		{Kind: TokNewline, Line: 3},
		{Kind: TokEOF, Line: 4},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestLexCommentHidesInvalidBytes(t *testing.T) {
	got := lexAll(t, "# $HOME & `rm` \"quoted\"\nls")
	if len(got) != 4 || got[0].Kind != TokComment || got[2].Text != "ls" {
		t.Errorf("unexpected tokens: %+v", got)
	}
}

func TestLexPipeAtEndOfInput(t *testing.T) {
	got := lexAll(t, "a |")
	if got[1].Kind != TokOperator || got[1].Op != OpPipe {
		t.Errorf("expected pipe, got %+v", got[1])
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ErrorKind
		line int
		msg  string
	}{
		{"single ampersand", "cmd1 & cmd2", Syntactic, 1, "single &"},
		{"ampersand at end", "a\nb &", Syntactic, 2, "single &"},
		{"dollar", "echo $x", Lexical, 1, "unsupported character"},
		{"quote on line 3", "a\n\necho 'x'", Lexical, 3, "unsupported character"},
		{"carriage return", "a\r\n", Lexical, 1, "unsupported character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLexer(strings.NewReader(tt.src))
			var err error
			for err == nil {
				var tok Token
				tok, err = l.Next()
				if err == nil && tok.Kind == TokEOF {
					t.Fatal("expected an error, reached end of input")
				}
			}
			var se *Error
			if !errors.As(err, &se) {
				t.Fatalf("expected *Error, got %T: %v", err, err)
			}
			if se.Kind != tt.kind || se.Line != tt.line || !strings.Contains(se.Msg, tt.msg) {
				t.Errorf("got %s error %q, want %s error on line %d containing %q", se.Kind, se, tt.kind, tt.line, tt.msg)
			}
		})
	}
}

func TestLexEOFIsSticky(t *testing.T) {
	l := NewLexer(strings.NewReader("x"))
	for i := 0; i < 3; i++ {
		if _, err := l.Next(); err != nil {
			t.Fatal(err)
		}
	}
	tok, err := l.Next()
	if err != nil || tok.Kind != TokEOF {
		t.Errorf("expected repeated EOF, got %+v, %v", tok, err)
	}
}
