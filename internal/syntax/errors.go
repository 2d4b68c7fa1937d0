// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package syntax

import "fmt"

// ErrorKind distinguishes lexical from syntactic failures.
type ErrorKind int

const (
	Lexical ErrorKind = iota
	Syntactic
)

func (k ErrorKind) String() string {
	if k == Lexical {
		return "lexical"
	}
	return "syntax"
}

// Error is a fatal, line-numbered parse failure.
type Error struct {
	Kind ErrorKind
	Line int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Line, e.Msg)
}

func lexErr(line int, format string, args ...any) *Error {
	return &Error{Kind: Lexical, Line: line, Msg: fmt.Sprintf(format, args...)}
}

func syntaxErr(line int, format string, args ...any) *Error {
	return &Error{Kind: Syntactic, Line: line, Msg: fmt.Sprintf(format, args...)}
}
