// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package syntax

import (
	"errors"
	"io"
	"strings"
)

// Lexer turns a byte stream into tokens. It reads one byte at a time and
// relies on a single byte of push-back to finish words and to tell & from
// && and | from ||.
type Lexer struct {
	r    io.ByteScanner
	line int
	done bool
}

// NewLexer returns a lexer positioned at line 1 of r.
func NewLexer(r io.ByteScanner) *Lexer {
	return &Lexer{r: r, line: 1}
}

// Line returns the current source line.
func (l *Lexer) Line() int { return l.line }

// Next returns the next token. Once the source is exhausted every call
// returns a TokEOF token.
func (l *Lexer) Next() (Token, error) {
	for {
		c, ok, err := l.read()
		if err != nil {
			return Token{}, err
		}
		if !ok {
			return Token{Kind: TokEOF, Line: l.line}, nil
		}

		switch {
		case c == ' ' || c == '\t':
			continue
		case c == '\n':
			tok := Token{Kind: TokNewline, Line: l.line}
			l.line++
			return tok, nil
		case c == '#':
			if err := l.skipComment(); err != nil {
				return Token{}, err
			}
			return Token{Kind: TokComment, Line: l.line}, nil
		case isWordByte(c):
			return l.word(c)
		case isOperatorByte(c):
			return l.operator(c)
		default:
			return Token{}, lexErr(l.line, "encountered unsupported character %q", c)
		}
	}
}

func (l *Lexer) read() (byte, bool, error) {
	if l.done {
		return 0, false, nil
	}
	c, err := l.r.ReadByte()
	if errors.Is(err, io.EOF) {
		l.done = true
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return c, true, nil
}

func (l *Lexer) unread() error {
	return l.r.UnreadByte()
}

// skipComment discards bytes up to, but not including, the next newline.
func (l *Lexer) skipComment() error {
	for {
		c, ok, err := l.read()
		if err != nil || !ok {
			return err
		}
		if c == '\n' {
			return l.unread()
		}
	}
}

func (l *Lexer) word(first byte) (Token, error) {
	var sb strings.Builder
	sb.WriteByte(first)
	for {
		c, ok, err := l.read()
		if err != nil {
			return Token{}, err
		}
		if !ok {
			break
		}
		if !isWordByte(c) {
			if err := l.unread(); err != nil {
				return Token{}, err
			}
			break
		}
		sb.WriteByte(c)
	}
	return Token{Kind: TokWord, Text: sb.String(), Line: l.line}, nil
}

func (l *Lexer) operator(c byte) (Token, error) {
	tok := Token{Kind: TokOperator, Line: l.line}
	switch c {
	case ';':
		tok.Op = OpSequence
	case '<':
		tok.Op = OpRedirectIn
	case '>':
		tok.Op = OpRedirectOut
	case '(':
		tok.Op = OpSubshellOpen
	case ')':
		tok.Op = OpSubshellClose
	case '&':
		next, ok, err := l.read()
		if err != nil {
			return Token{}, err
		}
		if !ok || next != '&' {
			return Token{}, syntaxErr(l.line, "syntax error on single &")
		}
		tok.Op = OpAnd
	case '|':
		next, ok, err := l.read()
		if err != nil {
			return Token{}, err
		}
		switch {
		case ok && next == '|':
			tok.Op = OpOr
		case ok:
			if err := l.unread(); err != nil {
				return Token{}, err
			}
			fallthrough
		default:
			tok.Op = OpPipe
		}
	}
	return tok, nil
}

func isWordByte(c byte) bool {
	switch {
	case c >= '0' && c <= '9', c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		return true
	}
	switch c {
	case '!', '%', '+', ',', '-', '.', '/', ':', '@', '^', '_':
		return true
	}
	return false
}

func isOperatorByte(c byte) bool {
	switch c {
	case ';', '&', '|', '(', ')', '<', '>':
		return true
	}
	return false
}
