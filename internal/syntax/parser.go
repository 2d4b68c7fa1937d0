// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package syntax

import (
	"errors"
	"io"
	"math"
	"strings"
)

// Parser reads top-level commands from a byte stream. A top-level command
// ends at a newline that leaves no operator waiting for an operand, or at
// end of input.
type Parser struct {
	lex *Lexer
}

// NewParser returns a parser reading from r.
func NewParser(r io.ByteScanner) *Parser {
	return &Parser{lex: NewLexer(r)}
}

// Next returns the next top-level command, or io.EOF when none remain.
func (p *Parser) Next() (*Node, error) {
	n, err := p.command(false)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, io.EOF
	}
	return n, nil
}

// Parse reads every top-level command from r. Nothing is returned unless
// the whole stream parses.
func Parse(r io.ByteScanner) ([]*Node, error) {
	p := NewParser(r)
	var cmds []*Node
	for {
		n, err := p.Next()
		if errors.Is(err, io.EOF) {
			return cmds, nil
		}
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, n)
	}
}

// ParseString parses a script held in memory.
func ParseString(s string) ([]*Node, error) {
	return Parse(strings.NewReader(s))
}

type pending struct {
	op   Operator
	line int
}

// frame holds the operator and operand stacks of one command or subshell.
type frame struct {
	ops      []pending
	operands []*Node
	word     *Node // simple command still collecting words
}

func (f *frame) expectOperand() bool {
	return len(f.operands) == len(f.ops)
}

func (f *frame) top() pending {
	return f.ops[len(f.ops)-1]
}

func (f *frame) push(n *Node) {
	f.operands = append(f.operands, n)
}

func (f *frame) pop() *Node {
	n := f.operands[len(f.operands)-1]
	f.operands = f.operands[:len(f.operands)-1]
	return n
}

// command parses one top-level command, or the body of a subshell when
// subshell is set. The lexer is the shared cursor: a nested call consumes
// through the matching ')' and the caller resumes after it. A nil node
// with a nil error means the input held no command.
func (p *Parser) command(subshell bool) (*Node, error) {
	f := &frame{}
	for {
		tok, err := p.lex.Next()
		if err != nil {
			return nil, err
		}

		switch tok.Kind {
		case TokWord:
			if f.word != nil {
				f.word.Words = append(f.word.Words, tok.Text)
				continue
			}
			if !f.expectOperand() {
				return nil, syntaxErr(tok.Line, "unexpected word %q after a complete command", tok.Text)
			}
			f.word = &Node{Kind: Simple, Words: []string{tok.Text}}
			f.push(f.word)

		case TokComment:
			f.word = nil
			if len(f.ops) > 0 && f.expectOperand() {
				return nil, syntaxErr(tok.Line, "comment cannot immediately follow operator %s", f.top().op)
			}

		case TokNewline:
			f.word = nil
			if f.expectOperand() {
				if len(f.ops) > 0 && f.top().op.isRedirect() {
					return nil, syntaxErr(tok.Line, "newline after redirect %s is not permitted", f.top().op)
				}
				// Blank line, or the command continues on the next line.
				continue
			}
			if subshell {
				if err := f.operator(OpSequence, tok.Line); err != nil {
					return nil, err
				}
				continue
			}
			return f.finish(tok.Line)

		case TokEOF:
			if subshell {
				return nil, syntaxErr(tok.Line, "unterminated subshell: expecting )")
			}
			return f.finish(tok.Line)

		case TokOperator:
			f.word = nil
			switch tok.Op {
			case OpSubshellOpen:
				if !f.expectOperand() {
					return nil, syntaxErr(tok.Line, "unexpected ( after a complete command")
				}
				body, err := p.command(true)
				if err != nil {
					return nil, err
				}
				f.push(&Node{Kind: Subshell, Body: body})

			case OpSubshellClose:
				if !subshell {
					return nil, syntaxErr(tok.Line, "encountered unexpected subshell close )")
				}
				n, err := f.finish(tok.Line)
				if err != nil {
					return nil, err
				}
				if n == nil {
					return nil, syntaxErr(tok.Line, "empty subshell")
				}
				return n, nil

			default:
				if err := f.operator(tok.Op, tok.Line); err != nil {
					return nil, err
				}
			}
		}
	}
}

// operator reduces every pending operator that merges at or below op's
// threshold, then pushes op.
func (f *frame) operator(op Operator, line int) error {
	if f.expectOperand() {
		return syntaxErr(line, "unexpected operator %s", op)
	}
	if err := f.reduce(op.threshold(), line); err != nil {
		return err
	}
	f.ops = append(f.ops, pending{op: op, line: line})
	return nil
}

func (f *frame) reduce(threshold, line int) error {
	for len(f.ops) > 0 && f.top().op.threshold() <= threshold {
		p := f.top()
		if len(f.operands) < 2 {
			return syntaxErr(line, "insufficient operands for %s", p.op)
		}
		f.ops = f.ops[:len(f.ops)-1]
		right := f.pop()
		left := f.pop()
		if p.op.isRedirect() {
			n, err := attachRedirect(p, left, right)
			if err != nil {
				return err
			}
			f.push(n)
			continue
		}
		f.push(&Node{Kind: p.op.kind(), Left: left, Right: right})
	}
	return nil
}

// finish fully reduces the frame. A single trailing ';' is dropped.
func (f *frame) finish(line int) (*Node, error) {
	if len(f.ops) > 0 && f.expectOperand() && f.top().op == OpSequence {
		f.ops = f.ops[:len(f.ops)-1]
	}
	if len(f.ops) == 0 && len(f.operands) == 0 {
		return nil, nil
	}
	if f.expectOperand() {
		return nil, syntaxErr(line, "incomplete command: missing operand after %s", f.top().op)
	}
	if err := f.reduce(math.MaxInt, line); err != nil {
		return nil, err
	}
	if len(f.ops) != 0 || len(f.operands) != 1 {
		return nil, syntaxErr(line, "incomplete command")
	}
	return f.operands[0], nil
}

func attachRedirect(p pending, target, path *Node) (*Node, error) {
	if path.Kind != Simple {
		return nil, syntaxErr(p.line, "expected a file name after redirect %s", p.op)
	}
	if len(path.Words) > 1 {
		return nil, syntaxErr(p.line, "run-on word after redirect %s %s: %q", p.op, path.Words[0], path.Words[1])
	}
	if target.Kind != Simple {
		return nil, syntaxErr(p.line, "redirect %s must follow a simple command, not a %s", p.op, target.Kind)
	}
	file := path.Words[0]
	switch p.op {
	case OpRedirectIn:
		if target.Input != "" {
			return nil, syntaxErr(p.line, "duplicate input redirect < %s", file)
		}
		if target.Output != "" {
			return nil, syntaxErr(p.line, "input redirect < %s cannot follow output redirect > %s", file, target.Output)
		}
		target.Input = file
	case OpRedirectOut:
		if target.Output != "" {
			return nil, syntaxErr(p.line, "duplicate output redirect > %s", file)
		}
		target.Output = file
	}
	return target, nil
}
