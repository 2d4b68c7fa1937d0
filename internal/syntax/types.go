// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package syntax

import "fmt"

// Operator identifies one of the command-language operators.
type Operator int

const (
	OpNone         Operator = iota
	OpSequence              // ;
	OpAnd                   // &&
	OpOr                    // ||
	OpPipe                  // |
	OpRedirectIn            // <
	OpRedirectOut           // >
	OpSubshellOpen          // (
	OpSubshellClose         // )
)

var opText = [...]string{
	OpNone:          "",
	OpSequence:      ";",
	OpAnd:           "&&",
	OpOr:            "||",
	OpPipe:          "|",
	OpRedirectIn:    "<",
	OpRedirectOut:   ">",
	OpSubshellOpen:  "(",
	OpSubshellClose: ")",
}

func (o Operator) String() string {
	if o >= 0 && int(o) < len(opText) {
		return opText[o]
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// threshold returns the merge threshold of an operator. Pending operators
// whose threshold is <= that of an incoming operator are reduced first.
func (o Operator) threshold() int {
	switch o {
	case OpSubshellOpen, OpSubshellClose:
		return 1
	case OpRedirectIn, OpRedirectOut:
		return 2
	case OpPipe:
		return 3
	case OpAnd, OpOr:
		return 4
	case OpSequence:
		return 5
	default:
		return 0
	}
}

func (o Operator) isRedirect() bool {
	return o == OpRedirectIn || o == OpRedirectOut
}

// kind maps a binary operator to the node kind it builds.
func (o Operator) kind() Kind {
	switch o {
	case OpSequence:
		return Sequence
	case OpAnd:
		return And
	case OpOr:
		return Or
	case OpPipe:
		return Pipe
	default:
		return Simple
	}
}

// TokenKind classifies a token.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokWord
	TokOperator
	TokNewline
	TokComment
)

func (k TokenKind) String() string {
	switch k {
	case TokEOF:
		return "end of file"
	case TokWord:
		return "word"
	case TokOperator:
		return "operator"
	case TokNewline:
		return "newline"
	case TokComment:
		return "comment"
	default:
		return fmt.Sprintf("token(%d)", int(k))
	}
}

// Token is one lexical element. Text is set for words only.
type Token struct {
	Kind TokenKind
	Op   Operator
	Text string
	Line int
}

// Kind is the node variant tag.
type Kind int

const (
	Simple Kind = iota
	Pipe
	Sequence
	And
	Or
	Subshell
)

func (k Kind) String() string {
	switch k {
	case Simple:
		return "simple"
	case Pipe:
		return "pipe"
	case Sequence:
		return "sequence"
	case And:
		return "and"
	case Or:
		return "or"
	case Subshell:
		return "subshell"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Operator returns the operator that joins the children of a binary kind.
func (k Kind) Operator() Operator {
	switch k {
	case Pipe:
		return OpPipe
	case Sequence:
		return OpSequence
	case And:
		return OpAnd
	case Or:
		return OpOr
	default:
		return OpNone
	}
}

// IsBinary reports whether nodes of this kind have Left and Right children.
func (k Kind) IsBinary() bool {
	return k == Pipe || k == Sequence || k == And || k == Or
}

// Node is a parsed command tree. Each node exclusively owns its children.
//
// Simple nodes use Words, Input and Output (empty means no redirect).
// Pipe, Sequence, And and Or use Left and Right. Subshell uses Body.
// Status is meaningful only once Executed is true.
type Node struct {
	Kind   Kind
	Words  []string
	Input  string
	Output string
	Left   *Node
	Right  *Node
	Body   *Node

	Executed bool
	Status   int
}

// SetStatus records the exit status of an executed command.
func (n *Node) SetStatus(status int) {
	n.Executed = true
	n.Status = status
}
