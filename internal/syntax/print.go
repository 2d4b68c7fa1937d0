// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package syntax

import (
	"fmt"
	"io"
	"strings"
)

// Format renders n as a single line of source text. Parsing the result of
// Format on a parsed tree yields an equal tree: binary operators are left
// associative and already nest by merge threshold, so only subshells need
// parentheses.
func Format(n *Node) string {
	var sb strings.Builder
	format(&sb, n)
	return sb.String()
}

func format(sb *strings.Builder, n *Node) {
	switch {
	case n.Kind == Simple:
		sb.WriteString(strings.Join(n.Words, " "))
		if n.Input != "" {
			sb.WriteString(" < ")
			sb.WriteString(n.Input)
		}
		if n.Output != "" {
			sb.WriteString(" > ")
			sb.WriteString(n.Output)
		}
	case n.Kind == Subshell:
		sb.WriteString("( ")
		format(sb, n.Body)
		sb.WriteString(" )")
	case n.Kind.IsBinary():
		format(sb, n.Left)
		if n.Kind != Sequence {
			sb.WriteByte(' ')
		}
		sb.WriteString(n.Kind.Operator().String())
		sb.WriteByte(' ')
		format(sb, n.Right)
	}
}

// Print writes n in indented tree form, one operator per line.
func Print(w io.Writer, n *Node) error {
	var sb strings.Builder
	indented(&sb, 2, n)
	sb.WriteByte('\n')
	_, err := io.WriteString(w, sb.String())
	return err
}

func indented(sb *strings.Builder, indent int, n *Node) {
	pad := strings.Repeat(" ", indent)
	switch {
	case n.Kind.IsBinary():
		indented(sb, childIndent(indent, n, n.Left), n.Left)
		fmt.Fprintf(sb, " \\\n%s%s\n", pad, n.Kind.Operator())
		indented(sb, childIndent(indent, n, n.Right), n.Right)
	case n.Kind == Subshell:
		fmt.Fprintf(sb, "%s(\n", pad)
		indented(sb, indent+1, n.Body)
		fmt.Fprintf(sb, "\n%s)", pad)
	default:
		sb.WriteString(pad)
		sb.WriteString(strings.Join(n.Words, " "))
	}
	if n.Input != "" {
		fmt.Fprintf(sb, "<%s", n.Input)
	}
	if n.Output != "" {
		fmt.Fprintf(sb, ">%s", n.Output)
	}
}

// childIndent keeps chains of the same operator flush and indents the rest.
func childIndent(indent int, parent, child *Node) int {
	if child.Kind == parent.Kind {
		return indent
	}
	return indent + 2
}
