// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"strings"

	"github.com/marcelocantos/ttsh/internal/syntax"
)

// Direction selects which side of a footprint to extract.
type Direction int

const (
	Inputs Direction = iota
	Outputs
)

// Footprint is the set of files a command is inferred to read and write.
// Both lists are deduplicated and keep first-seen order.
type Footprint struct {
	Inputs  []string
	Outputs []string
}

// FootprintOf extracts both directions of n's footprint.
func FootprintOf(n *syntax.Node) Footprint {
	return Footprint{
		Inputs:  Extract(n, Inputs),
		Outputs: Extract(n, Outputs),
	}
}

// Extract returns the files n reads (Inputs) or writes (Outputs).
//
// A simple command writes its output redirect. It reads its input redirect
// and every word that does not look like an option; this deliberately
// over-approximates, treating plain arguments (and the program name) as
// read dependencies.
func Extract(n *syntax.Node, dir Direction) []string {
	var s set
	s.extract(n, dir)
	return s.items
}

type set struct {
	items []string
}

func (s *set) add(p string) {
	for _, q := range s.items {
		if q == p {
			return
		}
	}
	s.items = append(s.items, p)
}

func (s *set) extract(n *syntax.Node, dir Direction) {
	switch {
	case n.Kind == syntax.Simple:
		if dir == Outputs {
			if n.Output != "" {
				s.add(n.Output)
			}
			return
		}
		if n.Input != "" {
			s.add(n.Input)
		}
		for _, w := range n.Words {
			if !strings.HasPrefix(w, "-") {
				s.add(w)
			}
		}
	case n.Kind == syntax.Subshell:
		s.extract(n.Body, dir)
	case n.Kind.IsBinary():
		s.extract(n.Left, dir)
		s.extract(n.Right, dir)
	}
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
