// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package graph infers ordering constraints between top-level commands
// from the files they read and write.
//
// Commands are numbered in parse order and an edge only ever runs from a
// lower to a higher number, so every graph built here is acyclic.
package graph

import (
	"fmt"

	"github.com/marcelocantos/ttsh/internal/syntax"
)

// Node is one top-level command in the dependency graph.
type Node struct {
	Seq int // 1-based parse order
	Cmd *syntax.Node
	Footprint

	// Succ holds the arena indices of commands that must wait for this one.
	Succ     []int
	InDegree int
}

// Graph is an arena of nodes indexed by Seq-1.
type Graph struct {
	Nodes []*Node
}

// Units splits top-level sequences into separate commands. "a; b" runs b
// after a regardless of a's status, so the two halves only need ordering
// when their footprints conflict.
func Units(roots []*syntax.Node) []*syntax.Node {
	var units []*syntax.Node
	var walk func(n *syntax.Node)
	walk = func(n *syntax.Node) {
		if n.Kind == syntax.Sequence {
			walk(n.Left)
			walk(n.Right)
			return
		}
		units = append(units, n)
	}
	for _, r := range roots {
		walk(r)
	}
	return units
}

// Build numbers units in order and adds an edge from an earlier unit A to
// a later unit B when B reads what A writes, B writes what A reads, or both
// write the same file.
func Build(units []*syntax.Node) *Graph {
	g := &Graph{Nodes: make([]*Node, len(units))}
	for i, u := range units {
		g.Nodes[i] = &Node{Seq: i + 1, Cmd: u, Footprint: FootprintOf(u)}
	}

	for j, later := range g.Nodes {
		for _, earlier := range g.Nodes[:j] {
			if dependsOn(later, earlier) {
				earlier.Succ = append(earlier.Succ, j)
				later.InDegree++
			}
		}
	}
	return g
}

func dependsOn(b, a *Node) bool {
	return intersects(b.Inputs, a.Outputs) ||
		intersects(b.Outputs, a.Inputs) ||
		intersects(b.Outputs, a.Outputs)
}

// Edge is a "must finish before" constraint between two sequence numbers.
type Edge struct {
	From, To int
}

func (e Edge) String() string {
	return fmt.Sprintf("%d->%d", e.From, e.To)
}

// Edges lists every edge in the graph, ordered by source then target.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, n := range g.Nodes {
		for _, s := range n.Succ {
			edges = append(edges, Edge{From: n.Seq, To: g.Nodes[s].Seq})
		}
	}
	return edges
}
