package graph

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrDanglingLink is reported by [Graph.Validate] for a link whose
	// origin or target node does not exist.
	ErrDanglingLink = errors.New("link endpoint does not exist")

	// ErrSlotMismatch is reported by [Graph.Validate] when a link and the
	// slots it connects disagree about each other.
	ErrSlotMismatch = errors.New("link and slot references disagree")
)

// Validate checks link consistency in g and every nested graph. It returns
// all problems joined into one error, or nil.
//
// Cycles are not errors: the editor permits them. Use [Graph.Cycles] to
// list them.
func (g *Graph) Validate() error {
	var errs []error
	seen := make(map[*Graph]bool)
	g.validate(&errs, seen)
	return errors.Join(errs...)
}

func (g *Graph) validate(errs *[]error, seen map[*Graph]bool) {
	if seen[g] {
		return
	}
	seen[g] = true

	for _, l := range g.links.All() {
		g.validateLink(l, errs)
	}
	for _, n := range g.Nodes() {
		for i, in := range n.Inputs {
			if !in.Connected() {
				continue
			}
			if l, ok := g.Link(in.Link); !ok || l.TargetID != n.ID || l.TargetSlot != i {
				*errs = append(*errs, fmt.Errorf("%w: %s input %d references link %d", ErrSlotMismatch, n.Path(), i, in.Link))
			}
		}
		if n.subgraph != nil {
			n.subgraph.validate(errs, seen)
		}
	}
}

func (g *Graph) validateLink(l *Link, errs *[]error) {
	if !l.FromBoundary() {
		origin, ok := g.Node(l.OriginID)
		switch {
		case !ok:
			*errs = append(*errs, fmt.Errorf("%w: link %d origin %d", ErrDanglingLink, l.ID, l.OriginID))
		case origin.Output(l.OriginSlot) == nil:
			*errs = append(*errs, fmt.Errorf("%w: link %d origin slot %d on %s", ErrSlotMismatch, l.ID, l.OriginSlot, origin.Path()))
		case !slices.Contains(origin.Outputs[l.OriginSlot].Links, l.ID):
			*errs = append(*errs, fmt.Errorf("%w: link %d missing from %s output %d", ErrSlotMismatch, l.ID, origin.Path(), l.OriginSlot))
		}
	}
	if !l.ToBoundary() {
		target, ok := g.Node(l.TargetID)
		switch {
		case !ok:
			*errs = append(*errs, fmt.Errorf("%w: link %d target %d", ErrDanglingLink, l.ID, l.TargetID))
		case target.Input(l.TargetSlot) == nil:
			*errs = append(*errs, fmt.Errorf("%w: link %d target slot %d on %s", ErrSlotMismatch, l.ID, l.TargetSlot, target.Path()))
		case target.Inputs[l.TargetSlot].Link != l.ID:
			*errs = append(*errs, fmt.Errorf("%w: %s input %d does not reference link %d", ErrSlotMismatch, target.Path(), l.TargetSlot, l.ID))
		}
	}
}

// Cycles returns the directed cycles of g, each as the node ids along the
// cycle starting from the node where it was detected. Nested graphs are not
// included.
func (g *Graph) Cycles() [][]NodeID {
	const (
		white = iota
		gray
		black
	)

	out := make(map[NodeID][]NodeID)
	for _, l := range g.links.All() {
		if l.FromBoundary() || l.ToBoundary() {
			continue
		}
		if !slices.Contains(out[l.OriginID], l.TargetID) {
			out[l.OriginID] = append(out[l.OriginID], l.TargetID)
		}
	}

	color := make(map[NodeID]int, len(g.nodes))
	var (
		stack  []NodeID
		cycles [][]NodeID
	)

	var dfs func(id NodeID)
	dfs = func(id NodeID) {
		color[id] = gray
		stack = append(stack, id)
		for _, next := range out[id] {
			switch color[next] {
			case white:
				dfs(next)
			case gray:
				start := slices.Index(stack, next)
				cycles = append(cycles, slices.Clone(stack[start:]))
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
	}

	for _, n := range g.Nodes() {
		if color[n.ID] == white {
			dfs(n.ID)
		}
	}
	return cycles
}
