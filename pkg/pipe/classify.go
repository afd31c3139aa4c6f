package pipe

import "github.com/matzehuels/friendlypipe/pkg/graph"

// IsPassThrough reports whether n forwards its input to its output without
// changing bundle semantics: reroutes and primitives, subgraph boundary
// markers, and, as a structural fallback, any opaque node with exactly one
// input and one output. Bundle nodes are never pass-through, even when they
// happen to have a single slot on each side.
func IsPassThrough(n *graph.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case graph.KindPassThrough, graph.KindBoundaryIn, graph.KindBoundaryOut:
		return true
	case graph.KindOpaque:
		return len(n.Inputs) == 1 && len(n.Outputs) == 1
	default:
		return false
	}
}
