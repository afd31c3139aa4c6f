package pipe

import (
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/friendlypipe/pkg/graph"
)

// Resolver is the traversal context shared by the bundle nodes. It carries
// no per-call state; visited sets live for one call only.
type Resolver struct {
	// Root is searched when a nested graph lost its owner back-reference.
	Root *graph.Graph

	logger      *log.Logger
	maxDepth    int
	searchDepth int
}

// Container returns the node owning g, or nil for a root graph or when the
// owner cannot be located.
func (r *Resolver) Container(g *graph.Graph) *graph.Node {
	if g == nil {
		return nil
	}
	if c := g.Owner(); c != nil {
		return c
	}
	if r.Root == nil || r.Root == g {
		return nil
	}
	c, ok := graph.FindContainer(r.Root, g, r.searchDepth)
	if !ok {
		r.logger.Debug("container not found", "graph", g.ID)
		return nil
	}
	return c
}

// ResolveInbound returns the real origin feeding input index of container,
// following enclosing boundaries upward as long as the feeding link itself
// starts at a boundary. It returns false when the input is unconnected or a
// container along the way cannot be located.
func (r *Resolver) ResolveInbound(container *graph.Node, index int) (Endpoint, bool) {
	for depth := 0; container != nil && depth <= r.maxDepth; depth++ {
		in := container.Input(index)
		if !in.Connected() {
			return Endpoint{}, false
		}
		g := container.Graph()
		if g == nil {
			return Endpoint{}, false
		}
		l, ok := g.Link(in.Link)
		if !ok {
			r.logger.Debug("inbound link not found", "container", container, "link", in.Link)
			return Endpoint{}, false
		}
		if !l.FromBoundary() {
			origin, ok := g.Node(l.OriginID)
			if !ok {
				return Endpoint{}, false
			}
			return Endpoint{Node: origin, Slot: l.OriginSlot}, true
		}
		container, index = r.Container(g), l.OriginSlot
	}
	return Endpoint{}, false
}

// ResolveOutbound returns the producers feeding output index of container
// from inside its nested graph: origins of links recorded on the boundary
// slot, origins of links targeting the output boundary at that index, and
// origins feeding output marker nodes with that index. Duplicates are
// dropped; the result may be empty.
func (r *Resolver) ResolveOutbound(container *graph.Node, index int) []Endpoint {
	sub := container.Subgraph()
	if sub == nil {
		return nil
	}

	var (
		out  []Endpoint
		seen []graph.LinkID
	)
	add := func(id graph.LinkID) {
		if slices.Contains(seen, id) {
			return
		}
		seen = append(seen, id)
		l, ok := sub.Link(id)
		if !ok || l.FromBoundary() {
			return
		}
		if n, ok := sub.Node(l.OriginID); ok {
			out = append(out, Endpoint{Node: n, Slot: l.OriginSlot})
		}
	}

	if index >= 0 && index < len(sub.Outputs) {
		for _, id := range sub.Outputs[index].LinkIDs {
			add(id)
		}
	}
	for _, l := range sub.Links().All() {
		if l.ToBoundary() && l.TargetSlot == index {
			add(l.ID)
		}
	}
	for _, n := range sub.Nodes() {
		if n.Kind == graph.KindBoundaryOut && n.BoundaryIndex() == index {
			if in := n.Input(0); in.Connected() {
				add(in.Link)
			}
		}
	}
	return out
}

// origin returns the real origin feeding input i of n, crossing the
// enclosing boundary when the link starts there.
func (r *Resolver) origin(n *graph.Node, i int) (Endpoint, bool) {
	in := n.Input(i)
	if !in.Connected() {
		return Endpoint{}, false
	}
	g := n.Graph()
	if g == nil {
		return Endpoint{}, false
	}
	l, ok := g.Link(in.Link)
	if !ok {
		r.logger.Debug("link not found", "node", n, "link", in.Link)
		return Endpoint{}, false
	}
	if l.FromBoundary() {
		return r.ResolveInbound(r.Container(g), l.OriginSlot)
	}
	origin, ok := g.Node(l.OriginID)
	if !ok {
		return Endpoint{}, false
	}
	return Endpoint{Node: origin, Slot: l.OriginSlot}, true
}

// originType returns the declared type of the output feeding input i of n.
func (r *Resolver) originType(n *graph.Node, i int) (Endpoint, string, bool) {
	ep, ok := r.origin(n, i)
	if !ok {
		return Endpoint{}, "", false
	}
	out := ep.Node.Output(ep.Slot)
	if out == nil {
		return Endpoint{}, "", false
	}
	return ep, out.Type, true
}
