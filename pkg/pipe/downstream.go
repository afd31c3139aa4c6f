package pipe

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/matzehuels/friendlypipe/pkg/graph"
	"github.com/matzehuels/friendlypipe/pkg/observability"
)

type nodeKey struct {
	graph *graph.Graph
	node  graph.NodeID
}

func keyOf(n *graph.Node) nodeKey { return nodeKey{n.Graph(), n.ID} }

type downstreamWalk struct {
	visited   mapset.Set[nodeKey]
	resynced  int
	truncated bool
}

// NotifyDownstream resyncs every consumer and editor reachable from output
// slot of n, across pass-through nodes, bundle nodes carrying nested
// bundles, and subgraph boundaries in both directions. Each node is resynced at most once per call;
// n itself is never resynced.
func (r *Resolver) NotifyDownstream(n *graph.Node, slot int) {
	if n == nil {
		return
	}
	w := &downstreamWalk{visited: mapset.NewThreadUnsafeSet[nodeKey]()}
	w.visited.Add(keyOf(n))
	r.notify(n, slot, 0, w)
	observability.Traversal().OnNotify(w.visited.Cardinality()-1, w.resynced, w.truncated)
	if w.truncated {
		r.logger.Debug("downstream depth cap reached", "node", n)
	}
}

func (r *Resolver) notify(n *graph.Node, slot, depth int, w *downstreamWalk) {
	if n == nil {
		return
	}
	if depth >= r.maxDepth {
		w.truncated = true
		return
	}
	out := n.Output(slot)
	g := n.Graph()
	if out == nil || g == nil {
		return
	}
	for _, id := range slices.Clone(out.Links) {
		l, ok := g.Link(id)
		if !ok {
			continue
		}
		if l.ToBoundary() {
			r.notify(r.Container(g), l.TargetSlot, depth+1, w)
			continue
		}
		t, ok := g.Node(l.TargetID)
		if !ok {
			continue
		}
		r.visit(t, l.TargetSlot, depth, w)
	}
}

// visit resyncs t, reached through its input tslot, and continues past it.
func (r *Resolver) visit(t *graph.Node, tslot, depth int, w *downstreamWalk) {
	if !w.visited.Add(keyOf(t)) {
		return
	}
	r.advance(t, tslot, depth, w)
}

// advance resyncs t and continues the walk from its outputs. t must already
// be marked visited.
func (r *Resolver) advance(t *graph.Node, tslot, depth int, w *downstreamWalk) {
	if rs, ok := t.Handler.(Resyncable); ok {
		rs.Resync()
		w.resynced++
	}

	switch {
	case t.Kind == graph.KindBoundaryOut:
		r.notify(r.Container(t.Graph()), t.BoundaryIndex(), depth+1, w)
	case t.Kind == graph.KindContainer:
		r.enterContainer(t, tslot, depth+1, w)
	case t.Kind == graph.KindEditor, IsPassThrough(t):
		r.notify(t, 0, depth+1, w)
	case t.Kind == graph.KindConsumer:
		for i := range t.Outputs {
			r.notify(t, i, depth+1, w)
		}
	case t.Kind == graph.KindProducer:
		// A producer fed with a bundle carries it nested in one of its slots.
		if owner, ok := layoutOwner(t); ok {
			owner.RefreshTypes()
		}
		r.notify(t, 0, depth+1, w)
	}
}

// enterContainer continues the walk inside the nested graph of c from its
// input index, then resyncs the remaining bundle nodes of that graph and
// continues past them, so that none of them, and nothing they feed, keeps a
// layout computed before the change. c is visited once per walk, so nodes
// behind its other inputs are only reached by this second pass.
func (r *Resolver) enterContainer(c *graph.Node, index, depth int, w *downstreamWalk) {
	sub := c.Subgraph()
	if sub == nil {
		return
	}
	if depth >= r.maxDepth {
		w.truncated = true
		return
	}
	for _, m := range sub.Nodes() {
		if m.Kind != graph.KindBoundaryIn || m.BoundaryIndex() != index {
			continue
		}
		w.visited.Add(keyOf(m))
		r.notify(m, 0, depth+1, w)
	}
	for _, l := range sub.Links().All() {
		if !l.FromBoundary() || l.OriginSlot != index {
			continue
		}
		if t, ok := sub.Node(l.TargetID); ok {
			r.visit(t, l.TargetSlot, depth, w)
		}
	}
	for _, m := range sub.Nodes() {
		if _, ok := m.Handler.(Resyncable); !ok || !w.visited.Add(keyOf(m)) {
			continue
		}
		r.advance(m, 0, depth, w)
	}
}
