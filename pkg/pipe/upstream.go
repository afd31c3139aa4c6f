package pipe

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/matzehuels/friendlypipe/pkg/bundle"
	"github.com/matzehuels/friendlypipe/pkg/graph"
	"github.com/matzehuels/friendlypipe/pkg/observability"
)

type slotKey struct {
	graph *graph.Graph
	node  graph.NodeID
	slot  int
}

type upstreamWalk struct {
	visited mapset.Set[slotKey]
	steps   int
}

// FindOriginalSource walks backward from output slot of n through
// pass-through nodes and subgraph boundaries and returns the first producer
// or editor it reaches, or nil when the path dead-ends, loops, or exceeds
// the depth cap.
func (r *Resolver) FindOriginalSource(n *graph.Node, slot int) *graph.Node {
	w := &upstreamWalk{visited: mapset.NewThreadUnsafeSet[slotKey]()}
	found := r.walkUp(n, slot, w)
	if n != nil {
		observability.Traversal().OnResolve(n.Type, found != nil, w.steps)
	}
	return found
}

func (r *Resolver) walkUp(n *graph.Node, slot int, w *upstreamWalk) *graph.Node {
	for n != nil {
		if w.steps >= r.maxDepth {
			r.logger.Debug("upstream depth cap reached", "node", n, "steps", w.steps)
			return nil
		}
		w.steps++
		if !w.visited.Add(slotKey{n.Graph(), n.ID, slot}) {
			r.logger.Debug("upstream cycle", "node", n, "slot", slot)
			return nil
		}

		switch {
		case n.Kind == graph.KindProducer || n.Kind == graph.KindEditor:
			return n

		case n.Kind == graph.KindContainer:
			for _, ep := range r.ResolveOutbound(n, slot) {
				if found := r.walkUp(ep.Node, ep.Slot, w); found != nil {
					return found
				}
			}
			return nil

		case n.Kind == graph.KindBoundaryIn:
			ep, ok := r.ResolveInbound(r.Container(n.Graph()), n.BoundaryIndex())
			if !ok {
				return nil
			}
			n, slot = ep.Node, ep.Slot

		case IsPassThrough(n):
			ep, ok := r.origin(n, 0)
			if !ok {
				return nil
			}
			n, slot = ep.Node, ep.Slot

		default:
			in := slot
			if n.Input(in) == nil {
				in = 0
			}
			ep, ok := r.origin(n, in)
			if !ok {
				return nil
			}
			n, slot = ep.Node, ep.Slot
		}
	}
	return nil
}

// Resolution is the outcome of resolving a node's pipe input.
type Resolution struct {
	// Source is the producer or editor defining the bundle, or nil.
	Source *graph.Node
	State  SyncState
	// Pending reports that the link or its immediate origin is missing,
	// which happens while a workflow is still being restored. Callers keep
	// their last applied layout.
	Pending bool
}

// ResolveBundle resolves the bundle arriving at input of n.
//
// When the immediate origin is a consumer output typed as a bundle, the
// bundle is nested: the result is the provenance of that slot as recorded by
// the consumer's own source, looked up transitively. Otherwise the generic
// upstream walk decides.
func (r *Resolver) ResolveBundle(n *graph.Node, input int) Resolution {
	return r.resolveBundle(n, input, 0)
}

func (r *Resolver) resolveBundle(n *graph.Node, input int, depth int) Resolution {
	in := n.Input(input)
	if !in.Connected() {
		return Resolution{State: Disconnected}
	}
	g := n.Graph()
	if g == nil {
		return Resolution{State: Unresolved, Pending: true}
	}
	l, ok := g.Link(in.Link)
	if !ok {
		r.logger.Debug("pipe link not found", "node", n, "link", in.Link)
		return Resolution{State: Unresolved, Pending: true}
	}

	var ep Endpoint
	if l.FromBoundary() {
		ep, ok = r.ResolveInbound(r.Container(g), l.OriginSlot)
		if !ok {
			return Resolution{State: Unresolved}
		}
	} else {
		origin, found := g.Node(l.OriginID)
		if !found {
			r.logger.Debug("pipe origin not found", "node", n, "origin", l.OriginID)
			return Resolution{State: Unresolved, Pending: true}
		}
		ep = Endpoint{Node: origin, Slot: l.OriginSlot}
	}

	if src := r.resolveEndpoint(ep, depth); src != nil {
		return Resolution{Source: src, State: Resolved}
	}
	return Resolution{State: Unresolved}
}

// ResolveEndpoint returns the bundle source of the value leaving ep,
// applying the nested-bundle rule before the generic upstream walk.
func (r *Resolver) ResolveEndpoint(ep Endpoint) *graph.Node {
	return r.resolveEndpoint(ep, 0)
}

func (r *Resolver) resolveEndpoint(ep Endpoint, depth int) *graph.Node {
	if src := r.nestedSource(ep, depth); src != nil {
		return src
	}
	return r.FindOriginalSource(ep.Node, ep.Slot)
}

// nestedSource handles a consumer exposing one of its slots as a bundle: the
// consumer's own source knows which node produced the bundle in that slot.
func (r *Resolver) nestedSource(ep Endpoint, depth int) *graph.Node {
	ep = r.emitter(ep)
	if ep.Node == nil || ep.Node.Kind != graph.KindConsumer {
		return nil
	}
	out := ep.Node.Output(ep.Slot)
	if out == nil || out.Type != bundle.TypeName {
		return nil
	}
	if depth >= r.maxDepth {
		r.logger.Debug("nested bundle depth cap reached", "node", ep.Node)
		return nil
	}
	upstream := r.resolveBundle(ep.Node, 0, depth+1)
	owner, ok := layoutOwner(upstream.Source)
	if !ok {
		return nil
	}
	return owner.SlotSource(ep.Slot + 1)
}

// emitter follows ep through pass-through nodes, input markers and container
// outputs to the node that actually emits the value. It returns ep unchanged
// when no hop applies.
func (r *Resolver) emitter(ep Endpoint) Endpoint {
	seen := mapset.NewThreadUnsafeSet[slotKey]()
	for ep.Node != nil && seen.Cardinality() < r.maxDepth {
		if !seen.Add(slotKey{ep.Node.Graph(), ep.Node.ID, ep.Slot}) {
			break
		}
		var (
			next Endpoint
			ok   bool
		)
		switch {
		case ep.Node.Kind == graph.KindContainer:
			if eps := r.ResolveOutbound(ep.Node, ep.Slot); len(eps) > 0 {
				next, ok = eps[0], true
			}
		case ep.Node.Kind == graph.KindBoundaryIn:
			next, ok = r.ResolveInbound(r.Container(ep.Node.Graph()), ep.Node.BoundaryIndex())
		case IsPassThrough(ep.Node):
			next, ok = r.origin(ep.Node, 0)
		}
		if !ok {
			break
		}
		ep = next
	}
	return ep
}
