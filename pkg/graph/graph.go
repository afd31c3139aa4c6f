package graph

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
)

var (
	// ErrDuplicateNode is returned by [Graph.Add] when a node with the same
	// id already exists in the graph.
	ErrDuplicateNode = errors.New("duplicate node ID")

	// ErrUnknownNode is returned when an operation names a node that is not
	// part of the graph.
	ErrUnknownNode = errors.New("unknown node")

	// ErrSlotOutOfRange is returned when a slot index does not exist on the
	// node it is applied to.
	ErrSlotOutOfRange = errors.New("slot index out of range")

	// ErrUnknownType is returned by [Graph.Create] when no definition is
	// registered for the requested node type.
	ErrUnknownType = errors.New("unknown node type")

	// ErrNoRegistry is returned by [Graph.Create] on graphs built without a
	// registry.
	ErrNoRegistry = errors.New("graph has no registry")
)

// BoundarySlot describes one input or output of a subgraph definition.
type BoundarySlot struct {
	Name string
	Type string

	// LinkIDs lists the nested-graph links attached to the slot, when the
	// workflow records them.
	LinkIDs []LinkID
}

// Graph is an editor graph: nodes, the links between them and, for nested
// graphs, the container node that owns it.
//
// The zero value is not usable; use [New] for root graphs and [NewSubgraph]
// for nested ones. Graph is not safe for concurrent use. Hosts serialize all
// mutation and callbacks onto one goroutine.
type Graph struct {
	ID   string
	Name string

	// Inputs and Outputs are the boundary slots of a subgraph definition.
	Inputs  []BoundarySlot
	Outputs []BoundarySlot

	// Extra keeps top-level workflow fields the graph does not interpret.
	Extra map[string]any

	nodes      map[NodeID]*Node
	links      LinkStore
	owner      *Node
	registry   *Registry
	lastNodeID NodeID
	lastLinkID LinkID
}

// New creates an empty root graph with an array-like link store.
// reg may be nil for graphs that only hold plain nodes.
func New(reg *Registry) *Graph {
	return newGraph(reg, NewLinkList())
}

// NewSubgraph creates an empty nested graph with an associative link store.
// An empty id is replaced by a fresh UUID.
func NewSubgraph(reg *Registry, id string) *Graph {
	g := newGraph(reg, NewLinkMap())
	if id == "" {
		id = uuid.NewString()
	}
	g.ID = id
	return g
}

func newGraph(reg *Registry, links LinkStore) *Graph {
	return &Graph{
		Extra:    map[string]any{},
		nodes:    make(map[NodeID]*Node),
		links:    links,
		registry: reg,
	}
}

// Registry returns the node registry used by [Graph.Create].
func (g *Graph) Registry() *Registry { return g.registry }

// Owner returns the container node whose subgraph g is, or nil for a root
// graph or a nested graph whose back-reference was never set.
func (g *Graph) Owner() *Node { return g.owner }

// Links returns the graph's link store.
func (g *Graph) Links() LinkStore { return g.links }

// LastNodeID returns the highest node id allocated so far.
func (g *Graph) LastNodeID() NodeID { return g.lastNodeID }

// LastLinkID returns the highest link id allocated so far.
func (g *Graph) LastLinkID() LinkID { return g.lastLinkID }

// SetLastIDs raises the id counters to at least the given values, so ids
// allocated afterwards do not collide with persisted ones.
func (g *Graph) SetLastIDs(node NodeID, link LinkID) {
	g.lastNodeID = max(g.lastNodeID, node)
	g.lastLinkID = max(g.lastLinkID, link)
}

// Node returns the node with the given id. Negative sentinel ids and unknown
// ids return false.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	if id < 0 {
		return nil, false
	}
	n, ok := g.nodes[id]
	return n, ok
}

// Link returns the link with the given id.
func (g *Graph) Link(id LinkID) (*Link, bool) {
	if id <= 0 {
		return nil, false
	}
	return g.links.Get(id)
}

// Nodes returns all nodes sorted by id.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, id := range slices.Sorted(maps.Keys(g.nodes)) {
		out = append(out, g.nodes[id])
	}
	return out
}

// NodeCount returns the number of nodes in the graph, excluding nested ones.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// Add inserts n into the graph. A zero id is replaced by the next free id.
// Properties and Extra are initialized when nil, and a structural Kind is
// derived from the type name when n.Kind is still KindOpaque.
func (g *Graph) Add(n *Node) error {
	if n.ID == 0 {
		n.ID = g.lastNodeID + 1
	}
	if n.ID < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownNode, n.ID)
	}
	if _, exists := g.nodes[n.ID]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateNode, n.ID)
	}
	if n.Properties == nil {
		n.Properties = Metadata{}
	}
	if n.Extra == nil {
		n.Extra = map[string]any{}
	}
	if n.Kind == KindOpaque {
		n.Kind = KindOf(n.Type)
	}
	if n.subgraph != nil {
		n.Kind = KindContainer
	}
	n.graph = g
	g.nodes[n.ID] = n
	g.lastNodeID = max(g.lastNodeID, n.ID)
	return nil
}

// Create builds a node of a registered type, adds it to the graph under the
// next free id and runs its creation hook.
func (g *Graph) Create(typ string) (*Node, error) {
	return g.CreateAt(0, typ)
}

// CreateAt is like [Graph.Create] but uses the given id. A zero id picks the
// next free one.
func (g *Graph) CreateAt(id NodeID, typ string) (*Node, error) {
	if g.registry == nil {
		return nil, ErrNoRegistry
	}
	def, ok := g.registry.Lookup(typ)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	n := def.instantiate(id)
	if err := g.Add(n); err != nil {
		return nil, err
	}
	if def.Factory != nil {
		n.Handler = def.Factory(n)
	}
	if c, ok := n.Handler.(Creator); ok {
		c.OnNodeCreated()
	}
	return n, nil
}

// Remove deletes n and every link touching it.
func (g *Graph) Remove(n *Node) {
	if n == nil || g.nodes[n.ID] != n {
		return
	}
	for i, in := range n.Inputs {
		if in.Connected() {
			g.Disconnect(n, i)
		}
	}
	for _, out := range n.Outputs {
		for _, id := range slices.Clone(out.Links) {
			g.RemoveLink(id)
		}
	}
	delete(g.nodes, n.ID)
	n.graph = nil
}

// Connect links output oslot of origin to input tslot of target. An existing
// link into the target input is replaced. Both endpoints are notified.
func (g *Graph) Connect(origin *Node, oslot int, target *Node, tslot int) (*Link, error) {
	if err := g.checkMember(origin); err != nil {
		return nil, err
	}
	out := origin.Output(oslot)
	if out == nil {
		return nil, fmt.Errorf("%w: output %d of %s", ErrSlotOutOfRange, oslot, origin)
	}
	l := &Link{OriginID: origin.ID, OriginSlot: oslot, Type: out.Type}
	if err := g.attachTarget(l, target, tslot); err != nil {
		return nil, err
	}
	out.Links = append(out.Links, l.ID)

	notifyConnection(target, DirInput, tslot, true, l)
	notifyConnection(origin, DirOutput, oslot, true, l)
	return l, nil
}

// ConnectFromBoundary links input index of the enclosing container to input
// tslot of target. The link origin is [BoundaryInputID].
func (g *Graph) ConnectFromBoundary(index int, target *Node, tslot int) (*Link, error) {
	typ := TypeAny
	if index >= 0 && index < len(g.Inputs) {
		typ = g.Inputs[index].Type
	}
	l := &Link{OriginID: BoundaryInputID, OriginSlot: index, Type: typ}
	if err := g.attachTarget(l, target, tslot); err != nil {
		return nil, err
	}
	if index >= 0 && index < len(g.Inputs) {
		g.Inputs[index].LinkIDs = append(g.Inputs[index].LinkIDs, l.ID)
	}
	notifyConnection(target, DirInput, tslot, true, l)
	return l, nil
}

// ConnectToBoundary links output oslot of origin to output index of the
// enclosing container. The link target is [BoundaryOutputID].
func (g *Graph) ConnectToBoundary(origin *Node, oslot int, index int) (*Link, error) {
	if err := g.checkMember(origin); err != nil {
		return nil, err
	}
	out := origin.Output(oslot)
	if out == nil {
		return nil, fmt.Errorf("%w: output %d of %s", ErrSlotOutOfRange, oslot, origin)
	}
	l := &Link{
		ID:         g.nextLinkID(),
		OriginID:   origin.ID,
		OriginSlot: oslot,
		TargetID:   BoundaryOutputID,
		TargetSlot: index,
		Type:       out.Type,
	}
	g.links.Put(l)
	out.Links = append(out.Links, l.ID)
	if index >= 0 && index < len(g.Outputs) {
		g.Outputs[index].LinkIDs = append(g.Outputs[index].LinkIDs, l.ID)
	}
	notifyConnection(origin, DirOutput, oslot, true, l)
	return l, nil
}

func (g *Graph) attachTarget(l *Link, target *Node, tslot int) error {
	if err := g.checkMember(target); err != nil {
		return err
	}
	in := target.Input(tslot)
	if in == nil {
		return fmt.Errorf("%w: input %d of %s", ErrSlotOutOfRange, tslot, target)
	}
	if in.Connected() {
		g.Disconnect(target, tslot)
	}
	l.ID = g.nextLinkID()
	l.TargetID = target.ID
	l.TargetSlot = tslot
	g.links.Put(l)
	in.Link = l.ID
	return nil
}

func (g *Graph) checkMember(n *Node) error {
	if n == nil || g.nodes[n.ID] != n {
		return fmt.Errorf("%w: %s", ErrUnknownNode, n)
	}
	return nil
}

func (g *Graph) nextLinkID() LinkID {
	g.lastLinkID++
	return g.lastLinkID
}

// PutLink stores l as-is without touching slot references or running hooks.
// Loaders use it to restore persisted links; the slot side is restored from
// the persisted slots.
func (g *Graph) PutLink(l *Link) {
	g.links.Put(l)
	g.lastLinkID = max(g.lastLinkID, l.ID)
}

// Disconnect removes the link feeding input tslot of target and reports
// whether there was one.
func (g *Graph) Disconnect(target *Node, tslot int) bool {
	in := target.Input(tslot)
	if !in.Connected() {
		return false
	}
	if !g.RemoveLink(in.Link) {
		// Dangling reference; clear it anyway.
		in.Link = NoLink
	}
	return true
}

// RemoveLink deletes a link, clears the slot references on both endpoints
// and notifies them. It reports whether the link existed.
func (g *Graph) RemoveLink(id LinkID) bool {
	l, ok := g.Link(id)
	if !ok {
		return false
	}
	g.links.Delete(id)
	g.dropBoundaryLink(l)

	target, _ := g.Node(l.TargetID)
	if in := target.inputOrNil(l.TargetSlot); in != nil && in.Link == id {
		in.Link = NoLink
	}
	origin, _ := g.Node(l.OriginID)
	if out := origin.outputOrNil(l.OriginSlot); out != nil {
		out.Links = slices.DeleteFunc(out.Links, func(x LinkID) bool { return x == id })
	}

	notifyConnection(target, DirInput, l.TargetSlot, false, l)
	notifyConnection(origin, DirOutput, l.OriginSlot, false, l)
	return true
}

func (g *Graph) dropBoundaryLink(l *Link) {
	drop := func(slots []BoundarySlot, i int) {
		if i >= 0 && i < len(slots) {
			slots[i].LinkIDs = slices.DeleteFunc(slots[i].LinkIDs, func(x LinkID) bool { return x == l.ID })
		}
	}
	if l.FromBoundary() {
		drop(g.Inputs, l.OriginSlot)
	}
	if l.ToBoundary() {
		drop(g.Outputs, l.TargetSlot)
	}
}

func (n *Node) inputOrNil(i int) *Input {
	if n == nil {
		return nil
	}
	return n.Input(i)
}

func (n *Node) outputOrNil(i int) *Output {
	if n == nil {
		return nil
	}
	return n.Output(i)
}

func notifyConnection(n *Node, dir SlotDir, slot int, connected bool, l *Link) {
	if n == nil {
		return
	}
	if obs, ok := n.Handler.(ConnectionObserver); ok {
		obs.OnConnectionsChange(dir, slot, connected, l)
	}
}

// Walk calls fn for every node of g and of every nested graph, depth first
// in id order. Walking stops when fn returns false.
func (g *Graph) Walk(fn func(*Node) bool) {
	seen := make(map[*Graph]bool)
	g.walk(fn, seen)
}

func (g *Graph) walk(fn func(*Node) bool, seen map[*Graph]bool) bool {
	if seen[g] {
		return true
	}
	seen[g] = true
	for _, n := range g.Nodes() {
		if !fn(n) {
			return false
		}
		if sub := n.subgraph; sub != nil {
			if !sub.walk(fn, seen) {
				return false
			}
		}
	}
	return true
}

// StartExecution calls OnExecutionStart on every node of g and its nested
// graphs whose handler implements [ExecutionStarter], and returns how many
// were called.
func (g *Graph) StartExecution() int {
	n := 0
	g.Walk(func(node *Node) bool {
		if s, ok := node.Handler.(ExecutionStarter); ok {
			s.OnExecutionStart()
			n++
		}
		return true
	})
	return n
}

// FindContainer searches root and its nested graphs, at most maxDepth levels
// deep, for the container node owning g. It repairs a missing owner
// back-reference when found.
func FindContainer(root, g *Graph, maxDepth int) (*Node, bool) {
	if root == nil || g == nil {
		return nil, false
	}
	n, ok := findContainer(root, g, 0, maxDepth)
	if ok && g.owner == nil {
		g.owner = n
	}
	return n, ok
}

func findContainer(search, g *Graph, depth, maxDepth int) (*Node, bool) {
	if depth > maxDepth {
		return nil, false
	}
	for _, n := range search.Nodes() {
		sub := n.subgraph
		if sub == nil {
			continue
		}
		if sub == g {
			return n, true
		}
		if found, ok := findContainer(sub, g, depth+1, maxDepth); ok {
			return found, true
		}
	}
	return nil, false
}
