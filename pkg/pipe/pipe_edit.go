package pipe

import (
	"strings"

	"github.com/matzehuels/friendlypipe/pkg/bundle"
	"github.com/matzehuels/friendlypipe/pkg/graph"
	"github.com/matzehuels/friendlypipe/pkg/observability"
)

// PipeEdit is the FriendlyPipeEdit behavior. It mirrors the incoming bundle
// on exposed inputs, where a connection overrides that slot, and appends its
// own slots after the incoming ones.
//
// Inputs are laid out as: the pipe at index 0, incoming slots 1..k as
// incoming_slot_N, then own slots as slot_N.
type PipeEdit struct {
	ext   *Extension
	node  *graph.Node
	slots *ownSlots

	incoming        Layout
	overrideTypes   map[int]string
	overrideSources map[int]*graph.Node
	state           SyncState
	rebuilding      bool
}

func newPipeEdit(e *Extension, n *graph.Node) *PipeEdit {
	p := &PipeEdit{
		ext:             e,
		node:            n,
		incoming:        NewLayout(0),
		overrideTypes:   map[int]string{},
		overrideSources: map[int]*graph.Node{},
		state:           Disconnected,
	}
	p.slots = newOwnSlots(n, 0, e.opts.MaxSlots, func() int { return 1 + p.incoming.Count })
	return p
}

// Node returns the node p is attached to.
func (p *PipeEdit) Node() *graph.Node { return p.node }

// State returns the outcome of the last resync.
func (p *PipeEdit) State() SyncState { return p.state }

// SlotCount returns the number of own slots.
func (p *PipeEdit) SlotCount() int { return p.slots.count }

// IncomingCount returns the number of slots of the incoming bundle.
func (p *PipeEdit) IncomingCount() int { return p.incoming.Count }

// TotalSlotCount returns the number of slots the node emits.
func (p *PipeEdit) TotalSlotCount() int { return p.incoming.Count + p.slots.count }

// Incoming returns the layout last received from upstream.
func (p *PipeEdit) Incoming() Layout { return p.incoming.Clone() }

func (p *PipeEdit) OnNodeCreated() {
	p.slots.install(func(i int, name string) { p.RenameSlot(i, name) },
		func() { p.AddSlot() },
		func() { p.RemoveSlot() })
	p.resize()
}

// AddSlot appends an own slot with a default name.
func (p *PipeEdit) AddSlot() bool {
	if !p.slots.add() {
		return false
	}
	p.changed()
	return true
}

// RemoveSlot removes the last own slot. All own slots may be removed.
func (p *PipeEdit) RemoveSlot() bool {
	if !p.slots.remove() {
		return false
	}
	p.changed()
	return true
}

// RenameSlot sets the display name of own slot i.
func (p *PipeEdit) RenameSlot(i int, name string) bool {
	if !p.slots.setName(i, name) {
		return false
	}
	p.changed()
	return true
}

func (p *PipeEdit) changed() {
	p.resize()
	p.ext.resolver.NotifyDownstream(p.node, 0)
	p.ext.opts.Host.SetDirtyCanvas(true, true)
}

func (p *PipeEdit) resize() { p.node.SetSize(p.node.ComputeSize()) }

// Layout returns the combined layout: incoming slots first, with overrides
// from connected exposed inputs applied, then the own slots.
func (p *PipeEdit) Layout() Layout {
	k := p.incoming.Count
	l := NewLayout(k + p.slots.count)
	for i := 1; i <= k; i++ {
		l.Names[i] = p.incoming.Name(i)
		typ, src := p.incoming.Types[i], p.incoming.Sources[i]
		if t, ok := p.overrideTypes[i]; ok {
			typ, src = t, p.overrideSources[i]
		}
		if typ != "" {
			l.Types[i] = typ
		}
		if src != nil {
			l.Sources[i] = src
		}
	}
	for i := 1; i <= p.slots.count; i++ {
		l.Names[k+i] = p.slots.name(i)
		if t, ok := p.slots.types[i]; ok {
			l.Types[k+i] = t
		}
		if src := p.slots.sources[i]; src != nil {
			l.Sources[k+i] = src
		}
	}
	return l
}

// SlotSource returns the bundle source of combined slot i, or nil.
func (p *PipeEdit) SlotSource(i int) *graph.Node {
	k := p.incoming.Count
	if i > k {
		return p.slots.sources[i-k]
	}
	if _, ok := p.overrideTypes[i]; ok {
		return p.overrideSources[i]
	}
	return p.incoming.Sources[i]
}

// RefreshTypes recomputes the types of own slots and of overridden incoming
// slots from the outputs connected to them.
func (p *PipeEdit) RefreshTypes() {
	r := p.ext.resolver
	p.slots.refresh(r)
	p.overrideTypes = map[int]string{}
	p.overrideSources = map[int]*graph.Node{}
	for i := 1; i <= p.incoming.Count; i++ {
		if in := p.node.Input(i); in == nil || !in.Exposed {
			continue
		}
		ep, typ, ok := r.originType(p.node, i)
		if !ok {
			continue
		}
		p.overrideTypes[i] = typ
		if typ != bundle.TypeName {
			continue
		}
		if src := r.ResolveEndpoint(ep); src != nil {
			p.overrideSources[i] = src
		}
	}
}

// Resync resolves the bundle source upstream of the pipe input and takes
// its layout as the incoming layout. Without a source the incoming slots
// are cleared; a source that is not loaded yet leaves them in place.
func (p *PipeEdit) Resync() {
	if p.rebuilding {
		return
	}
	p.state = Resolving
	res := p.ext.resolver.ResolveBundle(p.node, 0)
	switch {
	case res.Pending:
		// keep the last incoming layout
	case res.Source == p.node:
		p.setIncoming(NewLayout(0))
		p.state = Unresolved
	case res.Source == nil:
		p.setIncoming(NewLayout(0))
		p.state = res.State
	default:
		owner, ok := layoutOwner(res.Source)
		if !ok {
			p.setIncoming(NewLayout(0))
			p.state = Unresolved
			break
		}
		owner.RefreshTypes()
		p.setIncoming(owner.Layout())
		p.state = Resolved
	}
	observability.Traversal().OnResync(p.node.Type, p.state.String(), p.TotalSlotCount())
}

// SyncWithSource resyncs p, refreshes its own types and notifies every
// bundle node downstream of the pipe output.
func (p *PipeEdit) SyncWithSource() {
	p.Resync()
	p.RefreshTypes()
	p.ext.resolver.NotifyDownstream(p.node, 0)
}

func (p *PipeEdit) setIncoming(l Layout) {
	if p.exposedCount() != l.Count {
		p.rebuildInputs(l)
	} else {
		p.incoming = l.Clone()
		for i := 1; i <= l.Count; i++ {
			in := p.node.Inputs[i]
			in.Label = l.Name(i)
			in.Type = l.Type(i)
		}
	}
	p.resize()
	p.ext.opts.Host.SetDirtyCanvas(true, true)
}

// exposedCount returns the number of exposed incoming inputs on the node.
func (p *PipeEdit) exposedCount() int {
	n := 0
	for i := 1; i < len(p.node.Inputs) && p.node.Inputs[i].Exposed; i++ {
		n++
	}
	return n
}

// upstream is a remembered link origin, replayed after inputs are rebuilt.
type upstream struct {
	boundary bool
	index    int
	node     *graph.Node
	slot     int
}

func (p *PipeEdit) linkOrigin(idx int) (upstream, bool) {
	in := p.node.Input(idx)
	g := p.node.Graph()
	if !in.Connected() || g == nil {
		return upstream{}, false
	}
	l, ok := g.Link(in.Link)
	if !ok {
		return upstream{}, false
	}
	if l.FromBoundary() {
		return upstream{boundary: true, index: l.OriginSlot}, true
	}
	origin, ok := g.Node(l.OriginID)
	if !ok {
		return upstream{}, false
	}
	return upstream{node: origin, slot: l.OriginSlot}, true
}

func (p *PipeEdit) reconnect(u upstream, idx int) {
	g := p.node.Graph()
	var err error
	if u.boundary {
		_, err = g.ConnectFromBoundary(u.index, p.node, idx)
	} else {
		_, err = g.Connect(u.node, u.slot, p.node, idx)
	}
	if err != nil {
		p.ext.opts.Logger.Debug("reconnect after rebuild failed", "node", p.node, "input", idx, "err", err)
	}
}

// rebuildInputs replaces every input after the pipe with exposed inputs for
// l followed by the own slot inputs. Connections on own slots, and on
// exposed inputs that still exist in l, are restored.
func (p *PipeEdit) rebuildInputs(l Layout) {
	old := p.exposedCount()
	own := map[int]upstream{}
	for i := 1; i <= p.slots.count; i++ {
		if u, ok := p.linkOrigin(old + i); ok {
			own[i] = u
		}
	}
	overrides := map[int]upstream{}
	for i := 1; i <= min(old, l.Count); i++ {
		if u, ok := p.linkOrigin(i); ok {
			overrides[i] = u
		}
	}

	p.rebuilding = true
	defer func() { p.rebuilding = false }()

	for len(p.node.Inputs) > 1 {
		_ = p.node.RemoveInput(len(p.node.Inputs) - 1)
	}
	p.incoming = l.Clone()
	for i := 1; i <= l.Count; i++ {
		in := p.node.AddInput(bundle.IncomingKey(i), l.Type(i))
		in.Label = l.Name(i)
		in.Exposed = true
	}
	for i := 1; i <= p.slots.count; i++ {
		p.node.AddInput(bundle.SlotKey(i), graph.TypeAny).Label = p.slots.name(i)
	}

	if p.node.Graph() == nil {
		return
	}
	for i, u := range overrides {
		p.reconnect(u, i)
	}
	for i, u := range own {
		p.reconnect(u, p.slots.inputIndex(i))
	}
}

func (p *PipeEdit) OnConnectionsChange(dir graph.SlotDir, slot int, connected bool, _ *graph.Link) {
	if p.rebuilding {
		return
	}
	if dir == graph.DirOutput {
		if connected {
			p.ext.resolver.NotifyDownstream(p.node, 0)
		}
		return
	}
	if slot == 0 {
		p.Resync()
	}
	p.RefreshTypes()
	p.ext.resolver.NotifyDownstream(p.node, 0)
}

func (p *PipeEdit) OnSerialize(extra map[string]any) {
	encodeSlots(extra, p.slots.count, p.slots.layoutNames(), p.slots.types)
	extra[keyIncomingSlotCount] = p.incoming.Count
	exposed := make(map[int]bool, p.incoming.Count)
	for i := 1; i <= p.incoming.Count; i++ {
		exposed[i] = true
	}
	extra[keyExposedIncomingSlots] = exposed
}

// OnConfigure restores the incoming layout from the exposed inputs the
// loader put back and the own slots from the persisted payload, then
// schedules resyncs.
func (p *PipeEdit) OnConfigure(extra map[string]any) {
	st := decodeState(extra)

	inc := NewLayout(0)
	for i := 1; i < len(p.node.Inputs); i++ {
		in := p.node.Inputs[i]
		if !strings.HasPrefix(in.Name, "incoming_slot_") {
			break
		}
		in.Exposed = true
		inc.Count++
		if in.Label != "" {
			inc.Names[i] = in.Label
		}
		if in.Type != "" && in.Type != graph.TypeAny {
			inc.Types[i] = in.Type
		}
	}
	if st.IncomingSlotCount != nil && *st.IncomingSlotCount != inc.Count {
		p.ext.opts.Logger.Debug("incoming slot count differs from restored inputs",
			"node", p.node, "saved", *st.IncomingSlotCount, "inputs", inc.Count)
	}
	p.incoming = inc

	p.slots.restore(st)
	p.resize()
	p.ext.opts.Retry.schedule(p.ext.opts.Host, p.SyncWithSource)
}

// OnExecutionStart publishes the own layout and the incoming slot count to
// the backend through hidden properties.
func (p *PipeEdit) OnExecutionStart() {
	p.node.Properties["slot_count"] = p.slots.count
	p.node.Properties["slot_names"] = bundle.FormatNames(p.slots.layoutNames())
	p.node.Properties["incoming_slot_count"] = p.incoming.Count
}

var (
	_ LayoutOwner              = (*PipeEdit)(nil)
	_ Resyncable               = (*PipeEdit)(nil)
	_ graph.Creator            = (*PipeEdit)(nil)
	_ graph.ConnectionObserver = (*PipeEdit)(nil)
	_ graph.Serializer         = (*PipeEdit)(nil)
	_ graph.Configurer         = (*PipeEdit)(nil)
	_ graph.ExecutionStarter   = (*PipeEdit)(nil)
)
