package pipe

import (
	"github.com/matzehuels/friendlypipe/pkg/bundle"
	"github.com/matzehuels/friendlypipe/pkg/graph"
	"github.com/matzehuels/friendlypipe/pkg/observability"
)

// PipeOut is the FriendlyPipeOut behavior. Its outputs are never edited
// directly: they always mirror the layout of the bundle source found
// upstream of the pipe input.
type PipeOut struct {
	ext    *Extension
	node   *graph.Node
	layout Layout
	state  SyncState
}

func newPipeOut(e *Extension, n *graph.Node) *PipeOut {
	return &PipeOut{ext: e, node: n, layout: DefaultLayout(), state: Disconnected}
}

// Node returns the node p is attached to.
func (p *PipeOut) Node() *graph.Node { return p.node }

// State returns the outcome of the last resync.
func (p *PipeOut) State() SyncState { return p.state }

// Layout returns the last applied layout.
func (p *PipeOut) Layout() Layout { return p.layout.Clone() }

func (p *PipeOut) OnNodeCreated() {
	for len(p.node.Outputs) > 1 {
		_ = p.node.RemoveOutput(len(p.node.Outputs) - 1)
	}
	if out := p.node.Output(0); out != nil {
		out.Label = bundle.SlotKey(1)
	}
	p.node.SetSize(p.node.ComputeSize())
}

// applyLayout makes the outputs match l: one output per slot, labeled and
// typed from the layout. Links on surviving outputs are kept.
func (p *PipeOut) applyLayout(l Layout) {
	n := p.node
	l.Count = max(l.Count, 1)
	for len(n.Outputs) > l.Count {
		_ = n.RemoveOutput(len(n.Outputs) - 1)
	}
	for len(n.Outputs) < l.Count {
		i := len(n.Outputs) + 1
		n.AddOutput(bundle.SlotKey(i), l.Type(i))
	}
	for i, out := range n.Outputs {
		out.Label = l.Name(i + 1)
		out.Type = l.Type(i + 1)
	}
	p.layout = l.Clone()
	n.SetSize(n.ComputeSize())
	p.ext.opts.Host.SetDirtyCanvas(true, true)
}

// Resync resolves the bundle source upstream of the pipe input and mirrors
// its layout. A missing source resets the node to a single wildcard output;
// a source that is not loaded yet leaves the current layout in place.
func (p *PipeOut) Resync() {
	p.state = Resolving
	res := p.ext.resolver.ResolveBundle(p.node, 0)
	switch {
	case res.Pending:
		p.state = Resolving
	case res.Source == nil:
		p.applyLayout(DefaultLayout())
		p.state = res.State
	default:
		owner, ok := layoutOwner(res.Source)
		if !ok {
			p.applyLayout(DefaultLayout())
			p.state = Unresolved
			break
		}
		owner.RefreshTypes()
		p.applyLayout(owner.Layout())
		p.state = Resolved
	}
	observability.Traversal().OnResync(p.node.Type, p.state.String(), len(p.node.Outputs))
}

// SyncWithSource resyncs p and then every bundle node downstream of its
// outputs, so that bundles carried inside its slots follow.
func (p *PipeOut) SyncWithSource() {
	p.Resync()
	for i := range p.node.Outputs {
		p.ext.resolver.NotifyDownstream(p.node, i)
	}
}

func (p *PipeOut) OnConnectionsChange(dir graph.SlotDir, slot int, _ bool, _ *graph.Link) {
	if dir == graph.DirInput && slot == 0 {
		p.SyncWithSource()
	}
}

// OnSerialize stores the last applied layout so that the node reopens with
// it before the first resync.
func (p *PipeOut) OnSerialize(extra map[string]any) {
	encodeSlots(extra, p.layout.Count, p.layout.Names, p.layout.Types)
}

func (p *PipeOut) OnConfigure(extra map[string]any) {
	st := decodeState(extra)
	if st.SlotCount != nil {
		l := NewLayout(clamp(*st.SlotCount, 1, p.ext.opts.MaxSlots))
		for i, name := range st.SlotNames {
			if i >= 1 && i <= l.Count {
				l.Names[i] = name
			}
		}
		for i, typ := range st.SlotTypes {
			if i >= 1 && i <= l.Count {
				l.Types[i] = typ
			}
		}
		p.applyLayout(l)
	}
	p.ext.opts.Retry.schedule(p.ext.opts.Host, p.SyncWithSource)
}

var (
	_ Resyncable               = (*PipeOut)(nil)
	_ graph.Creator            = (*PipeOut)(nil)
	_ graph.ConnectionObserver = (*PipeOut)(nil)
	_ graph.Serializer         = (*PipeOut)(nil)
	_ graph.Configurer         = (*PipeOut)(nil)
)
