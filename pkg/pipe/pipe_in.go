package pipe

import (
	"maps"

	"github.com/matzehuels/friendlypipe/pkg/bundle"
	"github.com/matzehuels/friendlypipe/pkg/graph"
)

// PipeIn is the FriendlyPipeIn behavior. It bundles its labeled inputs into
// one pipe output and owns the layout every consumer downstream mirrors.
type PipeIn struct {
	ext   *Extension
	node  *graph.Node
	slots *ownSlots
}

func newPipeIn(e *Extension, n *graph.Node) *PipeIn {
	return &PipeIn{
		ext:   e,
		node:  n,
		slots: newOwnSlots(n, 1, e.opts.MaxSlots, func() int { return 0 }),
	}
}

// Node returns the node p is attached to.
func (p *PipeIn) Node() *graph.Node { return p.node }

// SlotCount returns the number of slots.
func (p *PipeIn) SlotCount() int { return p.slots.count }

func (p *PipeIn) OnNodeCreated() {
	p.slots.install(func(i int, name string) { p.RenameSlot(i, name) },
		func() { p.AddSlot() },
		func() { p.RemoveSlot() })
	p.resize()
}

// AddSlot appends a slot with a default name. It reports false when the
// node already has the maximum number of slots.
func (p *PipeIn) AddSlot() bool {
	if !p.slots.add() {
		return false
	}
	p.changed()
	return true
}

// RemoveSlot removes the last slot together with its input and label
// widget. The last remaining slot cannot be removed.
func (p *PipeIn) RemoveSlot() bool {
	if !p.slots.remove() {
		return false
	}
	p.changed()
	return true
}

// RenameSlot sets the display name of slot i. An empty name restores the
// default.
func (p *PipeIn) RenameSlot(i int, name string) bool {
	if !p.slots.setName(i, name) {
		return false
	}
	p.changed()
	return true
}

func (p *PipeIn) changed() {
	p.resize()
	p.ext.resolver.NotifyDownstream(p.node, 0)
	p.ext.opts.Host.SetDirtyCanvas(true, true)
}

func (p *PipeIn) resize() { p.node.SetSize(p.node.ComputeSize()) }

// Layout returns the slot count, names, types and provenance of the bundle.
func (p *PipeIn) Layout() Layout {
	return Layout{
		Count:   p.slots.count,
		Names:   p.slots.layoutNames(),
		Types:   maps.Clone(p.slots.types),
		Sources: cloneSources(p.slots.sources),
	}
}

// SlotSource returns the bundle source feeding slot i, or nil when the slot
// does not carry a bundle.
func (p *PipeIn) SlotSource(i int) *graph.Node { return p.slots.sources[i] }

// RefreshTypes recomputes slot types from the connected outputs.
func (p *PipeIn) RefreshTypes() { p.slots.refresh(p.ext.resolver) }

// OnConnectionsChange refreshes types when an input changes and pushes the
// layout downstream. A new link on the pipe output is pushed too, so that
// nodes behind it pick the layout up without their own connection event.
func (p *PipeIn) OnConnectionsChange(dir graph.SlotDir, _ int, connected bool, _ *graph.Link) {
	switch {
	case dir == graph.DirInput:
		p.RefreshTypes()
	case !connected:
		return
	}
	p.ext.resolver.NotifyDownstream(p.node, 0)
}

func (p *PipeIn) OnSerialize(extra map[string]any) {
	encodeSlots(extra, p.slots.count, p.slots.layoutNames(), p.slots.types)
}

func (p *PipeIn) OnConfigure(extra map[string]any) {
	p.slots.restore(decodeState(extra))
	p.resize()
	sync := func() {
		p.RefreshTypes()
		p.ext.resolver.NotifyDownstream(p.node, 0)
		p.ext.opts.Host.SetDirtyCanvas(true, true)
	}
	sync()
	// Links restored after this point are picked up by the retries.
	p.ext.opts.Retry.schedule(p.ext.opts.Host, sync)
}

// OnExecutionStart publishes the layout to the backend through the hidden
// slot_count and slot_names properties.
func (p *PipeIn) OnExecutionStart() {
	p.node.Properties["slot_count"] = p.slots.count
	p.node.Properties["slot_names"] = bundle.FormatNames(p.slots.layoutNames())
}

var (
	_ LayoutOwner              = (*PipeIn)(nil)
	_ graph.Creator            = (*PipeIn)(nil)
	_ graph.ConnectionObserver = (*PipeIn)(nil)
	_ graph.Serializer         = (*PipeIn)(nil)
	_ graph.Configurer         = (*PipeIn)(nil)
	_ graph.ExecutionStarter   = (*PipeIn)(nil)
)
