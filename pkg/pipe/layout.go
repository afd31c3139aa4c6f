package pipe

import (
	"maps"

	"github.com/matzehuels/friendlypipe/pkg/bundle"
	"github.com/matzehuels/friendlypipe/pkg/graph"
)

// Layout is the slot layout of a bundle: how many slots it carries and, per
// 1-based slot index, the display name, the resolved upstream type and the
// provenance node of slots that carry a nested bundle.
type Layout struct {
	Count   int
	Names   map[int]string
	Types   map[int]string
	Sources map[int]*graph.Node
}

// NewLayout returns an empty layout with count slots.
func NewLayout(count int) Layout {
	return Layout{
		Count:   count,
		Names:   map[int]string{},
		Types:   map[int]string{},
		Sources: map[int]*graph.Node{},
	}
}

// DefaultLayout is the layout of an unresolved consumer: one wildcard slot.
func DefaultLayout() Layout { return NewLayout(1) }

// Name returns the display name of slot i, defaulting to "slot_i".
func (l Layout) Name(i int) string {
	if n := l.Names[i]; n != "" {
		return n
	}
	return bundle.SlotKey(i)
}

// Type returns the type of slot i, defaulting to the wildcard.
func (l Layout) Type(i int) string {
	if t := l.Types[i]; t != "" {
		return t
	}
	return graph.TypeAny
}

// Source returns the provenance node of slot i, or nil.
func (l Layout) Source(i int) *graph.Node { return l.Sources[i] }

// Clone returns a copy whose maps can be modified independently.
func (l Layout) Clone() Layout {
	out := NewLayout(l.Count)
	maps.Copy(out.Names, l.Names)
	maps.Copy(out.Types, l.Types)
	maps.Copy(out.Sources, l.Sources)
	return out
}

// LayoutOwner is implemented by nodes that define a bundle layout: the
// producer and the editor.
type LayoutOwner interface {
	// Layout returns the effective layout the node emits.
	Layout() Layout
	// SlotSource returns the provenance node of slot i, or nil.
	SlotSource(i int) *graph.Node
	// RefreshTypes recomputes slot types and provenance from the node's
	// current input connections.
	RefreshTypes()
}

// Resyncable is implemented by nodes that derive their layout from upstream:
// the consumer and the editor. Resync recomputes the layout without
// propagating it further.
type Resyncable interface {
	Resync()
}

// SyncState is the outcome of a consumer's or editor's last resync.
type SyncState int

const (
	// Unresolved means no bundle producer was found upstream.
	Unresolved SyncState = iota
	// Resolving means a resync is in progress, or the upstream graph was not
	// ready and the last applied layout was kept.
	Resolving
	// Resolved means the layout mirrors an upstream producer.
	Resolved
	// Disconnected means the pipe input has no link.
	Disconnected
)

func (s SyncState) String() string {
	switch s {
	case Resolving:
		return "resolving"
	case Resolved:
		return "resolved"
	case Disconnected:
		return "disconnected"
	default:
		return "unresolved"
	}
}

// Endpoint is a (node, slot) pair.
type Endpoint struct {
	Node *graph.Node
	Slot int
}

func layoutOwner(n *graph.Node) (LayoutOwner, bool) {
	if n == nil {
		return nil, false
	}
	o, ok := n.Handler.(LayoutOwner)
	return o, ok
}
