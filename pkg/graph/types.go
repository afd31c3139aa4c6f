package graph

import "fmt"

// NodeID identifies a node within its owning graph. Ids are only unique per
// graph: a node inside a subgraph may share its id with a node of the parent.
type NodeID int

// LinkID identifies a link within its owning graph. Link ids are allocated
// from 1, so the zero value means "no link".
type LinkID int

// Boundary sentinels. A link whose origin (or target) id is negative does not
// point at a real node: the endpoint is the enclosing subgraph's input (or
// output) boundary, and the paired slot index is the container node's input
// (or output) index.
const (
	BoundaryInputID  NodeID = -10
	BoundaryOutputID NodeID = -20
)

// NoLink is the Input.Link value of an unconnected input.
const NoLink LinkID = 0

// TypeAny is the wildcard slot type.
const TypeAny = "*"

// Metadata stores arbitrary key-value pairs attached to nodes.
// Metadata maps are never nil after a node is added to a graph.
type Metadata map[string]any

// Kind is the closed variant tag of a node. Traversal dispatches on Kind
// instead of probing a node for optional fields.
type Kind int

const (
	// KindOpaque is any node the pipe machinery knows nothing about.
	KindOpaque Kind = iota
	// KindPassThrough forwards its single input to its single output (reroutes, primitives).
	KindPassThrough
	// KindContainer owns a nested graph (a subgraph instance).
	KindContainer
	// KindBoundaryIn is the pseudo-node exposing a subgraph's inputs inside the nested graph.
	KindBoundaryIn
	// KindBoundaryOut is the pseudo-node collecting a subgraph's outputs inside the nested graph.
	KindBoundaryOut
	// KindProducer defines a bundle layout from its own inputs (FriendlyPipeIn).
	KindProducer
	// KindConsumer unpacks a bundle into labeled outputs (FriendlyPipeOut).
	KindConsumer
	// KindEditor passes a bundle through while appending or overriding slots (FriendlyPipeEdit).
	KindEditor
)

var kindNames = map[Kind]string{
	KindOpaque:      "opaque",
	KindPassThrough: "pass-through",
	KindContainer:   "container",
	KindBoundaryIn:  "boundary-in",
	KindBoundaryOut: "boundary-out",
	KindProducer:    "producer",
	KindConsumer:    "consumer",
	KindEditor:      "editor",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsBundle reports whether the kind is one of the three bundle node kinds.
func (k Kind) IsBundle() bool {
	return k == KindProducer || k == KindConsumer || k == KindEditor
}

// Type names the editor uses for structural node kinds.
var structuralTypes = map[string]Kind{
	"Reroute":          KindPassThrough,
	"ReroutePrimitive": KindPassThrough,
	"PrimitiveNode":    KindPassThrough,
	"graph/input":      KindBoundaryIn,
	"GraphInput":       KindBoundaryIn,
	"graph/output":     KindBoundaryOut,
	"GraphOutput":      KindBoundaryOut,
}

// KindOf returns the structural kind implied by a node type name, or
// KindOpaque when the name is not a known structural type.
func KindOf(typeName string) Kind {
	if k, ok := structuralTypes[typeName]; ok {
		return k
	}
	return KindOpaque
}

// SlotDir distinguishes input from output slots in connection callbacks.
type SlotDir int

const (
	DirInput  SlotDir = 1
	DirOutput SlotDir = 2
)

func (d SlotDir) String() string {
	if d == DirInput {
		return "input"
	}
	return "output"
}

// Input is an input slot. It holds at most one incoming link.
type Input struct {
	Name  string
	Type  string
	Label string
	Link  LinkID

	// Exposed marks an editor input that mirrors a slot of the incoming bundle.
	Exposed bool
}

// Connected reports whether a link feeds the input.
func (in *Input) Connected() bool { return in != nil && in.Link != NoLink }

// DisplayName returns the label when set, otherwise the slot name.
func (in *Input) DisplayName() string {
	if in.Label != "" {
		return in.Label
	}
	return in.Name
}

// Output is an output slot with any number of outgoing links.
type Output struct {
	Name  string
	Type  string
	Label string
	Links []LinkID
}

// DisplayName returns the label when set, otherwise the slot name.
func (out *Output) DisplayName() string {
	if out.Label != "" {
		return out.Label
	}
	return out.Name
}

// Link connects an origin (node, output slot) to a target (node, input slot).
// Either node id may be a negative boundary sentinel.
type Link struct {
	ID         LinkID
	OriginID   NodeID
	OriginSlot int
	TargetID   NodeID
	TargetSlot int
	Type       string
}

// FromBoundary reports whether the link enters the graph through the
// enclosing subgraph's input boundary.
func (l *Link) FromBoundary() bool { return l.OriginID < 0 }

// ToBoundary reports whether the link leaves the graph through the
// enclosing subgraph's output boundary.
func (l *Link) ToBoundary() bool { return l.TargetID < 0 }

// WidgetKind is the kind of interactive control attached to a node.
type WidgetKind string

const (
	WidgetButton WidgetKind = "button"
	WidgetText   WidgetKind = "text"
)

// Widget is a labeled interactive control owned by a node. Its Value is the
// mutable holder the editor writes into; Set simulates a user edit.
type Widget struct {
	Kind  WidgetKind
	Name  string
	Value any

	// Serialize controls whether the value is persisted in widgets_values.
	Serialize bool
	// SlotNum ties a label widget to a 1-based bundle slot; 0 when unrelated.
	SlotNum int

	callback func(value any)
}

// Set stores value and runs the widget callback, as a user edit would.
func (w *Widget) Set(value any) {
	w.Value = value
	if w.callback != nil {
		w.callback(value)
	}
}

// Click runs a button widget's callback.
func (w *Widget) Click() {
	if w.callback != nil {
		w.callback(w.Value)
	}
}

// Size is a node's pixel size.
type Size [2]float64
