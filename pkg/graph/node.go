package graph

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Node is a vertex of an editor graph.
//
// A node owns its ordered input and output slots and its widgets. Container
// nodes additionally own a nested graph. Handler is the behavior attached by
// the registry for the node's type; it receives the lifecycle callbacks
// declared in registry.go.
type Node struct {
	ID    NodeID
	Type  string
	Title string
	Kind  Kind

	Inputs     []*Input
	Outputs    []*Output
	Widgets    []*Widget
	Properties Metadata
	Pos        [2]float64
	Size       Size

	// Extra holds extension-owned persisted fields (serialize/configure payload).
	Extra map[string]any

	Handler any

	graph    *Graph
	subgraph *Graph
}

// Graph returns the graph owning the node, or nil before it is added.
func (n *Node) Graph() *Graph { return n.graph }

// Subgraph returns the nested graph of a container node.
func (n *Node) Subgraph() *Graph { return n.subgraph }

// SetSubgraph makes n a container of g and records n as g's owner.
func (n *Node) SetSubgraph(g *Graph) {
	n.subgraph = g
	if g == nil {
		if n.Kind == KindContainer {
			n.Kind = KindOpaque
		}
		return
	}
	g.owner = n
	n.Kind = KindContainer
}

// String formats the node for logs as "Type#id".
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s#%d", n.Type, n.ID)
}

// Path returns the node id prefixed by the ids of its enclosing containers,
// e.g. "12/5" for node 5 inside container 12.
func (n *Node) Path() string {
	parts := []string{strconv.Itoa(int(n.ID))}
	g := n.graph
	for depth := 0; g != nil && g.owner != nil && depth < maxPathDepth; depth++ {
		parts = append(parts, strconv.Itoa(int(g.owner.ID)))
		g = g.owner.graph
	}
	slices.Reverse(parts)
	return strings.Join(parts, "/")
}

const maxPathDepth = 64

// BoundaryIndex returns the subgraph slot index a boundary marker node stands
// for. The index is read from the "slot_index" property, then "index";
// markers without either stand for slot 0.
func (n *Node) BoundaryIndex() int {
	for _, key := range []string{"slot_index", "index"} {
		switch v := n.Properties[key].(type) {
		case int:
			return v
		case float64:
			return int(v)
		}
	}
	return 0
}

// Input returns the input at index i, or nil when out of range.
func (n *Node) Input(i int) *Input {
	if i < 0 || i >= len(n.Inputs) {
		return nil
	}
	return n.Inputs[i]
}

// Output returns the output at index i, or nil when out of range.
func (n *Node) Output(i int) *Output {
	if i < 0 || i >= len(n.Outputs) {
		return nil
	}
	return n.Outputs[i]
}

// AddInput appends an input slot.
func (n *Node) AddInput(name, typ string) *Input {
	in := &Input{Name: name, Type: typ}
	n.Inputs = append(n.Inputs, in)
	return in
}

// AddOutput appends an output slot.
func (n *Node) AddOutput(name, typ string) *Output {
	out := &Output{Name: name, Type: typ}
	n.Outputs = append(n.Outputs, out)
	return out
}

// RemoveInput removes the input at index i, disconnecting it first. Links
// into later inputs are renumbered so they keep pointing at the same slot.
func (n *Node) RemoveInput(i int) error {
	in := n.Input(i)
	if in == nil {
		return fmt.Errorf("%w: input %d of %s", ErrSlotOutOfRange, i, n)
	}
	if in.Connected() && n.graph != nil {
		n.graph.Disconnect(n, i)
	}
	n.Inputs = slices.Delete(n.Inputs, i, i+1)
	if n.graph == nil {
		return nil
	}
	for j := i; j < len(n.Inputs); j++ {
		if l, ok := n.graph.links.Get(n.Inputs[j].Link); ok {
			l.TargetSlot = j
		}
	}
	return nil
}

// RemoveOutput removes the output at index i with all its links. Links from
// later outputs are renumbered so they keep pointing at the same slot.
func (n *Node) RemoveOutput(i int) error {
	out := n.Output(i)
	if out == nil {
		return fmt.Errorf("%w: output %d of %s", ErrSlotOutOfRange, i, n)
	}
	if n.graph != nil {
		for _, id := range slices.Clone(out.Links) {
			n.graph.RemoveLink(id)
		}
	}
	n.Outputs = slices.Delete(n.Outputs, i, i+1)
	if n.graph == nil {
		return nil
	}
	for j := i; j < len(n.Outputs); j++ {
		for _, id := range n.Outputs[j].Links {
			if l, ok := n.graph.links.Get(id); ok {
				l.OriginSlot = j
			}
		}
	}
	return nil
}

// AddWidget appends a widget. The callback runs on Set and Click.
func (n *Node) AddWidget(kind WidgetKind, name string, value any, callback func(any)) *Widget {
	w := &Widget{
		Kind:      kind,
		Name:      name,
		Value:     value,
		Serialize: kind != WidgetButton,
		callback:  callback,
	}
	n.Widgets = append(n.Widgets, w)
	return w
}

// MoveWidgetBefore moves w so that it sits immediately before anchor.
// It does nothing when either widget is not owned by n or w already
// precedes anchor.
func (n *Node) MoveWidgetBefore(w, anchor *Widget) {
	wi := slices.Index(n.Widgets, w)
	ai := slices.Index(n.Widgets, anchor)
	if wi < 0 || ai < 0 || wi < ai {
		return
	}
	n.Widgets = slices.Delete(n.Widgets, wi, wi+1)
	n.Widgets = slices.Insert(n.Widgets, ai, w)
}

// RemoveWidget removes w and reports whether it was found.
func (n *Node) RemoveWidget(w *Widget) bool {
	i := slices.Index(n.Widgets, w)
	if i < 0 {
		return false
	}
	n.Widgets = slices.Delete(n.Widgets, i, i+1)
	return true
}

// Widget returns the first widget with the given name.
func (n *Node) Widget(name string) (*Widget, bool) {
	for _, w := range n.Widgets {
		if w.Name == name {
			return w, true
		}
	}
	return nil, false
}

// SlotWidget returns the label widget tied to a 1-based bundle slot.
func (n *Node) SlotWidget(slotNum int) (*Widget, bool) {
	for _, w := range n.Widgets {
		if w.SlotNum == slotNum {
			return w, true
		}
	}
	return nil, false
}

// Node size metrics, in pixels.
const (
	minNodeWidth  = 140.0
	charWidth     = 7.0
	titleHeight   = 30.0
	slotHeight    = 20.0
	widgetHeight  = 24.0
	widgetPadding = 4.0
)

// ComputeSize returns the size the node needs to show its slots and widgets.
func (n *Node) ComputeSize() Size {
	longest := len(n.Title)
	for _, in := range n.Inputs {
		longest = max(longest, len(in.DisplayName()))
	}
	for _, out := range n.Outputs {
		longest = max(longest, len(out.DisplayName()))
	}
	width := max(minNodeWidth, float64(longest)*charWidth*2)

	rows := max(len(n.Inputs), len(n.Outputs), 1)
	height := titleHeight + float64(rows)*slotHeight
	if len(n.Widgets) > 0 {
		height += float64(len(n.Widgets))*widgetHeight + widgetPadding
	}
	return Size{width, height}
}

// SetSize sets the node's pixel size.
func (n *Node) SetSize(s Size) { n.Size = s }
