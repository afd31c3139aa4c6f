package pipe

import (
	"slices"
	"strconv"

	"github.com/matzehuels/friendlypipe/pkg/bundle"
	"github.com/matzehuels/friendlypipe/pkg/graph"
)

// Control widget names.
const (
	AddSlotButton    = "➕ Add Slot"
	RemoveSlotButton = "➖ Remove Slot"
)

// LabelWidget returns the name of the text widget editing own slot i.
func LabelWidget(i int) string { return "Label " + strconv.Itoa(i) }

// ownSlots is the user-authored part of a bundle layout. Own slot i is backed
// by input base()+i-1 and edited through the text widget "Label i". Own
// inputs always come last on the node.
type ownSlots struct {
	node *graph.Node
	min  int
	max  int
	base func() int

	count   int
	names   map[int]string
	types   map[int]string
	sources map[int]*graph.Node

	addBtn *graph.Widget
	rename func(i int, name string)
}

func newOwnSlots(n *graph.Node, lo, hi int, base func() int) *ownSlots {
	return &ownSlots{
		node:    n,
		min:     lo,
		max:     hi,
		base:    base,
		count:   1,
		names:   map[int]string{1: bundle.SlotKey(1)},
		types:   map[int]string{},
		sources: map[int]*graph.Node{},
	}
}

func (s *ownSlots) name(i int) string {
	if n := s.names[i]; n != "" {
		return n
	}
	return bundle.SlotKey(i)
}

func (s *ownSlots) inputIndex(i int) int { return s.base() + i - 1 }

func (s *ownSlots) input(i int) *graph.Input { return s.node.Input(s.inputIndex(i)) }

// install shapes a freshly created node: it trims the default inputs to the
// own slots, labels them and adds the label widgets followed by the buttons.
func (s *ownSlots) install(rename func(int, string), add, remove func()) {
	s.rename = rename
	s.trimInputs(s.inputIndex(s.count + 1))
	for i := 1; i <= s.count; i++ {
		if in := s.input(i); in != nil {
			in.Label = s.name(i)
		}
		s.addLabel(i)
	}
	s.addBtn = s.node.AddWidget(graph.WidgetButton, AddSlotButton, nil, func(any) { add() })
	s.node.AddWidget(graph.WidgetButton, RemoveSlotButton, nil, func(any) { remove() })
}

func (s *ownSlots) trimInputs(n int) {
	for len(s.node.Inputs) > n {
		_ = s.node.RemoveInput(len(s.node.Inputs) - 1)
	}
}

func (s *ownSlots) addLabel(i int) *graph.Widget {
	if w, ok := s.node.SlotWidget(i); ok {
		w.Value = s.name(i)
		return w
	}
	w := s.node.AddWidget(graph.WidgetText, LabelWidget(i), s.name(i), func(v any) {
		name, _ := v.(string)
		if s.rename != nil {
			s.rename(i, name)
		}
	})
	w.SlotNum = i
	if s.addBtn != nil {
		s.node.MoveWidgetBefore(w, s.addBtn)
	}
	return w
}

func (s *ownSlots) removeLabel(i int) {
	if w, ok := s.node.SlotWidget(i); ok {
		s.node.RemoveWidget(w)
	}
}

func (s *ownSlots) add() bool {
	if s.count >= s.max {
		return false
	}
	s.count++
	i := s.count
	s.names[i] = bundle.SlotKey(i)
	s.node.AddInput(bundle.SlotKey(i), graph.TypeAny).Label = s.names[i]
	s.addLabel(i)
	return true
}

func (s *ownSlots) remove() bool {
	if s.count <= s.min {
		return false
	}
	i := s.count
	idx := s.inputIndex(i)
	s.removeLabel(i)
	delete(s.names, i)
	delete(s.types, i)
	delete(s.sources, i)
	s.count--
	if s.node.Input(idx) != nil {
		_ = s.node.RemoveInput(idx)
	}
	return true
}

func (s *ownSlots) setName(i int, name string) bool {
	if i < 1 || i > s.count {
		return false
	}
	if name == "" {
		name = bundle.SlotKey(i)
	}
	s.names[i] = name
	if in := s.input(i); in != nil {
		in.Label = name
	}
	if w, ok := s.node.SlotWidget(i); ok {
		w.Value = name
	}
	return true
}

// refresh recomputes the own slot types from the outputs feeding them and
// records the provenance of slots fed with a bundle.
func (s *ownSlots) refresh(r *Resolver) {
	s.types = map[int]string{}
	s.sources = map[int]*graph.Node{}
	for i := 1; i <= s.count; i++ {
		ep, typ, ok := r.originType(s.node, s.inputIndex(i))
		if !ok {
			continue
		}
		s.types[i] = typ
		if typ != bundle.TypeName {
			continue
		}
		if src := r.ResolveEndpoint(ep); src != nil {
			s.sources[i] = src
		}
	}
}

// restore rebuilds the own slots from a persisted payload. Inputs restored
// by the loader are kept; missing ones are added and surplus trailing ones
// dropped.
func (s *ownSlots) restore(st nodeState) {
	for i, n := range st.SlotNames {
		s.names[i] = n
	}
	for i, t := range st.SlotTypes {
		s.types[i] = t
	}
	if st.SlotCount != nil {
		s.count = clamp(*st.SlotCount, s.min, s.max)
	}
	for i := range s.names {
		if i < 1 || i > s.count {
			delete(s.names, i)
		}
	}

	s.trimInputs(s.inputIndex(s.count + 1))
	for i := 1; i <= s.count; i++ {
		in := s.input(i)
		if in == nil {
			in = s.node.AddInput(bundle.SlotKey(i), graph.TypeAny)
		}
		in.Label = s.name(i)
		s.addLabel(i)
	}
	s.node.Widgets = slices.DeleteFunc(s.node.Widgets, func(w *graph.Widget) bool {
		return w.SlotNum > s.count
	})
}

func (s *ownSlots) layoutNames() map[int]string {
	out := make(map[int]string, s.count)
	for i := 1; i <= s.count; i++ {
		out[i] = s.name(i)
	}
	return out
}
