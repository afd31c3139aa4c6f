package graph

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Lifecycle hooks. A node's Handler implements whichever of these it needs;
// the graph and the workflow loader call them at the matching moments.
type (
	// Creator runs once after a node is created from its definition and
	// added to a graph.
	Creator interface {
		OnNodeCreated()
	}

	// ConnectionObserver is told about every link attached to or detached
	// from one of the node's slots.
	ConnectionObserver interface {
		OnConnectionsChange(dir SlotDir, slot int, connected bool, link *Link)
	}

	// Serializer adds extension-owned fields to the node's persisted form.
	Serializer interface {
		OnSerialize(extra map[string]any)
	}

	// Configurer restores extension-owned fields after slots and links have
	// been loaded.
	Configurer interface {
		OnConfigure(extra map[string]any)
	}

	// ExecutionStarter runs right before the workflow is queued for
	// execution.
	ExecutionStarter interface {
		OnExecutionStart()
	}
)

var (
	// ErrInvalidType is returned by [Registry.Register] for an empty type name.
	ErrInvalidType = errors.New("node type must not be empty")

	// ErrDuplicateType is returned by [Registry.Register] when the type is
	// already registered.
	ErrDuplicateType = errors.New("node type already registered")
)

// SlotDef is a default slot of a node definition.
type SlotDef struct {
	Name  string
	Type  string
	Label string
}

// NodeDef describes a node type: its default slots, where it is listed in the
// editor, and the handler attached to each instance.
type NodeDef struct {
	Type        string
	DisplayName string
	Category    string
	Description string
	Kind        Kind

	Inputs  []SlotDef
	Outputs []SlotDef

	// Factory builds the handler for a new node. It may be nil for nodes
	// without behavior.
	Factory func(n *Node) any
}

func (d *NodeDef) instantiate(id NodeID) *Node {
	n := &Node{
		ID:    id,
		Type:  d.Type,
		Title: d.DisplayName,
		Kind:  d.Kind,
	}
	if n.Title == "" {
		n.Title = d.Type
	}
	if n.Kind == KindOpaque {
		n.Kind = KindOf(d.Type)
	}
	for _, s := range d.Inputs {
		in := n.AddInput(s.Name, s.Type)
		in.Label = s.Label
	}
	for _, s := range d.Outputs {
		out := n.AddOutput(s.Name, s.Type)
		out.Label = s.Label
	}
	return n
}

// Registry maps node type names to definitions. It is safe for concurrent
// use.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*NodeDef
}

// NewRegistry returns a registry holding the built-in structural nodes.
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[string]*NodeDef)}
	for _, def := range builtins() {
		r.defs[def.Type] = def
	}
	return r
}

func builtins() []*NodeDef {
	return []*NodeDef{
		{
			Type:        "Reroute",
			DisplayName: "Reroute",
			Category:    "utils",
			Kind:        KindPassThrough,
			Inputs:      []SlotDef{{Name: "", Type: TypeAny}},
			Outputs:     []SlotDef{{Name: "", Type: TypeAny}},
		},
		{
			Type:        "PrimitiveNode",
			DisplayName: "Primitive",
			Category:    "utils",
			Kind:        KindPassThrough,
			Outputs:     []SlotDef{{Name: "connect to widget input", Type: TypeAny}},
		},
		{
			Type:        "graph/input",
			DisplayName: "Subgraph Input",
			Kind:        KindBoundaryIn,
			Outputs:     []SlotDef{{Name: "value", Type: TypeAny}},
		},
		{
			Type:        "graph/output",
			DisplayName: "Subgraph Output",
			Kind:        KindBoundaryOut,
			Inputs:      []SlotDef{{Name: "value", Type: TypeAny}},
		},
	}
}

// Register adds a node definition.
func (r *Registry) Register(def NodeDef) error {
	if def.Type == "" {
		return ErrInvalidType
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Type]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateType, def.Type)
	}
	r.defs[def.Type] = &def
	return nil
}

// Lookup returns the definition registered for typ.
func (r *Registry) Lookup(typ string) (*NodeDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[typ]
	return def, ok
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.defs))
}
