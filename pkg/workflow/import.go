package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/friendlypipe/pkg/graph"
	"github.com/matzehuels/friendlypipe/pkg/observability"
)

// ErrRecursiveSubgraph is returned when a subgraph definition contains an
// instance of itself, directly or through other definitions.
var ErrRecursiveSubgraph = errors.New("subgraph definition contains itself")

// Options configures decoding.
type Options struct {
	// Registry supplies node definitions and handlers. Node types it does
	// not know are loaded as opaque nodes. Nil loads every node as opaque.
	Registry *graph.Registry

	// Logger receives debug diagnostics about tolerated oddities. Nil
	// discards them.
	Logger *log.Logger

	// SkipSchema disables the JSON Schema check that runs before decoding.
	SkipSchema bool
}

// Workflow is a decoded workflow: the root graph with every subgraph
// instance expanded, plus the top-level fields needed to write it back.
type Workflow struct {
	ID       string
	Revision int
	Version  float64
	Root     *graph.Graph

	groups json.RawMessage
	config json.RawMessage
	extra  json.RawMessage

	// defs are the subgraph definitions as read, in file order. Definitions
	// without an instance are written back from here.
	defs []subgraph
}

// Definitions returns the subgraph definition ids in file order.
func (w *Workflow) Definitions() []string {
	ids := make([]string, len(w.defs))
	for i, d := range w.defs {
		ids[i] = d.ID
	}
	return ids
}

// ReadJSON decodes a workflow from r.
//
// The input is a LiteGraph workflow object. Root links are arrays
// [id, origin_id, origin_slot, target_id, target_slot, type]; subgraph
// definitions under definitions.subgraphs store links as objects and list
// the nested link ids attached to each boundary slot in "linkIds". A node
// whose type equals a definition id is a container and gets its own
// expanded copy of that definition.
//
// Loading runs in editor order for every graph, innermost first:
//  1. nodes are created, which runs their creation hooks
//  2. persisted slots, links, properties and widget values are restored
//     without firing connection hooks
//  3. configuration hooks run in node order with the node's persisted
//     extension fields
//
// Callbacks the handlers schedule while configuring are left to the caller's
// host. ReadJSON does not close r.
func ReadJSON(r io.Reader, opts Options) (*Workflow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return Decode(data, opts)
}

// Decode is like [ReadJSON] for an in-memory document.
func Decode(data []byte, opts Options) (*Workflow, error) {
	if !opts.SkipSchema {
		if err := Validate(data); err != nil {
			return nil, err
		}
	}
	var doc document
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	d := &decoder{
		reg:    opts.Registry,
		logger: opts.Logger,
		defs:   make(map[string]*subgraph),
	}
	if d.logger == nil {
		d.logger = log.New(io.Discard)
	}
	wf := &Workflow{
		ID:       doc.ID,
		Revision: doc.Revision,
		Version:  doc.Version,
		groups:   doc.Groups,
		config:   doc.Config,
		extra:    doc.Extra,
	}
	if doc.Definitions != nil {
		wf.defs = doc.Definitions.Subgraphs
		for i := range wf.defs {
			d.defs[wf.defs[i].ID] = &wf.defs[i]
		}
	}

	root := graph.New(opts.Registry)
	if err := d.fill(root, doc.Nodes, doc.Links); err != nil {
		return nil, err
	}
	root.SetLastIDs(doc.LastNodeID, doc.LastLinkID)
	wf.Root = root
	return wf, nil
}

// ImportJSON reads the workflow file at path. The load is reported to the
// registered workflow hooks.
func ImportJSON(ctx context.Context, path string, opts Options) (wf *Workflow, err error) {
	start := time.Now()
	defer func() {
		n := 0
		if wf != nil {
			wf.Root.Walk(func(*graph.Node) bool { n++; return true })
		}
		observability.Workflow().OnLoad(ctx, path, n, time.Since(start), err)
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	wf, err = ReadJSON(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return wf, nil
}

type decoder struct {
	reg    *graph.Registry
	logger *log.Logger
	defs   map[string]*subgraph

	// expanding holds the definitions being expanded, innermost last.
	expanding []string
}

// fill loads nodes and links into g and runs the configuration hooks.
func (d *decoder) fill(g *graph.Graph, nodes []node, links []link) error {
	created := make([]*graph.Node, 0, len(nodes))
	for _, nd := range nodes {
		n, err := d.node(g, nd)
		if err != nil {
			return fmt.Errorf("node %d: %w", nd.ID, err)
		}
		created = append(created, n)
	}
	for _, l := range links {
		if l.ID <= 0 {
			d.logger.Debug("skipping link without id", "graph", g.ID)
			continue
		}
		g.PutLink(&graph.Link{
			ID:         l.ID,
			OriginID:   l.OriginID,
			OriginSlot: l.OriginSlot,
			TargetID:   l.TargetID,
			TargetSlot: l.TargetSlot,
			Type:       string(l.Type),
		})
	}
	for _, n := range created {
		if c, ok := n.Handler.(graph.Configurer); ok {
			c.OnConfigure(n.Extra)
		}
	}
	return nil
}

func (d *decoder) node(g *graph.Graph, nd node) (*graph.Node, error) {
	var n *graph.Node
	if def, ok := d.defs[nd.Type]; ok {
		sub, err := d.expand(def)
		if err != nil {
			return nil, err
		}
		n = &graph.Node{ID: nd.ID, Type: nd.Type, Title: def.Name}
		n.SetSubgraph(sub)
		if err := g.Add(n); err != nil {
			return nil, err
		}
	} else if d.registered(nd.Type) {
		var err error
		if n, err = g.CreateAt(nd.ID, nd.Type); err != nil {
			return nil, err
		}
	} else {
		n = &graph.Node{ID: nd.ID, Type: nd.Type, Title: nd.Type}
		if err := g.Add(n); err != nil {
			return nil, err
		}
		if d.reg != nil {
			d.logger.Debug("unregistered node type", "type", nd.Type, "node", n.Path())
		}
	}
	d.restore(n, nd)
	return n, nil
}

func (d *decoder) registered(typ string) bool {
	if d.reg == nil {
		return false
	}
	_, ok := d.reg.Lookup(typ)
	return ok
}

// expand builds a fresh graph instance of def.
func (d *decoder) expand(def *subgraph) (*graph.Graph, error) {
	if slices.Contains(d.expanding, def.ID) {
		return nil, fmt.Errorf("%w: %s", ErrRecursiveSubgraph, def.ID)
	}
	d.expanding = append(d.expanding, def.ID)
	defer func() { d.expanding = d.expanding[:len(d.expanding)-1] }()

	sub := graph.NewSubgraph(d.reg, def.ID)
	sub.Name = def.Name
	sub.Inputs = boundarySlots(def.Inputs)
	sub.Outputs = boundarySlots(def.Outputs)
	for k, v := range def.Extra {
		sub.Extra[k] = v
	}
	if err := d.fill(sub, def.Nodes, def.Links); err != nil {
		return nil, fmt.Errorf("subgraph %s: %w", def.ID, err)
	}
	return sub, nil
}

func boundarySlots(in []boundary) []graph.BoundarySlot {
	out := make([]graph.BoundarySlot, len(in))
	for i, b := range in {
		name := b.Name
		if b.Label != "" {
			name = b.Label
		}
		out[i] = graph.BoundarySlot{
			Name:    name,
			Type:    string(b.Type),
			LinkIDs: slices.Clone(b.LinkIDs),
		}
	}
	return out
}

// restore applies the persisted fields of nd to n. Slots from the file
// replace the ones the node was created with, so their link references are
// the persisted ones.
func (d *decoder) restore(n *graph.Node, nd node) {
	if nd.Title != "" {
		n.Title = nd.Title
	}
	n.Pos = [2]float64(nd.Pos)
	if nd.Size != (vec2{}) {
		n.Size = graph.Size(nd.Size)
	}
	for k, v := range nd.Properties {
		n.Properties[k] = v
	}
	for k, v := range nd.Extra {
		n.Extra[k] = v
	}

	if nd.Inputs != nil {
		n.Inputs = make([]*graph.Input, len(nd.Inputs))
		for i, s := range nd.Inputs {
			in := &graph.Input{Name: s.Name, Type: string(s.Type), Label: s.Label}
			if s.Link != nil {
				in.Link = *s.Link
			}
			n.Inputs[i] = in
		}
	}
	if nd.Outputs != nil {
		n.Outputs = make([]*graph.Output, len(nd.Outputs))
		for i, s := range nd.Outputs {
			n.Outputs[i] = &graph.Output{
				Name:  s.Name,
				Type:  string(s.Type),
				Label: s.Label,
				Links: slices.Clone(s.Links),
			}
		}
	}

	if len(nd.WidgetsValues) == 0 {
		return
	}
	var values []any
	if err := json.Unmarshal(nd.WidgetsValues, &values); err != nil {
		// Some node packs persist widget values as an object; keep it opaque.
		var raw any
		if json.Unmarshal(nd.WidgetsValues, &raw) == nil {
			n.Extra[keyWidgetsValues] = raw
		}
		return
	}
	widgets := serializable(n)
	if len(widgets) == 0 {
		n.Extra[keyWidgetsValues] = values
		return
	}
	for i, w := range widgets {
		if i >= len(values) {
			break
		}
		w.Value = values[i]
	}
}

// keyWidgetsValues holds widget values of nodes without serializable
// widgets, so they are written back unchanged.
const keyWidgetsValues = "widgets_values"

func serializable(n *graph.Node) []*graph.Widget {
	var out []*graph.Widget
	for _, w := range n.Widgets {
		if w.Serialize {
			out = append(out, w)
		}
	}
	return out
}
