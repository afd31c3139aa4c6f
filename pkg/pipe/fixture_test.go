package pipe

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/friendlypipe/pkg/graph"
	"github.com/matzehuels/friendlypipe/pkg/host"
)

// fixture is a root graph with the bundle nodes installed and a deferred
// host, plus a few plain node types.
type fixture struct {
	t   *testing.T
	reg *graph.Registry
	g   *graph.Graph
	ext *Extension
	h   *host.Deferred
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	h := host.NewDeferred()
	opts.Host = h
	ext := New(opts)
	reg := graph.NewRegistry()
	require.NoError(t, ext.Install(reg))
	for _, def := range []graph.NodeDef{
		{Type: "IntConst", Outputs: []graph.SlotDef{{Name: "INT", Type: "INT"}}},
		{Type: "LoadImage", Outputs: []graph.SlotDef{{Name: "IMAGE", Type: "IMAGE"}, {Name: "MASK", Type: "MASK"}}},
		{
			Type:    "Blend",
			Inputs:  []graph.SlotDef{{Name: "a", Type: graph.TypeAny}, {Name: "b", Type: graph.TypeAny}},
			Outputs: []graph.SlotDef{{Name: "x", Type: "IMAGE"}, {Name: "y", Type: "MASK"}},
		},
		{
			Type:    "Split",
			Inputs:  []graph.SlotDef{{Name: "in", Type: graph.TypeAny}},
			Outputs: []graph.SlotDef{{Name: "x", Type: graph.TypeAny}, {Name: "y", Type: graph.TypeAny}},
		},
		{
			Type:    "Counter",
			Inputs:  []graph.SlotDef{{Name: "a", Type: graph.TypeAny}, {Name: "b", Type: graph.TypeAny}},
			Factory: func(*graph.Node) any { return &counter{} },
		},
	} {
		require.NoError(t, reg.Register(def))
	}
	g := graph.New(reg)
	ext.Bind(g)
	return &fixture{t: t, reg: reg, g: g, ext: ext, h: h}
}

// counter is a resyncable stand-in that records how often it was resynced.
type counter struct{ n int }

func (c *counter) Resync() { c.n++ }

func (f *fixture) create(g *graph.Graph, typ string) *graph.Node {
	f.t.Helper()
	n, err := g.Create(typ)
	require.NoError(f.t, err)
	return n
}

func (f *fixture) connect(g *graph.Graph, origin *graph.Node, oslot int, target *graph.Node, tslot int) *graph.Link {
	f.t.Helper()
	l, err := g.Connect(origin, oslot, target, tslot)
	require.NoError(f.t, err)
	return l
}

// pipeIn creates a producer with one slot per name.
func (f *fixture) pipeIn(g *graph.Graph, names ...string) (*graph.Node, *PipeIn) {
	f.t.Helper()
	n := f.create(g, TypePipeIn)
	p := n.Handler.(*PipeIn)
	for i, name := range names {
		if i > 0 {
			require.True(f.t, p.AddSlot())
		}
		require.True(f.t, p.RenameSlot(i+1, name))
	}
	return n, p
}

func (f *fixture) pipeOut(g *graph.Graph) (*graph.Node, *PipeOut) {
	f.t.Helper()
	n := f.create(g, TypePipeOut)
	return n, n.Handler.(*PipeOut)
}

func (f *fixture) pipeEdit(g *graph.Graph) (*graph.Node, *PipeEdit) {
	f.t.Helper()
	n := f.create(g, TypePipeEdit)
	return n, n.Handler.(*PipeEdit)
}

// container adds a subgraph instance with nIn inputs and nOut outputs to g.
func (f *fixture) container(g *graph.Graph, nIn, nOut int) (*graph.Node, *graph.Graph) {
	f.t.Helper()
	sub := graph.NewSubgraph(f.reg, "")
	c := &graph.Node{Type: sub.ID}
	for i := range nIn {
		name := fmt.Sprintf("in_%d", i)
		sub.Inputs = append(sub.Inputs, graph.BoundarySlot{Name: name, Type: graph.TypeAny})
		c.AddInput(name, graph.TypeAny)
	}
	for i := range nOut {
		name := fmt.Sprintf("out_%d", i)
		sub.Outputs = append(sub.Outputs, graph.BoundarySlot{Name: name, Type: graph.TypeAny})
		c.AddOutput(name, graph.TypeAny)
	}
	c.SetSubgraph(sub)
	require.NoError(f.t, g.Add(c))
	return c, sub
}

// marker creates a boundary marker node standing for slot index.
func (f *fixture) marker(g *graph.Graph, typ string, index int) *graph.Node {
	f.t.Helper()
	n := f.create(g, typ)
	n.Properties["slot_index"] = index
	return n
}

func outputLabels(n *graph.Node) []string {
	out := make([]string, len(n.Outputs))
	for i, o := range n.Outputs {
		out[i] = o.DisplayName()
	}
	return out
}

func outputTypes(n *graph.Node) []string {
	out := make([]string, len(n.Outputs))
	for i, o := range n.Outputs {
		out[i] = o.Type
	}
	return out
}

func inputNames(n *graph.Node) []string {
	out := make([]string, len(n.Inputs))
	for i, in := range n.Inputs {
		out[i] = in.Name
	}
	return out
}

func widgetNames(n *graph.Node) []string {
	out := make([]string, len(n.Widgets))
	for i, w := range n.Widgets {
		out[i] = w.Name
	}
	return out
}
