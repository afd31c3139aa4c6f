package pipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/friendlypipe/pkg/bundle"
	"github.com/matzehuels/friendlypipe/pkg/graph"
	"github.com/matzehuels/friendlypipe/pkg/observability"
)

func TestIsPassThrough(t *testing.T) {
	f := newFixture(t, Options{})
	pin, _ := f.pipeIn(f.g)
	pout, _ := f.pipeOut(f.g)

	tests := []struct {
		name string
		node *graph.Node
		want bool
	}{
		{"reroute", f.create(f.g, "Reroute"), true},
		{"primitive", f.create(f.g, "PrimitiveNode"), true},
		{"boundary in", f.create(f.g, "graph/input"), true},
		{"boundary out", f.create(f.g, "graph/output"), true},
		{"opaque 1/2", f.create(f.g, "Split"), false},
		{"opaque 2/2", f.create(f.g, "Blend"), false},
		{"opaque 0/1", f.create(f.g, "IntConst"), false},
		{"producer with one slot", pin, false},
		{"consumer with one slot", pout, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPassThrough(tt.node))
		})
	}

	generic := &graph.Node{Type: "Anything"}
	generic.AddInput("in", graph.TypeAny)
	generic.AddOutput("out", graph.TypeAny)
	assert.True(t, IsPassThrough(generic), "opaque 1/1 falls back to pass-through")
}

func TestFindOriginalSource(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.ext.Resolver()
	in, _ := f.pipeIn(f.g, "a")
	rr1 := f.create(f.g, "Reroute")
	rr2 := f.create(f.g, "Reroute")
	blend := f.create(f.g, "Blend")
	split := f.create(f.g, "Split")
	f.connect(f.g, in, 0, rr1, 0)
	f.connect(f.g, rr1, 0, rr2, 0)
	f.connect(f.g, rr2, 0, blend, 1)
	f.connect(f.g, in, 0, split, 0)

	assert.Equal(t, in, r.FindOriginalSource(in, 0))
	assert.Equal(t, in, r.FindOriginalSource(rr2, 0))
	assert.Equal(t, in, r.FindOriginalSource(blend, 1), "opaque node follows the matching input")
	assert.Nil(t, r.FindOriginalSource(blend, 0), "unconnected input is a dead end")
	assert.Equal(t, in, r.FindOriginalSource(split, 1), "missing input falls back to input 0")
	assert.Nil(t, r.FindOriginalSource(f.create(f.g, "IntConst"), 0))
	assert.Nil(t, r.FindOriginalSource(nil, 0))
}

func TestFindOriginalSourceStopsAtEditor(t *testing.T) {
	f := newFixture(t, Options{})
	in, _ := f.pipeIn(f.g, "a")
	edit, _ := f.pipeEdit(f.g)
	rr := f.create(f.g, "Reroute")
	f.connect(f.g, in, 0, edit, 0)
	f.connect(f.g, edit, 0, rr, 0)

	assert.Equal(t, edit, f.ext.Resolver().FindOriginalSource(rr, 0))
}

// P5
func TestCycleSafety(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.ext.Resolver()

	self := f.create(f.g, "Reroute")
	f.connect(f.g, self, 0, self, 0)
	assert.Nil(t, r.FindOriginalSource(self, 0))
	r.NotifyDownstream(self, 0)

	rr1 := f.create(f.g, "Reroute")
	rr2 := f.create(f.g, "Reroute")
	f.connect(f.g, rr1, 0, rr2, 0)
	f.connect(f.g, rr2, 0, rr1, 0)
	out, p := f.pipeOut(f.g)
	f.connect(f.g, rr2, 0, out, 0)
	assert.Equal(t, Unresolved, p.State())
	assert.Equal(t, []string{"slot_1"}, outputLabels(out))
	r.NotifyDownstream(rr1, 0)
	assert.Equal(t, Unresolved, p.State())
}

func TestCycleThroughEditor(t *testing.T) {
	f := newFixture(t, Options{})
	edit, p := f.pipeEdit(f.g)
	rr := f.create(f.g, "Reroute")
	f.connect(f.g, edit, 0, rr, 0)
	f.connect(f.g, rr, 0, edit, 0)

	assert.Equal(t, Unresolved, p.State())
	assert.Zero(t, p.IncomingCount())
	assert.Equal(t, 1, p.TotalSlotCount())
}

func TestDepthCap(t *testing.T) {
	chain := func(t *testing.T, length int) (*fixture, *PipeOut) {
		f := newFixture(t, Options{MaxDepth: 5})
		prev, _ := f.pipeIn(f.g, "a", "b")
		for range length {
			rr := f.create(f.g, "Reroute")
			f.connect(f.g, prev, 0, rr, 0)
			prev = rr
		}
		_, p := f.pipeOut(f.g)
		f.connect(f.g, prev, 0, p.Node(), 0)
		return f, p
	}

	_, short := chain(t, 3)
	assert.Equal(t, Resolved, short.State())
	assert.Len(t, short.Node().Outputs, 2)

	_, long := chain(t, 10)
	assert.Equal(t, Unresolved, long.State())
	assert.Len(t, long.Node().Outputs, 1)
}

// P2
func TestNotifyAtMostOnce(t *testing.T) {
	f := newFixture(t, Options{})
	in, _ := f.pipeIn(f.g, "a")
	rr1 := f.create(f.g, "Reroute")
	rr2 := f.create(f.g, "Reroute")
	rr3 := f.create(f.g, "Reroute")
	c := f.create(f.g, "Counter")
	f.connect(f.g, in, 0, rr1, 0)
	f.connect(f.g, in, 0, rr2, 0)
	f.connect(f.g, rr2, 0, rr3, 0)
	f.connect(f.g, rr1, 0, c, 0)
	f.connect(f.g, rr3, 0, c, 1)
	cnt := c.Handler.(*counter)
	cnt.n = 0

	f.ext.Resolver().NotifyDownstream(in, 0)
	assert.Equal(t, 1, cnt.n)
	f.ext.Resolver().NotifyDownstream(in, 0)
	assert.Equal(t, 2, cnt.n)
}

type traversalRecorder struct {
	observability.NoopTraversalHooks
	visited, resynced []int
	truncated         bool
}

func (r *traversalRecorder) OnNotify(visited, resynced int, truncated bool) {
	r.visited = append(r.visited, visited)
	r.resynced = append(r.resynced, resynced)
	r.truncated = r.truncated || truncated
}

// P1
func TestNotifyIdempotent(t *testing.T) {
	f := newFixture(t, Options{})
	in, pin := f.pipeIn(f.g, "a", "b", "c")
	f.connect(f.g, f.create(f.g, "IntConst"), 0, in, 1)
	rr := f.create(f.g, "Reroute")
	f.connect(f.g, in, 0, rr, 0)
	out1, _ := f.pipeOut(f.g)
	out2, _ := f.pipeOut(f.g)
	f.connect(f.g, rr, 0, out1, 0)
	f.connect(f.g, rr, 0, out2, 0)
	require.True(t, pin.RenameSlot(1, "first"))

	rec := &traversalRecorder{}
	observability.SetTraversalHooks(rec)
	t.Cleanup(observability.Reset)

	r := f.ext.Resolver()
	r.NotifyDownstream(in, 0)
	labels1, types1 := outputLabels(out1), outputTypes(out1)
	r.NotifyDownstream(in, 0)

	assert.Equal(t, labels1, outputLabels(out1))
	assert.Equal(t, types1, outputTypes(out1))
	assert.Equal(t, outputLabels(out1), outputLabels(out2))
	assert.Equal(t, []string{"first", "b", "c"}, labels1)
	assert.Equal(t, []string{"*", "INT", "*"}, types1)
	assert.Equal(t, []int{3, 3}, rec.visited)
	assert.Equal(t, []int{2, 2}, rec.resynced)
	assert.False(t, rec.truncated)
}

func TestRenameThroughReroute(t *testing.T) {
	f := newFixture(t, Options{})
	in, _ := f.pipeIn(f.g, "x", "y")
	rr := f.create(f.g, "Reroute")
	out, _ := f.pipeOut(f.g)
	f.connect(f.g, in, 0, rr, 0)
	f.connect(f.g, rr, 0, out, 0)
	require.Equal(t, []string{"x", "y"}, outputLabels(out))

	w, ok := in.SlotWidget(2)
	require.True(t, ok)
	w.Set("z")
	assert.Equal(t, []string{"x", "z"}, outputLabels(out))
}

func TestSubgraphEditScenario(t *testing.T) {
	f := newFixture(t, Options{})
	in, _ := f.pipeIn(f.g, "seed")
	f.connect(f.g, f.create(f.g, "IntConst"), 0, in, 0)
	c, sub := f.container(f.g, 1, 1)

	bi := f.marker(sub, "graph/input", 0)
	bo := f.marker(sub, "graph/output", 0)
	edit, pe := f.pipeEdit(sub)
	require.True(t, pe.RenameSlot(1, "extra"))
	f.connect(sub, bi, 0, edit, 0)
	f.connect(sub, edit, 0, bo, 0)

	f.connect(f.g, in, 0, c, 0)
	assert.Equal(t, Resolved, pe.State())
	assert.Equal(t, 1, pe.IncomingCount())

	out, p := f.pipeOut(f.g)
	f.connect(f.g, c, 0, out, 0)
	assert.Equal(t, Resolved, p.State())
	assert.Equal(t, []string{"seed", "extra"}, outputLabels(out))
	assert.Equal(t, []string{"INT", "*"}, outputTypes(out))
}

func TestSentinelLinks(t *testing.T) {
	f := newFixture(t, Options{})
	c, sub := f.container(f.g, 1, 2)

	inner, _ := f.pipeIn(sub, "inside")
	_, err := sub.ConnectToBoundary(inner, 0, 1)
	require.NoError(t, err)
	outInner, pInner := f.pipeOut(sub)
	_, err = sub.ConnectFromBoundary(0, outInner, 0)
	require.NoError(t, err)
	assert.Equal(t, Unresolved, pInner.State(), "container input not connected yet")

	out, p := f.pipeOut(f.g)
	f.connect(f.g, c, 1, out, 0)
	assert.Equal(t, Resolved, p.State())
	assert.Equal(t, []string{"inside"}, outputLabels(out))

	top, ptop := f.pipeIn(f.g, "a", "b")
	f.connect(f.g, top, 0, c, 0)
	assert.Equal(t, Resolved, pInner.State())
	assert.Equal(t, []string{"a", "b"}, outputLabels(outInner))

	require.True(t, ptop.RenameSlot(1, "aa"))
	assert.Equal(t, []string{"aa", "b"}, outputLabels(outInner))
}

func TestNotifyLeavesSubgraph(t *testing.T) {
	f := newFixture(t, Options{})
	c, sub := f.container(f.g, 0, 1)
	in, pin := f.pipeIn(sub, "a")
	bo := f.marker(sub, "graph/output", 0)
	f.connect(sub, in, 0, bo, 0)

	rr := f.create(f.g, "Reroute")
	out, _ := f.pipeOut(f.g)
	f.connect(f.g, c, 0, rr, 0)
	f.connect(f.g, rr, 0, out, 0)
	require.Equal(t, []string{"a"}, outputLabels(out))

	require.True(t, pin.AddSlot())
	assert.Equal(t, []string{"a", "slot_2"}, outputLabels(out))
}

func TestNotifyResyncsSubgraphConsumers(t *testing.T) {
	f := newFixture(t, Options{})
	c, sub := f.container(f.g, 1, 0)
	_, pStray := f.pipeOut(sub)
	cnt := f.create(sub, "Counter").Handler.(*counter)

	in, _ := f.pipeIn(f.g, "a")
	f.connect(f.g, in, 0, c, 0)

	assert.Equal(t, 1, cnt.n)
	assert.Equal(t, Disconnected, pStray.State())
}

// Both container inputs are fed by the same producer. The walk enters the
// container once, through input 0, so the editor behind input 1 is only
// reached by the pass over the remaining bundle nodes.
func TestNotifyContainerFedTwice(t *testing.T) {
	f := newFixture(t, Options{})
	in, pin := f.pipeIn(f.g, "a")
	c, sub := f.container(f.g, 2, 1)

	tap := f.create(sub, "Counter")
	cnt := tap.Handler.(*counter)
	f.connect(sub, f.marker(sub, "graph/input", 0), 0, tap, 0)
	edit, pe := f.pipeEdit(sub)
	require.True(t, pe.RenameSlot(1, "extra"))
	f.connect(sub, f.marker(sub, "graph/input", 1), 0, edit, 0)
	f.connect(sub, edit, 0, f.marker(sub, "graph/output", 0), 0)

	f.connect(f.g, in, 0, c, 0)
	f.connect(f.g, in, 0, c, 1)
	out, p := f.pipeOut(f.g)
	f.connect(f.g, c, 0, out, 0)
	require.Equal(t, []string{"a", "extra"}, outputLabels(out))

	before := cnt.n
	require.True(t, pin.RenameSlot(1, "renamed"))
	assert.Equal(t, "renamed", pe.Layout().Name(1))
	assert.Equal(t, []string{"renamed", "extra"}, outputLabels(out))
	assert.Equal(t, Resolved, p.State())
	assert.Equal(t, before+1, cnt.n)
}

func TestNotifyNestedBundleLeavesSubgraph(t *testing.T) {
	f := newFixture(t, Options{})
	inner, pinner := f.pipeIn(f.g, "p", "q")
	top, _ := f.pipeIn(f.g, "nested", "plain")
	f.connect(f.g, inner, 0, top, 0)
	c, sub := f.container(f.g, 2, 1)

	f.connect(sub, f.marker(sub, "graph/input", 0), 0, f.create(sub, "Counter"), 0)
	mid, _ := f.pipeOut(sub)
	f.connect(sub, f.marker(sub, "graph/input", 1), 0, mid, 0)
	f.connect(sub, mid, 0, f.marker(sub, "graph/output", 0), 0)

	f.connect(f.g, top, 0, c, 0)
	f.connect(f.g, top, 0, c, 1)
	require.Equal(t, []string{"nested", "plain"}, outputLabels(mid))
	require.Equal(t, bundle.TypeName, mid.Outputs[0].Type)

	out, p := f.pipeOut(f.g)
	f.connect(f.g, c, 0, out, 0)
	require.Equal(t, Resolved, p.State())
	require.Equal(t, []string{"p", "q"}, outputLabels(out))

	require.True(t, pinner.RenameSlot(2, "r"))
	assert.Equal(t, []string{"p", "r"}, outputLabels(out))
	assert.Equal(t, inner, f.ext.Resolver().ResolveBundle(out, 0).Source)
}

func TestNestedBundle(t *testing.T) {
	f := newFixture(t, Options{})
	inner, pinner := f.pipeIn(f.g, "p", "q")
	outer, _ := f.pipeIn(f.g, "nested", "plain")
	f.connect(f.g, inner, 0, outer, 0)

	o1, _ := f.pipeOut(f.g)
	f.connect(f.g, outer, 0, o1, 0)
	require.Equal(t, []string{"nested", "plain"}, outputLabels(o1))
	require.Equal(t, "FRIENDLY_PIPE", o1.Outputs[0].Type)

	o2, p2 := f.pipeOut(f.g)
	f.connect(f.g, o1, 0, o2, 0)
	assert.Equal(t, Resolved, p2.State())
	assert.Equal(t, []string{"p", "q"}, outputLabels(o2))

	require.True(t, pinner.RenameSlot(2, "r"))
	assert.Equal(t, []string{"p", "r"}, outputLabels(o2))

	edit, pe := f.pipeEdit(f.g)
	f.connect(f.g, o1, 0, edit, 0)
	assert.Equal(t, 2, pe.IncomingCount())
	assert.Equal(t, "p", pe.Layout().Name(1))
}

func TestNestedBundleTransitive(t *testing.T) {
	f := newFixture(t, Options{})
	core, _ := f.pipeIn(f.g, "deep")
	mid, _ := f.pipeIn(f.g, "core")
	top, _ := f.pipeIn(f.g, "mid")
	f.connect(f.g, core, 0, mid, 0)
	f.connect(f.g, mid, 0, top, 0)

	o1, _ := f.pipeOut(f.g)
	o2, _ := f.pipeOut(f.g)
	o3, p3 := f.pipeOut(f.g)
	f.connect(f.g, top, 0, o1, 0)
	f.connect(f.g, o1, 0, o2, 0)
	f.connect(f.g, o2, 0, o3, 0)

	assert.Equal(t, []string{"core"}, outputLabels(o2))
	assert.Equal(t, []string{"deep"}, outputLabels(o3))
	assert.Equal(t, Resolved, p3.State())
	assert.Equal(t, core, f.ext.Resolver().ResolveBundle(o3, 0).Source)
}

func TestResolveOutbound(t *testing.T) {
	f := newFixture(t, Options{})
	c, sub := f.container(f.g, 0, 1)
	a, _ := f.pipeIn(sub, "a")
	b, _ := f.pipeIn(sub, "b")
	_, err := sub.ConnectToBoundary(a, 0, 0)
	require.NoError(t, err)
	bo := f.marker(sub, "graph/output", 0)
	f.connect(sub, b, 0, bo, 0)

	eps := f.ext.Resolver().ResolveOutbound(c, 0)
	require.Len(t, eps, 2)
	assert.Equal(t, a, eps[0].Node)
	assert.Equal(t, b, eps[1].Node)
	assert.Empty(t, f.ext.Resolver().ResolveOutbound(c, 3))
}

func TestResolveInboundNested(t *testing.T) {
	f := newFixture(t, Options{})
	in, _ := f.pipeIn(f.g, "a", "b")
	c1, sub1 := f.container(f.g, 1, 0)
	f.connect(f.g, in, 0, c1, 0)
	c2, sub2 := f.container(sub1, 1, 0)
	_, err := sub1.ConnectFromBoundary(0, c2, 0)
	require.NoError(t, err)

	ep, ok := f.ext.Resolver().ResolveInbound(c2, 0)
	require.True(t, ok)
	assert.Equal(t, in, ep.Node)

	out, p := f.pipeOut(sub2)
	_, err = sub2.ConnectFromBoundary(0, out, 0)
	require.NoError(t, err)
	assert.Equal(t, Resolved, p.State())
	assert.Equal(t, []string{"a", "b"}, outputLabels(out))

	_, ok = f.ext.Resolver().ResolveInbound(c1, 1)
	assert.False(t, ok)
}

func TestContainerLookup(t *testing.T) {
	f := newFixture(t, Options{})
	c, sub := f.container(f.g, 0, 0)
	r := f.ext.Resolver()
	assert.Equal(t, c, r.Container(sub))
	assert.Nil(t, r.Container(f.g))
	assert.Nil(t, r.Container(nil))
	assert.Nil(t, r.Container(graph.NewSubgraph(f.reg, "orphan")))
}
