package workflow_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/friendlypipe/pkg/graph"
	"github.com/matzehuels/friendlypipe/pkg/host"
	"github.com/matzehuels/friendlypipe/pkg/observability"
	"github.com/matzehuels/friendlypipe/pkg/pipe"
	"github.com/matzehuels/friendlypipe/pkg/workflow"
)

type env struct {
	reg *graph.Registry
	ext *pipe.Extension
	h   *host.Deferred
}

func newEnv(t *testing.T) *env {
	t.Helper()
	h := host.NewDeferred()
	ext := pipe.New(pipe.Options{Host: h})
	reg := graph.NewRegistry()
	require.NoError(t, ext.Install(reg))
	return &env{reg: reg, ext: ext, h: h}
}

// load decodes a testdata file, binds the root and settles the deferred
// resyncs, as an editor session would.
func (e *env) load(t *testing.T, name string) *workflow.Workflow {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return e.decode(t, data)
}

func (e *env) decode(t *testing.T, data []byte) *workflow.Workflow {
	t.Helper()
	wf, err := workflow.Decode(data, workflow.Options{Registry: e.reg})
	require.NoError(t, err)
	e.ext.Bind(wf.Root)
	e.h.Drain()
	return wf
}

func labels(n *graph.Node) []string {
	out := make([]string, len(n.Outputs))
	for i, o := range n.Outputs {
		out[i] = o.DisplayName()
	}
	return out
}

func node(t *testing.T, g *graph.Graph, id graph.NodeID) *graph.Node {
	t.Helper()
	n, ok := g.Node(id)
	require.True(t, ok, "node %d", id)
	return n
}

func TestDecodeRootWorkflow(t *testing.T) {
	e := newEnv(t)
	wf := e.load(t, "pipe.json")

	root := wf.Root
	assert.Equal(t, 4, root.NodeCount())
	assert.Equal(t, 3, root.Links().Len())
	assert.Equal(t, graph.NodeID(4), root.LastNodeID())
	assert.Equal(t, "7f6c9a52-8a43-4c8e-9f0f-1d2b3c4d5e6f", wf.ID)
	require.NoError(t, root.Validate())

	prim := node(t, root, 1)
	assert.Equal(t, graph.KindOpaque, prim.Kind)
	assert.Nil(t, prim.Handler)
	assert.Equal(t, "INT", prim.Outputs[0].Type)

	in := node(t, root, 2)
	assert.Equal(t, graph.KindProducer, in.Kind)
	assert.Equal(t, 2, in.Handler.(*pipe.PipeIn).SlotCount())
	assert.Equal(t, graph.LinkID(1), in.Inputs[0].Link)

	assert.Equal(t, graph.KindPassThrough, node(t, root, 3).Kind)

	out := node(t, root, 4)
	po := out.Handler.(*pipe.PipeOut)
	assert.Equal(t, pipe.Resolved, po.State())
	assert.Equal(t, []string{"seed", "steps"}, labels(out))
	assert.Equal(t, "INT", out.Outputs[0].Type)
	assert.Equal(t, graph.TypeAny, out.Outputs[1].Type)
}

func TestDecodeRestoresWidgetValues(t *testing.T) {
	e := newEnv(t)
	wf := e.load(t, "pipe.json")

	in := node(t, wf.Root, 2)
	w, ok := in.SlotWidget(2)
	require.True(t, ok)
	assert.Equal(t, "steps", w.Value)

	// Nodes without widgets keep their values opaque.
	assert.Equal(t, []any{float64(42), "fixed"}, node(t, wf.Root, 1).Extra["widgets_values"])
}

func TestDecodeExpandsSubgraphInstances(t *testing.T) {
	e := newEnv(t)
	wf := e.load(t, "subgraph.json")

	a := node(t, wf.Root, 2)
	b := node(t, wf.Root, 3)
	require.Equal(t, graph.KindContainer, a.Kind)
	require.Equal(t, graph.KindContainer, b.Kind)
	assert.Equal(t, "Unpack A", a.Title)
	assert.Equal(t, "Unpack", b.Title)

	subA, subB := a.Subgraph(), b.Subgraph()
	require.NotNil(t, subA)
	require.NotNil(t, subB)
	assert.NotSame(t, subA, subB, "each container gets its own instance")
	assert.Equal(t, subA.ID, subB.ID)
	assert.Same(t, a, subA.Owner())
	assert.Equal(t, []graph.LinkID{1}, subA.Inputs[0].LinkIDs)
	assert.Equal(t, 1, subA.Links().Len())

	for _, sub := range []*graph.Graph{subA, subB} {
		out := node(t, sub, 1)
		assert.Equal(t, pipe.Resolved, out.Handler.(*pipe.PipeOut).State())
		assert.Equal(t, []string{"model", "clip"}, labels(out))
	}
	assert.Equal(t, []string{
		"9a1e0c2b-4f7d-4d2e-8b3a-6c5d4e3f2a10",
		"e0d4c3b2-a190-4f8e-9d7c-6b5a43210fed",
	}, wf.Definitions())
}

func TestRenameAfterLoadPropagatesIntoSubgraphs(t *testing.T) {
	e := newEnv(t)
	wf := e.load(t, "subgraph.json")

	in := node(t, wf.Root, 1).Handler.(*pipe.PipeIn)
	require.True(t, in.RenameSlot(2, "text_encoder"))

	for _, id := range []graph.NodeID{2, 3} {
		out := node(t, node(t, wf.Root, id).Subgraph(), 1)
		assert.Equal(t, []string{"model", "text_encoder"}, labels(out))
	}
}

func TestDecodeWithoutRegistry(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "pipe.json"))
	require.NoError(t, err)

	wf, err := workflow.Decode(data, workflow.Options{})
	require.NoError(t, err)
	for _, n := range wf.Root.Nodes() {
		assert.Nil(t, n.Handler, "node %s", n)
	}
	// Structural kinds still come from the type name.
	assert.Equal(t, graph.KindPassThrough, node(t, wf.Root, 3).Kind)
	assert.Len(t, node(t, wf.Root, 4).Outputs, 2)
}

func TestDecodeRecursiveSubgraph(t *testing.T) {
	const doc = `{
	  "nodes": [{"id": 1, "type": "loop"}],
	  "links": [],
	  "definitions": {"subgraphs": [
	    {"id": "loop", "nodes": [{"id": 1, "type": "loop"}], "links": []}
	  ]}
	}`
	_, err := workflow.Decode([]byte(doc), workflow.Options{})
	assert.ErrorIs(t, err, workflow.ErrRecursiveSubgraph)
}

func TestDecodeDuplicateNode(t *testing.T) {
	const doc = `{"nodes": [{"id": 1, "type": "A"}, {"id": 1, "type": "B"}], "links": []}`
	_, err := workflow.Decode([]byte(doc), workflow.Options{})
	assert.ErrorIs(t, err, graph.ErrDuplicateNode)
}

func TestValidate(t *testing.T) {
	valid, err := os.ReadFile(filepath.Join("testdata", "subgraph.json"))
	require.NoError(t, err)

	tests := []struct {
		name string
		doc  string
		ok   bool
	}{
		{"testdata", string(valid), true},
		{"minimal", `{"nodes": []}`, true},
		{"missing nodes", `{"links": []}`, false},
		{"node id not integer", `{"nodes": [{"id": "a", "type": "X"}]}`, false},
		{"empty type", `{"nodes": [{"id": 1, "type": ""}]}`, false},
		{"short link array", `{"nodes": [], "links": [[1, 2, 0]]}`, false},
		{"link object missing target", `{"nodes": [], "links": [{"id": 1, "origin_id": 1, "origin_slot": 0}]}`, false},
		{"malformed", `{"nodes": [`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := workflow.Validate([]byte(tt.doc))
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, workflow.ErrSchema)
		})
	}
}

func TestDecodeRejectsSchemaViolations(t *testing.T) {
	_, err := workflow.Decode([]byte(`{"nodes": [{"type": "X"}]}`), workflow.Options{})
	assert.ErrorIs(t, err, workflow.ErrSchema)

	_, err = workflow.Decode([]byte(`{"nodes": [{"type": "X"}]}`), workflow.Options{SkipSchema: true})
	assert.NoError(t, err)
}

func TestWriteJSONRoundTrip(t *testing.T) {
	e := newEnv(t)
	wf := e.load(t, "subgraph.json")

	in := node(t, wf.Root, 1).Handler.(*pipe.PipeIn)
	require.True(t, in.AddSlot())
	require.True(t, in.RenameSlot(3, "vae"))

	var buf bytes.Buffer
	require.NoError(t, workflow.WriteJSON(wf, &buf))
	require.NoError(t, workflow.Validate(buf.Bytes()))

	var raw struct {
		Nodes       []map[string]any `json:"nodes"`
		Links       []any            `json:"links"`
		Definitions struct {
			Subgraphs []map[string]any `json:"subgraphs"`
		} `json:"definitions"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.IsType(t, []any{}, raw.Links[0], "root links are arrays")
	require.Len(t, raw.Definitions.Subgraphs, 2)
	inner := raw.Definitions.Subgraphs[0]
	assert.IsType(t, map[string]any{}, inner["links"].([]any)[0], "subgraph links are objects")
	assert.Equal(t, float64(1), inner["version"], "unknown definition fields survive")
	assert.Equal(t, "Unused", raw.Definitions.Subgraphs[1]["name"])
	assert.Equal(t, float64(3), raw.Nodes[0]["slotCount"])

	e2 := newEnv(t)
	again := e2.decode(t, buf.Bytes())
	out := node(t, node(t, again.Root, 2).Subgraph(), 1)
	assert.Equal(t, []string{"model", "clip", "vae"}, labels(out))
	assert.Equal(t, "Unpack A", node(t, again.Root, 2).Title)
}

func TestWriteJSONKeepsOpaqueFields(t *testing.T) {
	e := newEnv(t)
	wf := e.load(t, "pipe.json")

	var buf bytes.Buffer
	require.NoError(t, workflow.WriteJSON(wf, &buf))

	var raw struct {
		Nodes []map[string]any `json:"nodes"`
		Extra map[string]any   `json:"extra"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	prim := raw.Nodes[0]
	assert.Equal(t, []any{float64(42), "fixed"}, prim["widgets_values"])
	assert.Equal(t, float64(0), prim["order"])
	assert.Equal(t, "PrimitiveInt", prim["properties"].(map[string]any)["Node name for S&R"])
	assert.Contains(t, raw.Extra, "ds")

	pipeIn := raw.Nodes[1]
	assert.Equal(t, []any{"seed", "steps"}, pipeIn["widgets_values"], "buttons are not serialized")
}

type loadRecorder struct {
	observability.NoopWorkflowHooks
	source string
	nodes  int
	err    error
}

func (r *loadRecorder) OnLoad(_ context.Context, source string, nodes int, _ time.Duration, err error) {
	r.source, r.nodes, r.err = source, nodes, err
}

func TestImportJSON(t *testing.T) {
	rec := &loadRecorder{}
	observability.SetWorkflowHooks(rec)
	t.Cleanup(observability.Reset)

	e := newEnv(t)
	path := filepath.Join("testdata", "subgraph.json")
	wf, err := workflow.ImportJSON(context.Background(), path, workflow.Options{Registry: e.reg})
	require.NoError(t, err)
	assert.NotNil(t, wf.Root)
	assert.Equal(t, path, rec.source)
	assert.Equal(t, 5, rec.nodes, "root nodes plus one nested node per instance")

	_, err = workflow.ImportJSON(context.Background(), filepath.Join(t.TempDir(), "missing.json"), workflow.Options{})
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Error(t, rec.err)
}

func TestExportJSON(t *testing.T) {
	e := newEnv(t)
	wf := e.load(t, "pipe.json")

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, workflow.ExportJSON(wf, path))

	again, err := workflow.ImportJSON(context.Background(), path, workflow.Options{Registry: e.reg})
	require.NoError(t, err)
	assert.Equal(t, wf.Root.NodeCount(), again.Root.NodeCount())
	assert.Equal(t, wf.Root.Links().Len(), again.Root.Links().Len())
}
