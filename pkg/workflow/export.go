package workflow

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/matzehuels/friendlypipe/pkg/graph"
)

// WriteJSON encodes wf and writes it to w.
//
// Every node's serialization hook runs first, so extension-owned fields
// reflect the live state. Root links are written as arrays and subgraph
// links as objects. Each subgraph definition is written from the first
// instance found in a depth-first walk of the root graph; definitions
// without an instance are written back as they were read.
func WriteJSON(wf *Workflow, w io.Writer) error {
	doc := document{
		ID:         wf.ID,
		Revision:   wf.Revision,
		LastNodeID: wf.Root.LastNodeID(),
		LastLinkID: wf.Root.LastLinkID(),
		Nodes:      encodeNodes(wf.Root),
		Links:      encodeLinks(wf.Root, true),
		Groups:     wf.groups,
		Config:     wf.config,
		Extra:      wf.extra,
		Version:    wf.Version,
	}
	if defs := encodeDefinitions(wf); len(defs) > 0 {
		doc.Definitions = &definitions{Subgraphs: defs}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes wf to a file at path.
func ExportJSON(wf *Workflow, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(wf, f)
}

func encodeDefinitions(wf *Workflow) []subgraph {
	instances := make(map[string]*graph.Graph)
	wf.Root.Walk(func(n *graph.Node) bool {
		if sub := n.Subgraph(); sub != nil {
			if _, ok := instances[sub.ID]; !ok {
				instances[sub.ID] = sub
			}
		}
		return true
	})

	out := make([]subgraph, 0, len(wf.defs))
	for _, def := range wf.defs {
		sub, ok := instances[def.ID]
		if !ok {
			out = append(out, def)
			continue
		}
		out = append(out, subgraph{
			ID:      sub.ID,
			Name:    sub.Name,
			Inputs:  encodeBoundary(sub.Inputs),
			Outputs: encodeBoundary(sub.Outputs),
			Nodes:   encodeNodes(sub),
			Links:   encodeLinks(sub, false),
			Extra:   sub.Extra,
		})
	}
	return out
}

func encodeBoundary(slots []graph.BoundarySlot) []boundary {
	out := make([]boundary, len(slots))
	for i, s := range slots {
		ids := slices.Clone(s.LinkIDs)
		if ids == nil {
			ids = []graph.LinkID{}
		}
		out[i] = boundary{Name: s.Name, Type: slotType(s.Type), LinkIDs: ids}
	}
	return out
}

func encodeNodes(g *graph.Graph) []node {
	nodes := g.Nodes()
	out := make([]node, len(nodes))
	for i, n := range nodes {
		out[i] = encodeNode(n)
	}
	return out
}

func encodeNode(n *graph.Node) node {
	extra := make(map[string]any, len(n.Extra))
	maps.Copy(extra, n.Extra)
	if s, ok := n.Handler.(graph.Serializer); ok {
		s.OnSerialize(extra)
	}
	props := make(map[string]any, len(n.Properties))
	maps.Copy(props, n.Properties)

	nd := node{
		ID:         n.ID,
		Type:       n.Type,
		Title:      n.Title,
		Pos:        vec2(n.Pos),
		Size:       vec2(n.Size),
		Properties: props,
		Inputs:     make([]slot, len(n.Inputs)),
		Outputs:    make([]slot, len(n.Outputs)),
		Extra:      extra,
	}
	for i, in := range n.Inputs {
		s := slot{Name: in.Name, Type: slotType(in.Type), Label: in.Label}
		if in.Connected() {
			id := in.Link
			s.Link = &id
		}
		nd.Inputs[i] = s
	}
	for i, o := range n.Outputs {
		nd.Outputs[i] = slot{
			Name:  o.Name,
			Type:  slotType(o.Type),
			Label: o.Label,
			Links: slices.Clone(o.Links),
		}
	}
	if widgets := serializable(n); len(widgets) > 0 {
		values := make([]any, len(widgets))
		for i, w := range widgets {
			values[i] = w.Value
		}
		if raw, err := json.Marshal(values); err == nil {
			nd.WidgetsValues = raw
			delete(nd.Extra, keyWidgetsValues)
		}
	}
	return nd
}

func encodeLinks(g *graph.Graph, array bool) []link {
	all := g.Links().All()
	out := make([]link, len(all))
	for i, l := range all {
		out[i] = link{
			ID:         l.ID,
			OriginID:   l.OriginID,
			OriginSlot: l.OriginSlot,
			TargetID:   l.TargetID,
			TargetSlot: l.TargetSlot,
			Type:       slotType(l.Type),
			array:      array,
		}
	}
	return out
}
