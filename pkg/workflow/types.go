package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/matzehuels/friendlypipe/pkg/graph"
)

// document is the top-level workflow object.
type document struct {
	ID          string          `json:"id,omitempty"`
	Revision    int             `json:"revision,omitempty"`
	LastNodeID  graph.NodeID    `json:"last_node_id"`
	LastLinkID  graph.LinkID    `json:"last_link_id"`
	Nodes       []node          `json:"nodes"`
	Links       []link          `json:"links"`
	Groups      json.RawMessage `json:"groups,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
	Extra       json.RawMessage `json:"extra,omitempty"`
	Definitions *definitions    `json:"definitions,omitempty"`
	Version     float64         `json:"version"`
}

type definitions struct {
	Subgraphs []subgraph `json:"subgraphs"`
}

// subgraph is one entry of definitions.subgraphs. Fields the codec does not
// interpret are kept in Extra and written back unchanged.
type subgraph struct {
	ID      string     `json:"id"`
	Name    string     `json:"name,omitempty"`
	Inputs  []boundary `json:"inputs"`
	Outputs []boundary `json:"outputs"`
	Nodes   []node     `json:"nodes"`
	Links   []link     `json:"links"`

	Extra map[string]any `json:"-"`
}

var subgraphKeys = []string{"id", "name", "inputs", "outputs", "nodes", "links"}

func (s *subgraph) UnmarshalJSON(data []byte) error {
	type plain subgraph
	extra, err := splitKnown(data, (*plain)(s), subgraphKeys)
	if err != nil {
		return err
	}
	s.Extra = extra
	return nil
}

func (s subgraph) MarshalJSON() ([]byte, error) {
	type plain subgraph
	return mergeKnown(plain(s), s.Extra)
}

// boundary is an input or output slot of a subgraph definition.
type boundary struct {
	ID      string         `json:"id,omitempty"`
	Name    string         `json:"name"`
	Type    slotType       `json:"type"`
	Label   string         `json:"label,omitempty"`
	LinkIDs []graph.LinkID `json:"linkIds"`
}

// node is one entry of a nodes array. Everything the codec does not map
// onto [graph.Node] fields (flags, order, mode, colors and the
// extension-owned fields) is kept in Extra.
type node struct {
	ID            graph.NodeID    `json:"id"`
	Type          string          `json:"type"`
	Title         string          `json:"title,omitempty"`
	Pos           vec2            `json:"pos"`
	Size          vec2            `json:"size"`
	Inputs        []slot          `json:"inputs,omitempty"`
	Outputs       []slot          `json:"outputs,omitempty"`
	Properties    map[string]any  `json:"properties"`
	WidgetsValues json.RawMessage `json:"widgets_values,omitempty"`

	Extra map[string]any `json:"-"`
}

var nodeKeys = []string{"id", "type", "title", "pos", "size", "inputs", "outputs", "properties", "widgets_values"}

func (n *node) UnmarshalJSON(data []byte) error {
	type plain node
	extra, err := splitKnown(data, (*plain)(n), nodeKeys)
	if err != nil {
		return err
	}
	n.Extra = extra
	return nil
}

func (n node) MarshalJSON() ([]byte, error) {
	type plain node
	return mergeKnown(plain(n), n.Extra)
}

// slot is a node input or output. Inputs carry Link, outputs carry Links.
type slot struct {
	Name  string         `json:"name"`
	Type  slotType       `json:"type"`
	Label string         `json:"label,omitempty"`
	Link  *graph.LinkID  `json:"link,omitempty"`
	Links []graph.LinkID `json:"links,omitempty"`
}

// slotType is a slot type name. Editors occasionally store non-string types
// (numeric event types, combo value lists); those decode as the wildcard.
type slotType string

func (t *slotType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = graph.TypeAny
		return nil
	}
	*t = slotType(s)
	return nil
}

// vec2 is a position or size. Older editors wrote it as {"0": x, "1": y}.
type vec2 [2]float64

func (v *vec2) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var m map[string]float64
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		*v = vec2{m["0"], m["1"]}
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var a []float64
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	for i := 0; i < len(a) && i < 2; i++ {
		v[i] = a[i]
	}
	return nil
}

// link is a persisted link. Root graphs store links as arrays
// [id, origin_id, origin_slot, target_id, target_slot, type]; subgraph
// definitions store them as objects. Both forms are accepted everywhere.
type link struct {
	ID         graph.LinkID `json:"id"`
	OriginID   graph.NodeID `json:"origin_id"`
	OriginSlot int          `json:"origin_slot"`
	TargetID   graph.NodeID `json:"target_id"`
	TargetSlot int          `json:"target_slot"`
	Type       slotType     `json:"type"`

	array bool
}

func (l *link) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		type plain link
		return json.Unmarshal(data, (*plain)(l))
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) < 5 {
		return fmt.Errorf("link array has %d elements, want at least 5", len(parts))
	}
	ints := make([]int, 5)
	for i := range ints {
		if err := json.Unmarshal(parts[i], &ints[i]); err != nil {
			return fmt.Errorf("link element %d: %w", i, err)
		}
	}
	*l = link{
		ID:         graph.LinkID(ints[0]),
		OriginID:   graph.NodeID(ints[1]),
		OriginSlot: ints[2],
		TargetID:   graph.NodeID(ints[3]),
		TargetSlot: ints[4],
		Type:       graph.TypeAny,
		array:      true,
	}
	if len(parts) > 5 {
		if err := l.Type.UnmarshalJSON(parts[5]); err != nil {
			return err
		}
	}
	return nil
}

func (l link) MarshalJSON() ([]byte, error) {
	if l.array {
		return json.Marshal([]any{l.ID, l.OriginID, l.OriginSlot, l.TargetID, l.TargetSlot, string(l.Type)})
	}
	type plain link
	return json.Marshal(plain(l))
}

// splitKnown decodes data into v and returns the object members whose keys
// are not in known.
func splitKnown(data []byte, v any, known []string) (map[string]any, error) {
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if all == nil {
		all = map[string]any{}
	}
	return all, nil
}

// mergeKnown encodes v and adds the members of extra that v does not set.
func mergeKnown(v any, extra map[string]any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return data, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(obj)+len(extra))
	maps.Copy(out, extra)
	for k, raw := range obj {
		out[k] = raw
	}
	return json.Marshal(out)
}
