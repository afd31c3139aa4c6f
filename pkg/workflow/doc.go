// Package workflow reads and writes editor workflows in the LiteGraph JSON
// layout used by ComfyUI.
//
// # Overview
//
// A workflow file holds the root graph and, under definitions.subgraphs, the
// definitions of reusable subgraphs. Decoding produces a [graph.Graph] tree:
// every node whose type is a definition id becomes a container owning its
// own expanded copy of the definition, so two instances of one subgraph
// never share nodes or links.
//
// # Format
//
//	{
//	  "last_node_id": 3,
//	  "last_link_id": 2,
//	  "nodes": [
//	    {"id": 1, "type": "FriendlyPipeIn", "inputs": [...], "outputs": [...],
//	     "widgets_values": ["seed"], "slotCount": 1, "slotNames": {"1": "seed"}}
//	  ],
//	  "links": [[1, 1, 0, 2, 0, "FRIENDLY_PIPE"]],
//	  "definitions": {"subgraphs": [
//	    {"id": "9a1e...", "inputs": [{"name": "pipe", "linkIds": [1]}],
//	     "nodes": [...],
//	     "links": [{"id": 1, "origin_id": -10, "origin_slot": 0,
//	                "target_id": 1, "target_slot": 0}]}
//	  ]},
//	  "version": 0.4
//	}
//
// Link endpoints -10 and -20 inside a definition stand for the subgraph's
// input and output boundary; the paired slot is the container's input or
// output index.
//
// Node members the codec does not map onto [graph.Node] (flags, order, mode,
// colors, extension-owned state such as slotCount) are kept in
// [graph.Node.Extra]. Configuration hooks read their state from there, and
// [WriteJSON] writes it back after running the serialization hooks. Unknown
// members of definitions and the top-level groups, config and extra objects
// round-trip unchanged.
//
// # Import
//
// [ImportJSON] reads a file and reports the load to the registered
// observability hooks; [ReadJSON] and [Decode] work on readers and bytes.
// Each validates the document against the embedded JSON Schema first
// (disable with Options.SkipSchema):
//
//	wf, err := workflow.ImportJSON(ctx, "flow.json", workflow.Options{Registry: reg})
//	if err != nil {
//	    return err
//	}
//	ext.Bind(wf.Root)
//
// Node handlers schedule their first resyncs while being configured; the
// caller's host runs them.
//
// # Export
//
// [ExportJSON] and [WriteJSON] write a workflow back. Root links are written
// as arrays and subgraph links as objects, matching what the editor expects.
package workflow
