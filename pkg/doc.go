// Package pkg provides the libraries behind friendlypipe, a toolkit for the
// FriendlyPipe bundle nodes of node-graph workflow editors.
//
// # Overview
//
// A FriendlyPipe bundle carries many named values over one wire. The pkg
// directory is organized into four areas:
//
//  1. Domain model ([graph], [bundle]) - editor graphs and bundle values
//  2. Bundle nodes ([pipe], [host]) - producer, consumer and editor nodes
//     with the traversal that keeps their layouts in sync
//  3. Serialization ([workflow], [render/nodelink]) - workflow JSON in,
//     diagrams out
//  4. Infrastructure ([cache], [config], [errors], [observability], [watch],
//     [buildinfo])
//
// # Architecture
//
// The typical data flow:
//
//	workflow JSON
//	     ↓
//	[workflow] package (decode, expand subgraph instances)
//	     ↓
//	[graph] package (nodes, links, nested graphs)
//	     ↓
//	[pipe] package (bind bundle nodes, resolve layouts)
//	     ↓
//	[render/nodelink] package (DOT, SVG, PDF, PNG)
//
// # Quick Start
//
// Load a workflow and inspect its bundle consumers:
//
//	h := host.NewDeferred()
//	ext := pipe.New(pipe.Options{Host: h})
//	reg := graph.NewRegistry()
//	if err := ext.Install(reg); err != nil {
//	    return err
//	}
//
//	wf, err := workflow.ImportJSON(ctx, "flow.json", workflow.Options{Registry: reg})
//	if err != nil {
//	    return err
//	}
//	ext.Bind(wf.Root)
//	h.Drain()
//
//	wf.Root.Walk(func(n *graph.Node) bool {
//	    if out, ok := n.Handler.(*pipe.PipeOut); ok {
//	        fmt.Println(n.Path(), out.State(), out.Layout().Count)
//	    }
//	    return true
//	})
//
// # Main Packages
//
// [graph] - Node graph with typed slots, links, nested container graphs and
// boundary markers. Nodes carry a closed [graph.Kind] tag.
//
// [bundle] - The runtime value on FRIENDLY_PIPE links: numbered slots with
// names, packed by producers and unpacked by consumers.
//
// [pipe] - The FriendlyPipeIn, FriendlyPipeOut and FriendlyPipeEdit nodes.
// Resolves bundle sources upstream through reroutes and subgraph boundaries,
// and propagates layout changes downstream.
//
// [host] - Redraw requests and delayed callbacks, on a virtual clock for
// batch tools or a real-time loop for long-running commands.
//
// [workflow] - LiteGraph workflow JSON import and export with schema
// validation.
//
// [render/nodelink] - Graphviz diagrams of workflow graphs, with subgraph
// instances drawn as clusters.
//
// [cache] - Artifact cache with file, Redis and null backends.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...           # All tests
//	go test ./pkg/pipe/...      # Specific package
//	go test -run Example        # Examples only
//
// [graph]: https://pkg.go.dev/github.com/matzehuels/friendlypipe/pkg/graph
// [graph.Kind]: https://pkg.go.dev/github.com/matzehuels/friendlypipe/pkg/graph#Kind
// [bundle]: https://pkg.go.dev/github.com/matzehuels/friendlypipe/pkg/bundle
// [pipe]: https://pkg.go.dev/github.com/matzehuels/friendlypipe/pkg/pipe
// [host]: https://pkg.go.dev/github.com/matzehuels/friendlypipe/pkg/host
// [workflow]: https://pkg.go.dev/github.com/matzehuels/friendlypipe/pkg/workflow
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/friendlypipe/pkg/render/nodelink
// [cache]: https://pkg.go.dev/github.com/matzehuels/friendlypipe/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/friendlypipe/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/friendlypipe/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/friendlypipe/pkg/observability
// [watch]: https://pkg.go.dev/github.com/matzehuels/friendlypipe/pkg/watch
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/friendlypipe/pkg/buildinfo
package pkg
