// Package pipe implements the FriendlyPipe bundle nodes and the graph
// traversal that keeps their layouts consistent.
//
// # Overview
//
// A bundle is one wire carrying up to 80 named slots. Three node types work
// with it:
//
//   - FriendlyPipeIn ([PipeIn]) bundles its labeled inputs and defines the
//     layout.
//   - FriendlyPipeOut ([PipeOut]) unpacks a bundle into outputs that mirror
//     the layout of the bundle's source.
//   - FriendlyPipeEdit ([PipeEdit]) passes a bundle through, overriding
//     incoming slots on exposed inputs and appending slots of its own.
//
// # Traversal
//
// Layouts move in two directions. A consumer or editor looks upstream with
// [Resolver.ResolveBundle], which walks back through reroutes, primitives
// and subgraph boundaries ([Resolver.FindOriginalSource]) until it reaches a
// producer or editor. A producer or editor whose layout changed pushes the
// change forward with [Resolver.NotifyDownstream], which resyncs every
// reachable consumer and editor once.
//
// Both walks carry a visited set that lives for one call and stop at a
// depth cap, so cyclic graphs terminate. A missing link, container or
// producer is never an error: the walk stops on that path and consumers
// fall back to a single wildcard slot.
//
// # Nested bundles
//
// A slot may itself carry a bundle. Producers record, per slot, the node
// that defines the bundle in it. When a consumer output typed
// [bundle.TypeName] feeds another consumer, resolution asks the first
// consumer's source for the provenance of that slot instead of walking
// further upstream.
//
// # Registration
//
// [New] creates an [Extension]; [Extension.Install] registers the three
// node types with a [graph.Registry]. After loading a workflow, call
// [Extension.Bind] with the root graph and drain the [Host] so that the
// post-load resyncs run.
//
//	reg := graph.NewRegistry()
//	ext := pipe.New(pipe.Options{Logger: logger})
//	if err := ext.Install(reg); err != nil {
//		return err
//	}
package pipe
