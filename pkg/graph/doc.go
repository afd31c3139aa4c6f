// Package graph models the node graph of a visual workflow editor.
//
// A [Graph] holds [Node] values connected by [Link] values. Each node has
// ordered input slots (at most one incoming link each) and output slots (any
// number of outgoing links). Container nodes own a nested graph; inside it,
// links may start or end at the container boundary, marked by the negative
// sentinel ids [BoundaryInputID] and [BoundaryOutputID].
//
// # Node Kinds
//
// Every node carries a closed [Kind] tag so traversal code can dispatch on
// it without probing for optional behavior:
//
//	graph.KindPassThrough  // Reroute, PrimitiveNode
//	graph.KindContainer    // owns a nested graph
//	graph.KindBoundaryIn   // graph/input marker inside a nested graph
//	graph.KindBoundaryOut  // graph/output marker inside a nested graph
//	graph.KindProducer     // bundle producer
//	graph.KindConsumer     // bundle consumer
//	graph.KindEditor       // bundle editor
//
// # Links
//
// Link storage sits behind the [LinkStore] interface. Root graphs use the
// array-like [LinkList]; nested graphs use the associative [LinkMap]. Both
// return false for unknown and negative ids, so lookups never panic.
//
// # Registry and Hooks
//
// A [Registry] maps type names to [NodeDef] values. [Graph.Create] builds a
// node from its definition, attaches the handler returned by the definition's
// Factory, and calls OnNodeCreated. Handlers opt into the other lifecycle
// callbacks by implementing [ConnectionObserver], [Serializer], [Configurer]
// or [ExecutionStarter]:
//
//	reg := graph.NewRegistry()
//	g := graph.New(reg)
//	a, _ := g.Create("Reroute")
//	b, _ := g.Create("Reroute")
//	g.Connect(a, 0, b, 0)
//
// Graph is not safe for concurrent use.
package graph
