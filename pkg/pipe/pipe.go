package pipe

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/friendlypipe/pkg/bundle"
	"github.com/matzehuels/friendlypipe/pkg/graph"
	"github.com/matzehuels/friendlypipe/pkg/host"
)

// Node type names.
const (
	TypePipeIn   = "FriendlyPipeIn"
	TypePipeOut  = "FriendlyPipeOut"
	TypePipeEdit = "FriendlyPipeEdit"
)

// Category is the editor menu category of the bundle nodes.
const Category = "utils/pipe"

// Defaults for [Options].
const (
	DefaultMaxDepth             = 50
	DefaultContainerSearchDepth = 10
	DefaultRetryAttempts        = 3
	DefaultRetryDelay           = 200 * time.Millisecond
)

// Host is the editor environment a bundle node runs in.
type Host interface {
	// SetDirtyCanvas requests a redraw of the foreground and/or background.
	SetDirtyCanvas(fg, bg bool)
	// Schedule runs fn once after delay, on the editor's event thread.
	Schedule(delay time.Duration, fn func())
}

// RetryPolicy controls the resyncs scheduled after a node is restored from
// a saved workflow. Attempt n runs n*Delay after configuration.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p == (RetryPolicy{}) {
		return RetryPolicy{Attempts: DefaultRetryAttempts, Delay: DefaultRetryDelay}
	}
	q := p
	if q.Delay <= 0 {
		q.Delay = DefaultRetryDelay
	}
	if q.Attempts < 0 {
		q.Attempts = 0
	}
	return q
}

func (p RetryPolicy) schedule(h Host, fn func()) {
	for n := 1; n <= p.Attempts; n++ {
		h.Schedule(time.Duration(n)*p.Delay, fn)
	}
}

// Options configures an [Extension]. Zero fields take their defaults.
type Options struct {
	// Logger receives debug-level traversal diagnostics. Nil discards them.
	Logger *log.Logger
	// Host receives redraw requests and delayed resyncs. Nil uses a
	// [host.Deferred] that only runs callbacks when drained.
	Host Host

	MaxDepth             int
	MaxSlots             int
	ContainerSearchDepth int
	Retry                RetryPolicy
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	if o.Host == nil {
		o.Host = host.NewDeferred()
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxSlots <= 0 || o.MaxSlots > bundle.MaxSlots {
		o.MaxSlots = bundle.MaxSlots
	}
	if o.ContainerSearchDepth <= 0 {
		o.ContainerSearchDepth = DefaultContainerSearchDepth
	}
	o.Retry = o.Retry.normalized()
	return o
}

// Extension wires the bundle node behaviors into a node registry.
type Extension struct {
	opts     Options
	resolver *Resolver
}

// New creates an extension with the given options.
func New(opts Options) *Extension {
	opts = opts.withDefaults()
	return &Extension{
		opts: opts,
		resolver: &Resolver{
			logger:      opts.Logger,
			maxDepth:    opts.MaxDepth,
			searchDepth: opts.ContainerSearchDepth,
		},
	}
}

// Options returns the effective options.
func (e *Extension) Options() Options { return e.opts }

// Resolver returns the traversal context shared by every node of the
// extension.
func (e *Extension) Resolver() *Resolver { return e.resolver }

// Bind sets the root graph used to repair missing container back-references.
func (e *Extension) Bind(root *graph.Graph) { e.resolver.Root = root }

// Install registers the three bundle node types.
func (e *Extension) Install(reg *graph.Registry) error {
	for _, def := range e.nodeDefs() {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}

func (e *Extension) nodeDefs() []graph.NodeDef {
	slots := make([]graph.SlotDef, 0, bundle.MaxSlots)
	outs := make([]graph.SlotDef, 0, bundle.MaxSlots)
	for i := 1; i <= bundle.MaxSlots; i++ {
		slots = append(slots, graph.SlotDef{Name: bundle.SlotKey(i), Type: graph.TypeAny})
		outs = append(outs, graph.SlotDef{Name: bundle.SlotKey(i), Type: graph.TypeAny})
	}
	pipeSlot := graph.SlotDef{Name: "pipe", Type: bundle.TypeName}

	return []graph.NodeDef{
		{
			Type:        TypePipeIn,
			DisplayName: "Friendly Pipe In",
			Category:    Category,
			Description: "Bundles up to 80 named inputs into a single pipe output.",
			Kind:        graph.KindProducer,
			Inputs:      slots,
			Outputs:     []graph.SlotDef{pipeSlot},
			Factory:     func(n *graph.Node) any { return newPipeIn(e, n) },
		},
		{
			Type:        TypePipeOut,
			DisplayName: "Friendly Pipe Out",
			Category:    Category,
			Description: "Unpacks a pipe into outputs mirroring its source layout.",
			Kind:        graph.KindConsumer,
			Inputs:      []graph.SlotDef{pipeSlot},
			Outputs:     outs,
			Factory:     func(n *graph.Node) any { return newPipeOut(e, n) },
		},
		{
			Type:        TypePipeEdit,
			DisplayName: "Friendly Pipe Edit",
			Category:    Category,
			Description: "Passes a pipe through, overriding incoming slots and appending new ones.",
			Kind:        graph.KindEditor,
			Inputs:      append([]graph.SlotDef{pipeSlot}, slots...),
			Outputs:     []graph.SlotDef{pipeSlot},
			Factory:     func(n *graph.Node) any { return newPipeEdit(e, n) },
		},
	}
}
