package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/friendlypipe/pkg/bundle"
	"github.com/matzehuels/friendlypipe/pkg/graph"
	"github.com/matzehuels/friendlypipe/pkg/pipe"
)

func (c *CLI) runCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "run <workflow>",
		Short: "Dry-run the workflow and show the values bundles deliver",
		Long: `Run queues the workflow the way the editor does before execution, then
evaluates every bundle node with the backend semantics: producers pack
their connected inputs, editors override and append, consumers unpack.

Values of ordinary nodes are symbolic ("Type#id:output"), so the result
shows which upstream output ends up on every consumer slot.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRun(cmd.Context(), args[0], asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the delivered values as JSON")
	return cmd
}

// deliveredSlot is one consumer output after a dry run.
type deliveredSlot struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

type delivery struct {
	Path  string          `json:"path"`
	Slots []deliveredSlot `json:"slots"`
}

func (c *CLI) runRun(ctx context.Context, path string, asJSON bool) error {
	s, err := c.loader().open(ctx, path)
	if err != nil {
		return err
	}
	n := s.root().StartExecution()
	c.Logger.Debug("execution started", "nodes", n)

	out := dryRun(s.ext.Resolver(), s.root())
	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintln(stdout, StyleTitle.Render(path))
	if len(out) == 0 {
		printInfo("No bundle consumers")
		return nil
	}
	for _, d := range out {
		printKeyValue("node", d.Path)
		for _, sl := range d.Slots {
			v := sl.Value
			if v == "" {
				v = "(empty)"
			}
			printDetail("%d  %s = %s", sl.Index, sl.Name, v)
		}
	}
	return nil
}

// dryRun evaluates every consumer of root and its nested graphs.
func dryRun(r *pipe.Resolver, root *graph.Graph) []delivery {
	e := &evaluator{res: r, memo: map[endpointKey]any{}, active: map[endpointKey]bool{}}
	var out []delivery
	root.Walk(func(n *graph.Node) bool {
		if n.Kind != graph.KindConsumer {
			return true
		}
		d := delivery{Path: n.Path(), Slots: make([]deliveredSlot, 0, len(n.Outputs))}
		for i, o := range n.Outputs {
			sl := deliveredSlot{Index: i + 1, Name: o.DisplayName()}
			if v := e.output(n, i); v != nil {
				sl.Value = formatValue(v)
			}
			d.Slots = append(d.Slots, sl)
		}
		out = append(out, d)
		return true
	})
	return out
}

func formatValue(v any) string {
	if b, ok := v.(bundle.Bundle); ok {
		return fmt.Sprintf("bundle(%d)", b.SlotCount)
	}
	return fmt.Sprint(v)
}

type endpointKey struct {
	node *graph.Node
	slot int
}

// evaluator computes output values on demand. Cycles evaluate to nil.
type evaluator struct {
	res    *pipe.Resolver
	memo   map[endpointKey]any
	active map[endpointKey]bool
}

// input returns the value arriving at input i of n.
func (e *evaluator) input(n *graph.Node, i int) any {
	in := n.Input(i)
	if !in.Connected() {
		return nil
	}
	g := n.Graph()
	l, ok := g.Link(in.Link)
	if !ok {
		return nil
	}
	if l.FromBoundary() {
		ep, ok := e.res.ResolveInbound(e.res.Container(g), l.OriginSlot)
		if !ok {
			return nil
		}
		return e.output(ep.Node, ep.Slot)
	}
	origin, ok := g.Node(l.OriginID)
	if !ok {
		return nil
	}
	return e.output(origin, l.OriginSlot)
}

func (e *evaluator) output(n *graph.Node, slot int) any {
	key := endpointKey{n, slot}
	if v, ok := e.memo[key]; ok {
		return v
	}
	if e.active[key] {
		return nil
	}
	e.active[key] = true
	v := e.eval(n, slot)
	delete(e.active, key)
	e.memo[key] = v
	return v
}

func (e *evaluator) eval(n *graph.Node, slot int) any {
	switch n.Kind {
	case graph.KindPassThrough:
		return e.input(n, 0)
	case graph.KindBoundaryIn:
		ep, ok := e.res.ResolveInbound(e.res.Container(n.Graph()), n.BoundaryIndex())
		if !ok {
			return nil
		}
		return e.output(ep.Node, ep.Slot)
	case graph.KindContainer:
		eps := e.res.ResolveOutbound(n, slot)
		if len(eps) == 0 {
			return nil
		}
		return e.output(eps[0].Node, eps[0].Slot)
	case graph.KindProducer:
		count, names := backendLayout(n)
		return bundle.Pack(count, names, e.namedInputs(n, 0))
	case graph.KindEditor:
		in, _ := e.input(n, 0).(bundle.Bundle)
		if in.Slots == nil {
			in = bundle.New(0)
		}
		count, names := backendLayout(n)
		return bundle.Edit(in, count, names, e.namedInputs(n, 1))
	case graph.KindConsumer:
		b, ok := e.input(n, 0).(bundle.Bundle)
		if !ok {
			return nil
		}
		vals := bundle.Unpack(b, bundle.MaxSlots)
		if slot < 0 || slot >= len(vals) {
			return nil
		}
		return vals[slot]
	}
	if o := n.Output(slot); o != nil {
		return fmt.Sprintf("%s:%s", n, o.DisplayName())
	}
	return nil
}

// namedInputs collects the connected inputs of n from index first on,
// keyed by input name as the backend receives them.
func (e *evaluator) namedInputs(n *graph.Node, first int) map[string]any {
	out := make(map[string]any)
	for i := first; i < len(n.Inputs); i++ {
		if v := e.input(n, i); v != nil {
			out[n.Inputs[i].Name] = v
		}
	}
	return out
}

// backendLayout reads the hidden properties written by OnExecutionStart.
func backendLayout(n *graph.Node) (int, string) {
	count, _ := n.Properties["slot_count"].(int)
	names, _ := n.Properties["slot_names"].(string)
	return count, names
}
