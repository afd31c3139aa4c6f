package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	apperr "github.com/matzehuels/friendlypipe/pkg/errors"
	"github.com/matzehuels/friendlypipe/pkg/graph"
	"github.com/matzehuels/friendlypipe/pkg/pipe"
)

func (c *CLI) resolveCommand() *cobra.Command {
	var slot int
	cmd := &cobra.Command{
		Use:   "resolve <workflow> <node-path>",
		Short: "Find the bundle producer feeding a node",
		Long: `Walk upstream from a node through reroutes and subgraph boundaries and
print the FriendlyPipeIn or FriendlyPipeEdit node the bundle comes from.

A node path is a node id, prefixed by the ids of the containers it is
nested in: "12" is root node 12, "12/5" is node 5 inside container 12.

For bundle consumers and editors the pipe input is resolved. For any other
node, --slot selects the output to walk back from.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			slotSet := cmd.Flags().Changed("slot")
			return c.runResolve(cmd.Context(), args[0], args[1], slot, slotSet)
		},
	}
	cmd.Flags().IntVar(&slot, "slot", 0, "output slot to resolve from")
	return cmd
}

func (c *CLI) runResolve(ctx context.Context, path, nodePath string, slot int, slotSet bool) error {
	s, err := c.loader().open(ctx, path)
	if err != nil {
		return err
	}
	n, err := findNode(s.root(), nodePath)
	if err != nil {
		return err
	}

	r := s.ext.Resolver()
	var src *graph.Node
	switch {
	case !slotSet && (n.Kind == graph.KindConsumer || n.Kind == graph.KindEditor):
		res := r.ResolveBundle(n, 0)
		src = res.Source
		printKeyValue("state", res.State.String())
	default:
		if err := apperr.ValidateSlot(slot, len(n.Outputs)); err != nil {
			return err
		}
		src = r.FindOriginalSource(n, slot)
	}

	printKeyValue("node", fmt.Sprintf("%s (%s)", n.Path(), n))
	if src == nil {
		printWarning("no bundle source found")
		return nil
	}
	printKeyValue("source", fmt.Sprintf("%s (%s)", src.Path(), src))
	if o, ok := src.Handler.(pipe.LayoutOwner); ok {
		l := o.Layout()
		for i := 1; i <= l.Count; i++ {
			printDetail("%d  %s:%s", i, l.Name(i), l.Type(i))
		}
	}
	return nil
}

// findNode looks up a node path such as "12/5" in root.
func findNode(root *graph.Graph, nodePath string) (*graph.Node, error) {
	ids, err := apperr.ParseNodePath(nodePath)
	if err != nil {
		return nil, err
	}
	g := root
	var n *graph.Node
	for i, id := range ids {
		if g == nil {
			return nil, apperr.New(apperr.ErrCodeNodeNotFound, "node %s is not a container", joinPath(ids[:i]))
		}
		var ok bool
		n, ok = g.Node(graph.NodeID(id))
		if !ok {
			return nil, apperr.New(apperr.ErrCodeNodeNotFound, "node %s not found", joinPath(ids[:i+1]))
		}
		g = n.Subgraph()
	}
	return n, nil
}

func joinPath(ids []int) string {
	s := ""
	for i, id := range ids {
		if i > 0 {
			s += "/"
		}
		s += fmt.Sprint(id)
	}
	return s
}
