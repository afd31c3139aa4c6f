package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	apperr "github.com/matzehuels/friendlypipe/pkg/errors"
	"github.com/matzehuels/friendlypipe/pkg/graph"
	"github.com/matzehuels/friendlypipe/pkg/workflow"
)

func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <workflow>",
		Short: "Check a workflow against the schema and for broken links",
		Long: `Validate runs the workflow JSON schema, then loads the workflow and checks
that every link agrees with the slots it connects. Cycles are reported as
warnings: the editor allows them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) runValidate(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperr.FromLoad(err, path)
	}
	if err := workflow.Validate(data); err != nil {
		printError("schema")
		printDetail("%s", err)
		return apperr.Wrap(apperr.ErrCodeInvalidWorkflow, err, "%s does not match the workflow schema", path)
	}
	printSuccess("schema")

	s, err := c.loader().decode(ctx, data, path)
	if err != nil {
		return err
	}
	problems := linkProblems(s.root())
	if len(problems) > 0 {
		printError("links")
		for _, p := range problems {
			printDetail("%s", p)
		}
		return apperr.New(apperr.ErrCodeInvalidWorkflow, "%s has %d broken link(s)", path, len(problems))
	}
	printSuccess("links")

	for _, cyc := range s.root().Cycles() {
		printWarning("cycle: %s", formatCycle(cyc))
	}
	return nil
}

// linkProblems flattens the joined error of graph.Validate.
func linkProblems(g *graph.Graph) []string {
	err := g.Validate()
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range j.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

func formatCycle(ids []graph.NodeID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	if len(parts) > 0 {
		parts = append(parts, parts[0])
	}
	return strings.Join(parts, " → ")
}
