package cli

import (
	"context"

	"github.com/spf13/cobra"

	apperr "github.com/matzehuels/friendlypipe/pkg/errors"
	"github.com/matzehuels/friendlypipe/pkg/workflow"
)

func (c *CLI) saveCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "save <workflow>",
		Short: "Rewrite a workflow with its bundle layouts resynced",
		Long: `Save loads the workflow, lets every bundle node resync with its source,
and writes the result the way the editor saves it. Stale consumer outputs
left behind by an edit made elsewhere are brought up to date.

Without --output the workflow is written to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSave(cmd.Context(), args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func (c *CLI) runSave(ctx context.Context, path, output string) error {
	s, err := c.loader().open(ctx, path)
	if err != nil {
		return err
	}
	if output == "" || output == "-" {
		return workflow.WriteJSON(s.wf, stdout)
	}
	if err := workflow.ExportJSON(s.wf, output); err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidPath, err, "write %s", output)
	}
	printSuccess("Saved %s", path)
	printFile(output)
	return nil
}
