package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) inspectCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <workflow>",
		Short: "Show the resolved layout of every bundle node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), args[0], asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the layouts as JSON")
	return cmd
}

func (c *CLI) runInspect(ctx context.Context, path string, asJSON bool) error {
	prog := newProgress(c.Logger)
	s, err := c.loader().open(ctx, path)
	if err != nil {
		return err
	}
	reports := collectBundles(s.root())
	prog.done(fmt.Sprintf("Loaded %s", path))

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	printInspect(path, reports)
	return nil
}

func printInspect(path string, reports []bundleReport) {
	fmt.Fprintln(stdout, StyleTitle.Render(path))
	if len(reports) == 0 {
		printInfo("No bundle nodes")
		return
	}
	fmt.Fprintln(stdout, renderBundleTable(reports))
	printDetail("%s", summarize(reports))
}
