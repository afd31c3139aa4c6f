package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func (c *CLI) browseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browse <workflow>",
		Short: "Browse bundle nodes and their slot layouts interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBrowse(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) runBrowse(ctx context.Context, path string) error {
	s, err := c.loader().open(ctx, path)
	if err != nil {
		return err
	}
	m := NewBundleListModel(path, collectBundles(s.root()))
	_, err = tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen()).Run()
	return err
}
