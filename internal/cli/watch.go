package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/friendlypipe/pkg/host"
	"github.com/matzehuels/friendlypipe/pkg/watch"
)

func (c *CLI) watchCommand() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch <workflow>",
		Short: "Re-inspect a workflow every time it is saved",
		Long: `Watch loads the workflow, prints its bundle layouts, and reloads it on
every save. Bundle nodes resync in real time, the way they do in the
editor, so the table shows the layouts once the resyncs have settled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context(), args[0], debounce)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before reloading")
	return cmd
}

func (c *CLI) runWatch(ctx context.Context, path string, debounce time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := host.NewLoop(c.Logger, func(fg, bg bool) {
		c.Logger.Debug("redraw requested", "fg", fg, "bg", bg)
	})
	go loop.Run(ctx)

	ld := c.loader()
	refresh := func() {
		s, err := ld.openLive(ctx, loop, path)
		if err != nil {
			// A half-written file is common while the editor saves.
			printError("%v", err)
			return
		}
		select {
		case <-time.After(ld.settleTime()):
		case <-ctx.Done():
			return
		}
		var reports []bundleReport
		if err := loop.Do(ctx, func() { reports = collectBundles(s.root()) }); err != nil {
			return
		}
		printInspect(path, reports)
		printNewline()
	}

	refresh()
	printNextStep("Watching for changes, stop with", "ctrl+c")
	if err := watch.File(ctx, path, watch.Options{Debounce: debounce, Logger: c.Logger}, refresh); err != nil {
		return err
	}
	return ctx.Err()
}
