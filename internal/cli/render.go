package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/friendlypipe/pkg/cache"
	apperr "github.com/matzehuels/friendlypipe/pkg/errors"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string  // output file; "-" or empty with dot writes to stdout
	format   string  // dot, svg, pdf or png
	detailed bool    // slot and property lines in node labels
	scale    float64 // PNG scale factor
	noCache  bool
}

func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{format: formatSVG, scale: 2}

	cmd := &cobra.Command{
		Use:   "render <workflow>",
		Short: "Render a workflow as a node-link diagram",
		Long: `Render draws the workflow graph with Graphviz. Subgraph instances become
clusters and bundle links are highlighted. Bundle nodes are annotated with
their sync state and slot count.

PDF and PNG output needs rsvg-convert on PATH.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apperr.ValidateFormat(opts.format, renderFormats...); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <workflow>.<format>; - for stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: "+strings.Join(renderFormats, ", "))
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show slots and properties in node labels")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "PNG scale factor")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the artifact cache")
	return cmd
}

func (c *CLI) runRender(ctx context.Context, path string, opts *renderOpts) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperr.FromLoad(err, path)
	}

	store, err := c.openCache(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer store.Close()

	r := &renderer{
		loader: c.loader(),
		cache:  store,
		keyer:  cache.NewDefaultKeyer(),
		ttl:    c.Config.Cache.TTL.Duration,
		logger: c.Logger,
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", filepath.Base(path)))
	spinner.Start()
	out, cached, err := r.render(ctx, data, path, artifactOpts{
		Format:   opts.format,
		Detailed: opts.detailed,
		Scale:    opts.scale,
	})
	spinner.Stop()
	if err != nil {
		return err
	}

	dest := opts.output
	if dest == "-" {
		_, err := stdout.Write(out)
		return err
	}
	if dest == "" {
		dest = strings.TrimSuffix(path, filepath.Ext(path)) + "." + opts.format
	}
	if err := os.WriteFile(dest, out, 0o644); err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidPath, err, "write %s", dest)
	}
	printSuccess("Rendered %s", opts.format)
	printFile(dest)
	printCacheStatus(cached)
	return nil
}
