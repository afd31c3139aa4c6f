package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/friendlypipe/pkg/cache"
	"github.com/matzehuels/friendlypipe/pkg/config"
)

// openCache returns the artifact cache selected by the config, instrumented
// for the observability hooks. noCache forces the null cache.
func (c *CLI) openCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	return newCache(ctx, c.Config.Cache, noCache)
}

func newCache(ctx context.Context, cfg config.Cache, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.RedisAddr})
		if err != nil {
			return nil, err
		}
		return cache.Instrument(rc, "artifact"), nil
	default:
		fc, err := cache.NewFileCache(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return cache.Instrument(fc, "artifact"), nil
	}
}

func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the rendered artifact cache",
	}
	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	return cmd
}

func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openCache(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer store.Close()

			cl, ok := store.(cache.Clearer)
			if !ok {
				printInfo("Cache backend %q keeps nothing to clear", c.Config.Cache.Backend)
				return nil
			}
			n, err := cl.Clear(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			printSuccess("Cleared %d cached entries", n)
			printDetail("Backend: %s", cacheLocation(c.Config.Cache))
			return nil
		},
	}
}

func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where the cache lives",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(stdout, cacheLocation(c.Config.Cache))
			return nil
		},
	}
}

// cacheLocation is the directory of a file cache, or the address of a
// redis cache.
func cacheLocation(cfg config.Cache) string {
	switch cfg.Backend {
	case config.BackendRedis:
		return "redis://" + cfg.RedisAddr
	case config.BackendNone:
		return "none"
	default:
		return cfg.Dir
	}
}
