// Package cache stores rendered workflow artifacts and resolved layouts.
//
// Three backends implement [Cache]:
//   - [FileCache]: entries as JSON files under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for the HTTP server
//   - [NullCache]: stores nothing, for --no-cache
//
// Keys come from a [Keyer] so that every backend agrees on the layout of
// keys; wrap a keyer with [NewScopedKeyer] to give a caller its own
// namespace. [Instrument] reports hits, misses and writes to the registered
// observability hooks.
package cache

import (
	"context"
	"time"

	"github.com/matzehuels/friendlypipe/pkg/observability"
)

// Cache is a byte-oriented key-value store with per-entry expiry.
type Cache interface {
	// Get returns the stored value and whether it was found. Expired
	// entries are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}

// Keyer builds cache keys.
type Keyer interface {
	// ArtifactKey is the key of a rendered diagram of a workflow.
	ArtifactKey(workflowHash string, opts ArtifactKeyOpts) string
	// LayoutKey is the key of the resolved bundle layouts of a workflow.
	LayoutKey(workflowHash string, opts LayoutKeyOpts) string
}

// ArtifactKeyOpts are the render options that change an artifact.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed"`
}

// LayoutKeyOpts are the traversal options that change resolved layouts.
type LayoutKeyOpts struct {
	MaxDepth             int           `json:"max_depth"`
	MaxSlots             int           `json:"max_slots"`
	ContainerSearchDepth int           `json:"container_search_depth"`
	ResyncAttempts       int           `json:"resync_attempts"`
	ResyncDelay          time.Duration `json:"resync_delay"`
}

// DefaultKeyer hashes the key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) ArtifactKey(workflowHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", workflowHash, opts)
}

func (DefaultKeyer) LayoutKey(workflowHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", workflowHash, opts)
}

// Instrument wraps c so that every Get and Set is reported to the
// observability cache hooks under keyType.
func Instrument(c Cache, keyType string) Cache {
	return &instrumented{Cache: c, keyType: keyType}
}

type instrumented struct {
	Cache
	keyType string
}

func (c *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	if err == nil {
		if ok {
			observability.Cache().OnCacheHit(ctx, c.keyType)
		} else {
			observability.Cache().OnCacheMiss(ctx, c.keyType)
		}
	}
	return data, ok, err
}

func (c *instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.Cache.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, c.keyType, len(data))
	return nil
}

// Clear forwards to the wrapped cache when it supports clearing.
func (c *instrumented) Clear(ctx context.Context) (int, error) {
	if cl, ok := c.Cache.(Clearer); ok {
		return cl.Clear(ctx)
	}
	return 0, nil
}
