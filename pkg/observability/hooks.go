// Package observability provides hooks for metrics, tracing, and logging.
//
// Consumers register hooks at startup to receive events about bundle
// traversal, workflow loading, artifact caching, and the HTTP API, without
// the libraries depending on a specific backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetTraversalHooks(&myTraversalHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Traversal().OnResolve(node.Type, found, steps)
//	observability.Workflow().OnLoad(ctx, path, nodeCount, duration, err)
//
// Traversal hooks take no context: traversal runs synchronously inside
// editor callbacks that carry none.
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Traversal Hooks
// =============================================================================

// TraversalHooks receives events from bundle resolution and propagation.
type TraversalHooks interface {
	// OnResolve records one upstream resolution. steps is the number of
	// (node, slot) hops taken.
	OnResolve(nodeType string, found bool, steps int)

	// OnNotify records one downstream propagation. truncated reports that
	// the depth cap cut the traversal short.
	OnNotify(visited, resynced int, truncated bool)

	// OnResync records a consumer or editor recomputing its layout.
	OnResync(nodeType string, state string, slotCount int)
}

// =============================================================================
// Workflow Hooks
// =============================================================================

// WorkflowHooks receives events from workflow loading and rendering.
type WorkflowHooks interface {
	OnLoad(ctx context.Context, source string, nodeCount int, duration time.Duration, err error)
	OnRender(ctx context.Context, format string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP API server.
type HTTPHooks interface {
	// OnRequest records an incoming request.
	OnRequest(ctx context.Context, method, path string)

	// OnResponse records the response written for a request.
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopTraversalHooks is a no-op implementation of TraversalHooks.
type NoopTraversalHooks struct{}

func (NoopTraversalHooks) OnResolve(string, bool, int)  {}
func (NoopTraversalHooks) OnNotify(int, int, bool)      {}
func (NoopTraversalHooks) OnResync(string, string, int) {}

// NoopWorkflowHooks is a no-op implementation of WorkflowHooks.
type NoopWorkflowHooks struct{}

func (NoopWorkflowHooks) OnLoad(context.Context, string, int, time.Duration, error) {}
func (NoopWorkflowHooks) OnRender(context.Context, string, time.Duration, error)    {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	traversalHooks TraversalHooks = NoopTraversalHooks{}
	workflowHooks  WorkflowHooks  = NoopWorkflowHooks{}
	cacheHooks     CacheHooks     = NoopCacheHooks{}
	httpHooks      HTTPHooks      = NoopHTTPHooks{}
	hooksMu        sync.RWMutex
)

// SetTraversalHooks registers custom traversal hooks.
func SetTraversalHooks(h TraversalHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		traversalHooks = h
	}
}

// SetWorkflowHooks registers custom workflow hooks.
func SetWorkflowHooks(h WorkflowHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		workflowHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Traversal returns the registered traversal hooks.
func Traversal() TraversalHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return traversalHooks
}

// Workflow returns the registered workflow hooks.
func Workflow() WorkflowHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return workflowHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	traversalHooks = NoopTraversalHooks{}
	workflowHooks = NoopWorkflowHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
