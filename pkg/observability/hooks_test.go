package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	tr := NoopTraversalHooks{}
	tr.OnResolve("FriendlyPipeOut", true, 4)
	tr.OnNotify(3, 2, false)
	tr.OnResync("FriendlyPipeEdit", "resolved", 5)

	w := NoopWorkflowHooks{}
	w.OnLoad(ctx, "workflow.json", 12, time.Second, nil)
	w.OnRender(ctx, "svg", time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "render")
	c.OnCacheMiss(ctx, "render")
	c.OnCacheSet(ctx, "render", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "/v1/layouts")
	h.OnResponse(ctx, "POST", "/v1/layouts", 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Traversal().(NoopTraversalHooks); !ok {
		t.Error("Traversal() should return NoopTraversalHooks by default")
	}
	if _, ok := Workflow().(NoopWorkflowHooks); !ok {
		t.Error("Workflow() should return NoopWorkflowHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customTraversal := &testTraversalHooks{}
	SetTraversalHooks(customTraversal)
	if Traversal() != customTraversal {
		t.Error("SetTraversalHooks should set custom hooks")
	}

	customWorkflow := &testWorkflowHooks{}
	SetWorkflowHooks(customWorkflow)
	if Workflow() != customWorkflow {
		t.Error("SetWorkflowHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Traversal().(NoopTraversalHooks); !ok {
		t.Error("Reset() should restore NoopTraversalHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testTraversalHooks{}
	SetTraversalHooks(custom)

	// Setting nil should be ignored
	SetTraversalHooks(nil)

	if Traversal() != custom {
		t.Error("SetTraversalHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testTraversalHooks struct{ NoopTraversalHooks }
type testWorkflowHooks struct{ NoopWorkflowHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
