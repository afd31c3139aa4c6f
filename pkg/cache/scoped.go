package cache

// ScopedKeyer wraps a Keyer with a prefix so that several callers can share
// one backend without seeing each other's entries.
//
//	serverKeyer := NewScopedKeyer(NewDefaultKeyer(), "serve:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(workflowHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(workflowHash, opts)
}

// LayoutKey generates a prefixed layout key.
func (k *ScopedKeyer) LayoutKey(workflowHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(workflowHash, opts)
}
