// Package host provides the editor capabilities bundle nodes need from their
// environment: redraw requests and delayed callbacks.
//
// [Deferred] runs callbacks on a virtual clock that only moves when told to,
// which makes retry timing deterministic in tests and in batch tools.
// [Loop] runs callbacks in real time, serialized onto one goroutine, for
// long-running commands such as watch and serve.
package host
