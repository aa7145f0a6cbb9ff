package domain

import "sync/atomic"

// IndexHolder publishes the current lexical index to concurrent readers.
// Rebuilds construct a fresh index and Swap it in; queries in flight keep
// using the snapshot they loaded, so no locking is needed on the read path.
type IndexHolder struct {
	current atomic.Pointer[LexicalIndex]
}

// NewIndexHolder wraps an initial index (may be nil when lexical search is
// unavailable at startup).
func NewIndexHolder(initial *LexicalIndex) *IndexHolder {
	h := &IndexHolder{}
	if initial != nil {
		h.current.Store(initial)
	}
	return h
}

// Load returns the current index, or nil if none has been published.
func (h *IndexHolder) Load() *LexicalIndex {
	return h.current.Load()
}

// Swap atomically replaces the published index.
func (h *IndexHolder) Swap(next *LexicalIndex) {
	h.current.Store(next)
}
