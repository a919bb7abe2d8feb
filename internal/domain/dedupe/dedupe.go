// Package dedupe tracks identities already seen during a pass over the store.
package dedupe

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
)

// Deduper records seen identity keys so that only the first occurrence of a
// username or UUID survives a structure check.
type Deduper interface {
	// SeenAndRecord reports whether key was already recorded and records it
	// if not. Check and insert happen under one lock.
	SeenAndRecord(ctx context.Context, key string) bool

	// Seen reports whether key was recorded without recording it.
	Seen(ctx context.Context, key string) bool

	// Unrecord forgets key, e.g. when the record owning it was dropped later
	// in the pipeline.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

type inMemoryDeduper struct {
	mu       sync.RWMutex
	seen     map[string]struct{}
	size     atomic.Int64
	foldCase bool
}

// NewInMemoryDeduper creates an unbounded deduper. Keys are compared exactly
// unless WithFoldCase is given.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	return d
}

func (d *inMemoryDeduper) key(k string) string {
	if d.foldCase {
		return strings.ToLower(k)
	}
	return k
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	k := d.key(key)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[k]; exists {
		return true
	}
	d.seen[k] = struct{}{}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Seen(_ context.Context, key string) bool {
	k := d.key(key)

	d.mu.RLock()
	defer d.mu.RUnlock()

	_, exists := d.seen[k]
	return exists
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	k := d.key(key)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[k]; exists {
		delete(d.seen, k)
		d.size.Add(-1)
	}
}

// Size returns the number of recorded keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
