// Package snapshot holds the single atomically-swapped (catalog, vector
// index, lexical index) tuple that the query pipeline reads.
package snapshot

import (
	"sync/atomic"
	"time"

	"github.com/occsearch/engine/internal/catalog"
	"github.com/occsearch/engine/internal/lexical"
	"github.com/occsearch/engine/internal/vectorindex"
)

// Snapshot is an immutable view of the catalog and its derived indexes.
// Once published, none of its fields are ever mutated; a reindex builds an
// entirely new Snapshot and publishes it in place of this one.
type Snapshot struct {
	Catalog     *catalog.Catalog
	VectorIndex *vectorindex.Index
	Lexical     *lexical.Index
	PublishedAt time.Time
	ModelID     string
}

// Manager publishes and serves the single current Snapshot. Readers acquire
// a reference once per request via Current and hold it for the request's
// lifetime; publishing a new snapshot never disturbs readers already holding
// a previous one.
type Manager struct {
	ptr atomic.Pointer[Snapshot]
}

// NewManager returns a Manager with no snapshot published yet.
func NewManager() *Manager {
	return &Manager{}
}

// Current returns the snapshot in effect at the moment of the call, or nil
// if none has been published yet.
func (m *Manager) Current() *Snapshot {
	return m.ptr.Load()
}

// Publish atomically installs snap as the current snapshot. It is the only
// write path into the manager and is expected to be called by a single
// writer (the reindex coordinator) at a time, though the swap itself is safe
// under concurrent publishers.
func (m *Manager) Publish(snap *Snapshot) {
	m.ptr.Store(snap)
}
