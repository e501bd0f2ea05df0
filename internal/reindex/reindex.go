// Package reindex rebuilds a snapshot from the catalog file and publishes it,
// coordinating at most one build at a time.
package reindex

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/occsearch/engine/internal/catalog"
	"github.com/occsearch/engine/internal/embedding"
	"github.com/occsearch/engine/internal/lexical"
	"github.com/occsearch/engine/internal/snapshot"
	"github.com/occsearch/engine/internal/vectorindex"
)

// ErrConflict is returned when a reindex is requested while one is already
// running.
var ErrConflict = errors.New("reindex: already in progress")

// Result summarizes a completed build.
type Result struct {
	Duration time.Duration
	Vectors  int
}

// Coordinator owns the single-flight reindex lifecycle: load catalog, embed
// every record, build the vector and lexical indexes, and publish atomically
// via the snapshot manager. On any failure or timeout, the previous snapshot
// is left untouched.
type Coordinator struct {
	CatalogPath string
	Embedder    embedding.Provider
	Snapshots   *snapshot.Manager
	Timeout     time.Duration

	flight     singleflight.Group
	reindexing atomic.Bool
}

// NewCoordinator constructs a Coordinator with the given dependencies.
func NewCoordinator(catalogPath string, embedder embedding.Provider, snapshots *snapshot.Manager, timeout time.Duration) *Coordinator {
	return &Coordinator{
		CatalogPath: catalogPath,
		Embedder:    embedder,
		Snapshots:   snapshots,
		Timeout:     timeout,
	}
}

// Reindexing reports whether a build is currently running, for the health
// endpoint.
func (c *Coordinator) Reindexing() bool {
	return c.reindexing.Load()
}

// Trigger runs a reindex, or fails fast with ErrConflict if one is already
// in flight. It blocks until the build completes, fails, or times out.
func (c *Coordinator) Trigger(ctx context.Context) (Result, error) {
	if c.reindexing.Load() {
		return Result{}, ErrConflict
	}

	type buildOutcome struct {
		result Result
		err    error
	}

	leader := false
	v, err, shared := c.flight.Do("reindex", func() (any, error) {
		leader = true
		c.reindexing.Store(true)
		defer c.reindexing.Store(false)

		buildCtx := ctx
		var cancel context.CancelFunc
		if c.Timeout > 0 {
			buildCtx, cancel = context.WithTimeout(ctx, c.Timeout)
			defer cancel()
		}

		start := time.Now()
		vectors, err := c.build(buildCtx)
		if err != nil {
			return buildOutcome{err: err}, nil
		}
		return buildOutcome{result: Result{Duration: time.Since(start), Vectors: vectors}}, nil
	})
	if err != nil {
		return Result{}, err
	}
	if shared && !leader {
		// A concurrent caller joined an in-flight build rather than
		// starting a new one; report that as a conflict to preserve
		// the "at most one admin-visible attempt at a time" contract.
		return Result{}, ErrConflict
	}

	outcome := v.(buildOutcome)
	if outcome.err != nil {
		return Result{}, outcome.err
	}
	return outcome.result, nil
}

func (c *Coordinator) build(ctx context.Context) (int, error) {
	cat, err := catalog.Load(c.CatalogPath)
	if err != nil {
		return 0, fmt.Errorf("reindex: load catalog: %w", err)
	}

	records := cat.Records()
	vectors := make([][]float32, len(records))
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("reindex: %w", err)
		}
		v, err := c.Embedder.Embed(catalog.PassageText(rec))
		if err != nil {
			return 0, fmt.Errorf("reindex: embed %s: %w", rec.Code, err)
		}
		vectors[i] = v
	}

	idx := vectorindex.New(c.Embedder.Dimension())
	if err := idx.BuildFrom(vectors); err != nil {
		return 0, fmt.Errorf("reindex: build index: %w", err)
	}

	snap := &snapshot.Snapshot{
		Catalog:     cat,
		VectorIndex: idx,
		Lexical:     lexical.Build(records),
		PublishedAt: time.Now(),
		ModelID:     c.Embedder.ModelID(),
	}
	c.Snapshots.Publish(snap)
	return len(records), nil
}
