// Package engine ties the store, the snapshot builder and the snapshot cache
// together: snapshot reads go through the cache, and every committed
// mutation invalidates the workspaces it touched.
package engine

import (
	"context"

	"github.com/lherron/clara/internal/snapcache"
	"github.com/lherron/clara/internal/snapshot"
	"github.com/lherron/clara/internal/store"
)

// Engine is the read/write entry point used by the CLI
type Engine struct {
	Store   *store.Store
	builder *snapshot.Builder
	cache   *snapcache.Cache
}

// New wires an engine. cache may be nil.
func New(s *store.Store, builder *snapshot.Builder, cache *snapcache.Cache) *Engine {
	e := &Engine{Store: s, builder: builder, cache: cache}
	s.OnCommit(e.invalidate)
	return e
}

func (e *Engine) invalidate(ctx context.Context, change store.Change) {
	for _, wsID := range change.Workspaces {
		e.cache.InvalidateWorkspace(ctx, wsID)
	}
}

// Workspace returns the snapshot of one live workspace
func (e *Engine) Workspace(ctx context.Context, id int64) (*snapshot.WorkspaceSnapshot, error) {
	if snap, ok := e.cache.Workspace(ctx, id); ok {
		return snap, nil
	}
	// stamped before the build so a commit during it, here or in another
	// process, keeps the result out of the cache
	stamp := e.cache.WorkspaceStamp(ctx, id)
	snap, err := e.builder.Workspace(ctx, id)
	if err != nil {
		return nil, err
	}
	e.cache.PutWorkspace(ctx, snap, stamp)
	return snap, nil
}

// AllWorkspaces returns the snapshots of every live workspace
func (e *Engine) AllWorkspaces(ctx context.Context) ([]snapshot.WorkspaceSnapshot, error) {
	if all, ok := e.cache.AllWorkspaces(ctx); ok {
		return all, nil
	}
	stamp := e.cache.AllStamp(ctx)
	all, err := e.builder.AllWorkspaces(ctx)
	if err != nil {
		return nil, err
	}
	e.cache.PutAllWorkspaces(ctx, all, stamp)
	return all, nil
}

// Close releases the cache connection
func (e *Engine) Close() error {
	return e.cache.Close()
}
