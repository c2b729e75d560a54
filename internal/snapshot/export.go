package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Source produces snapshots. Builder is one; a caching layer in front of it
// is another.
type Source interface {
	Workspace(ctx context.Context, id int64) (*WorkspaceSnapshot, error)
	AllWorkspaces(ctx context.Context) ([]WorkspaceSnapshot, error)
}

// ExportOptions configures Export
type ExportOptions struct {
	// WorkspaceID selects one workspace; 0 exports every live workspace as a list.
	WorkspaceID int64
	// OutputPath is written when non-empty. Parent directories are created.
	OutputPath string
	// Canonical selects compact canonical JSON instead of indented JSON.
	Canonical bool
}

// ExportResult describes an exported snapshot
type ExportResult struct {
	OutputPath     string
	Rev            string
	Data           []byte
	WorkspaceCount int
	ProjectCount   int
	TaskCount      int
}

// Export builds a snapshot from src, encodes it and optionally writes it to
// disk. Rev is always computed over the canonical encoding, whichever form
// is written.
func Export(ctx context.Context, src Source, opts ExportOptions) (*ExportResult, error) {
	var doc any
	var workspaces []WorkspaceSnapshot
	if opts.WorkspaceID != 0 {
		snap, err := src.Workspace(ctx, opts.WorkspaceID)
		if err != nil {
			return nil, err
		}
		doc = snap
		workspaces = []WorkspaceSnapshot{*snap}
	} else {
		all, err := src.AllWorkspaces(ctx)
		if err != nil {
			return nil, err
		}
		doc = all
		workspaces = all
	}

	canonical, err := CanonicalJSON(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to generate canonical JSON: %w", err)
	}
	data := canonical
	if !opts.Canonical {
		if data, err = PrettyJSON(doc); err != nil {
			return nil, fmt.Errorf("failed to generate JSON: %w", err)
		}
	}

	result := &ExportResult{
		OutputPath:     opts.OutputPath,
		Rev:            ComputeRev(canonical),
		Data:           data,
		WorkspaceCount: len(workspaces),
	}
	for _, w := range workspaces {
		result.ProjectCount += len(w.Projects)
		for _, t := range w.Tasks {
			result.TaskCount += t.Count()
		}
		for _, p := range w.Projects {
			for _, t := range p.Tasks {
				result.TaskCount += t.Count()
			}
		}
	}

	if opts.OutputPath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(opts.OutputPath, append(data, '\n'), 0644); err != nil {
			return nil, fmt.Errorf("failed to write snapshot: %w", err)
		}
	}

	return result, nil
}
