package engine

import (
	"context"
	"fmt"

	"github.com/submodsync/submodsync/internal/gitx"
)

// Snapshot is an immutable record of every existing submodule, captured
// once before any mutation. It is the sole source of truth for rollback.
type Snapshot struct {
	names []string
	subs  map[string]gitx.Submodule
}

// Len returns the number of captured submodules.
func (s *Snapshot) Len() int {
	return len(s.names)
}

// Names returns the submodule names in capture order.
func (s *Snapshot) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Get returns the captured state for a submodule name.
func (s *Snapshot) Get(name string) (gitx.Submodule, bool) {
	sub, ok := s.subs[name]
	return sub, ok
}

// Submodules returns the captured submodules in capture order.
func (s *Snapshot) Submodules() []gitx.Submodule {
	out := make([]gitx.Submodule, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.subs[name])
	}
	return out
}

// takeSnapshot reads the current submodule state and verifies every
// precondition before returning the snapshot. The first violation aborts
// the invocation; nothing has been mutated at that point, so there is
// nothing to roll back.
func takeSnapshot(ctx context.Context, backend gitx.Backend) (*Snapshot, error) {
	staged, err := backend.SuperprojectHasStagedChanges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check superproject index: %w", err)
	}
	if staged {
		return nil, fmt.Errorf("%w: commit or reset staged changes first", ErrSuperprojectDirty)
	}

	subs, err := backend.ListSubmodules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list submodules: %w", err)
	}

	snap := &Snapshot{subs: make(map[string]gitx.Submodule, len(subs))}
	for _, sub := range subs {
		initialized, err := backend.SubmoduleIsInitialized(ctx, sub.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect submodule %q: %w", sub.Name, err)
		}
		if !initialized {
			return nil, fmt.Errorf("%w: %q at %s, run 'git submodule update --init' first",
				ErrSubmoduleUninitialized, sub.Name, sub.Path)
		}

		clean, err := backend.SubmoduleIsClean(ctx, sub.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect submodule %q: %w", sub.Name, err)
		}
		if !clean {
			return nil, fmt.Errorf("%w: %q at %s, commit or stash changes first",
				ErrSubmoduleDirty, sub.Name, sub.Path)
		}

		if sub.HeadCommit != sub.IndexCommit {
			return nil, fmt.Errorf("%w: %q expected %s, actual %s, run 'git submodule update' to synchronize",
				ErrSubmoduleDrifted, sub.Name, sub.IndexCommit, sub.HeadCommit)
		}

		snap.names = append(snap.names, sub.Name)
		snap.subs[sub.Name] = sub
	}

	return snap, nil
}
