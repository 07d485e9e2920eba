package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/submodsync/submodsync/internal/gitx"
	"github.com/submodsync/submodsync/internal/planner"
)

// Rollback restores the repository to its snapshot after a failed apply.
type Rollback struct {
	backend gitx.Backend
	logger  *zap.Logger
}

// NewRollback creates a rollback controller.
func NewRollback(backend gitx.Backend, logger *zap.Logger) *Rollback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rollback{backend: backend, logger: logger}
}

// Restore undoes every effect recorded in the operation log, in two
// phases. Phase one removes added submodules in reverse completion order,
// including a best-effort cleanup of a partially created add. Phase two
// restores every snapshot entry to its recorded URL and commit, re-adding
// entries whose removal had already completed.
//
// A failure here is terminal and never retried: the repository state is
// then unknown relative to both the snapshot and the plan.
func (r *Rollback) Restore(ctx context.Context, snap *Snapshot, oplog *OperationLog) error {
	r.logger.Info("rolling back changes", zap.Int("operations", oplog.Len()))

	entries := oplog.Entries()
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Op.Type != planner.OpAdd {
			continue
		}

		if e.Err != nil {
			// The failing add may have left a partially created entry
			// behind; clean it up but tolerate failure.
			if err := r.backend.RemoveSubmodule(ctx, e.Op.Name); err != nil {
				r.logger.Warn("failed to clean up partially added submodule",
					zap.String("submodule", e.Op.Name),
					zap.Error(err))
			}
			continue
		}

		r.logger.Info("undoing added submodule", zap.String("submodule", e.Op.Name))
		if err := r.backend.RemoveSubmodule(ctx, e.Op.Name); err != nil {
			return fmt.Errorf("%w: removing added submodule %q: %v", ErrRollbackFailed, e.Op.Name, err)
		}
	}

	current, err := r.backend.ListSubmodules(ctx)
	if err != nil {
		return fmt.Errorf("%w: listing submodules: %v", ErrRollbackFailed, err)
	}
	present := make(map[string]bool, len(current))
	for _, sub := range current {
		present[sub.Name] = true
	}

	for _, name := range snap.Names() {
		orig, _ := snap.Get(name)

		if present[name] {
			if err := r.restoreExisting(ctx, orig); err != nil {
				return err
			}
			continue
		}
		if err := r.rematerialize(ctx, orig); err != nil {
			return err
		}
	}

	r.logger.Info("rollback complete, all submodules restored")
	return nil
}

// restoreExisting resets an updated or untouched submodule to its
// recorded URL and commit.
func (r *Rollback) restoreExisting(ctx context.Context, orig gitx.Submodule) error {
	r.logger.Info("restoring submodule",
		zap.String("submodule", orig.Name),
		zap.String("commit", orig.IndexCommit))

	if err := r.backend.SetSubmoduleURL(ctx, orig.Name, orig.URL); err != nil {
		return fmt.Errorf("%w: restoring url of %q: %v", ErrRollbackFailed, orig.Name, err)
	}

	h, err := r.backend.OpenSubmodule(ctx, orig.Name)
	if err != nil {
		return fmt.Errorf("%w: opening %q: %v", ErrRollbackFailed, orig.Name, err)
	}

	if err := r.backend.Checkout(ctx, h, orig.IndexCommit, true); err != nil {
		return fmt.Errorf("%w: restoring commit of %q: %v", ErrRollbackFailed, orig.Name, err)
	}

	if err := r.backend.FinalizeIndexEntry(ctx, orig.Path); err != nil {
		return fmt.Errorf("%w: restoring index entry of %q: %v", ErrRollbackFailed, orig.Name, err)
	}
	return nil
}

// rematerialize re-adds a submodule whose removal completed before the
// failure, at its recorded URL and commit.
func (r *Rollback) rematerialize(ctx context.Context, orig gitx.Submodule) error {
	r.logger.Info("re-adding removed submodule",
		zap.String("submodule", orig.Name),
		zap.String("commit", orig.IndexCommit))

	h, err := r.backend.AddSubmodule(ctx, orig.Path, orig.URL)
	if err != nil {
		return fmt.Errorf("%w: re-adding %q: %v", ErrRollbackFailed, orig.Name, err)
	}

	commit, err := r.backend.ResolveAndFetch(ctx, h, orig.IndexCommit)
	if err != nil {
		return fmt.Errorf("%w: fetching %s for %q: %v", ErrRollbackFailed, orig.IndexCommit, orig.Name, err)
	}

	if err := r.backend.Checkout(ctx, h, commit, true); err != nil {
		return fmt.Errorf("%w: checking out %q: %v", ErrRollbackFailed, orig.Name, err)
	}

	if err := r.backend.FinalizeIndexEntry(ctx, orig.Path); err != nil {
		return fmt.Errorf("%w: staging %q: %v", ErrRollbackFailed, orig.Name, err)
	}
	return nil
}
