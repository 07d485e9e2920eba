// Package engine coordinates one reconciliation invocation: validate the
// manifest, capture a precondition-checked snapshot, compute the plan,
// execute it, and roll back on failure.
//
// The phases are strictly ordered. Validation and precondition failures
// are pure fail-fast gates with nothing to undo; the plan is fully
// computed before the first mutating backend call; and the rollback
// controller runs only when the executor halts partway.
package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/submodsync/submodsync/internal/clock"
	"github.com/submodsync/submodsync/internal/gitx"
	"github.com/submodsync/submodsync/internal/manifest"
	"github.com/submodsync/submodsync/internal/planner"
)

// Engine reconciles a manifest against a repository's submodules.
type Engine struct {
	backend gitx.Backend
	clock   clock.Clock
	logger  *zap.Logger
}

// New creates an engine. A nil logger disables logging.
func New(backend gitx.Backend, clk clock.Clock, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = &clock.RealClock{}
	}
	return &Engine{backend: backend, clock: clk, logger: logger}
}

// Sync applies the manifest to the repository as one logical transaction.
// On an operation failure every completed change is rolled back; the
// returned error then wraps ErrOperationFailed, or ErrRollbackFailed when
// restoration itself failed and the repository needs manual inspection.
func (e *Engine) Sync(ctx context.Context, req *SyncRequest) (*SyncResult, error) {
	if err := req.Manifest.Validate(req.Prefix); err != nil {
		return nil, err
	}

	selected, err := planner.Select(req.Manifest.Entries, planner.Selection{
		Only:   req.Only,
		Ignore: req.Ignore,
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("checking existing submodule states")
	snap, err := takeSnapshot(ctx, e.backend)
	if err != nil {
		return nil, err
	}
	e.logger.Info("all validation checks passed", zap.Int("existing", snap.Len()))

	plan := planner.Build(selected, req.Prefix, snap.Submodules(), planner.Flags{
		SkipExisting:  req.SkipExisting,
		SyncSelection: req.SyncSelection,
	})

	result := &SyncResult{Plan: plan}
	if !req.SyncSelection {
		result.Extras = planner.Extras(selected, req.Prefix, snap.Submodules())
		for _, name := range result.Extras {
			e.logger.Info("found extra submodule", zap.String("submodule", name))
		}
	}

	if plan.IsEmpty() {
		e.logger.Info("no operations to perform, all repositories are up to date")
		return result, nil
	}

	if req.DryRun {
		return result, nil
	}

	executor := NewExecutor(e.backend, e.clock, e.logger, req.NoCheckout)
	oplog, execErr := executor.Apply(ctx, plan)
	if execErr != nil {
		e.logger.Error("operation failed, rolling back all changes", zap.Error(execErr))

		rb := NewRollback(e.backend, e.logger)
		if rbErr := rb.Restore(ctx, snap, oplog); rbErr != nil {
			return nil, errors.Join(execErr, rbErr)
		}

		result.RolledBack = true
		return result, fmt.Errorf("sync failed and was rolled back: %w", execErr)
	}

	result.Added, result.Updated, result.Removed = plan.Counts()
	return result, nil
}

// Status compares the manifest against the current submodules. It is
// read-only and performs no precondition checks beyond listing.
func (e *Engine) Status(ctx context.Context, req *StatusRequest) (*StatusResult, error) {
	if err := req.Manifest.Validate(req.Prefix); err != nil {
		return nil, err
	}

	subs, err := e.backend.ListSubmodules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list submodules: %w", err)
	}

	byName := make(map[string]gitx.Submodule, len(subs))
	for _, sub := range subs {
		byName[sub.Name] = sub
	}

	result := &StatusResult{}
	for _, entry := range req.Manifest.Entries {
		name := manifest.SubmoduleName(req.Prefix, entry.Path)
		if sub, ok := byName[name]; ok {
			result.Submodules = append(result.Submodules, sub)
		} else {
			result.Missing = append(result.Missing, name)
		}
	}

	result.Extra = planner.Extras(req.Manifest.Entries, req.Prefix, subs)

	return result, nil
}
