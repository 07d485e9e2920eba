package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/submodsync/submodsync/internal/clock"
	"github.com/submodsync/submodsync/internal/gitx"
	"github.com/submodsync/submodsync/internal/planner"
)

// LogEntry records one attempted operation and its outcome.
type LogEntry struct {
	// Op is the plan operation that was attempted.
	Op planner.Operation

	// Time is when the operation completed.
	Time time.Time

	// Err is nil when the operation succeeded.
	Err error
}

// OperationLog is the append-only record the executor builds as operations
// complete. It lives only for the duration of one apply: on success it is
// discarded, on failure it is consumed by the rollback controller.
type OperationLog struct {
	entries []LogEntry
}

// Entries returns a copy of the log in completion order.
func (l *OperationLog) Entries() []LogEntry {
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded operations.
func (l *OperationLog) Len() int {
	return len(l.entries)
}

func (l *OperationLog) append(e LogEntry) {
	l.entries = append(l.entries, e)
}

// Executor applies a plan one operation at a time, strictly sequentially,
// halting on the first failure.
type Executor struct {
	backend    gitx.Backend
	clock      clock.Clock
	logger     *zap.Logger
	noCheckout bool
}

// NewExecutor creates an executor.
func NewExecutor(backend gitx.Backend, clk clock.Clock, logger *zap.Logger, noCheckout bool) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{backend: backend, clock: clk, logger: logger, noCheckout: noCheckout}
}

// Apply runs the plan in order. Every attempted operation is recorded in
// the returned log, including the failing one; no operation after a
// failure is attempted.
func (x *Executor) Apply(ctx context.Context, plan *planner.Plan) (*OperationLog, error) {
	oplog := &OperationLog{}

	for _, op := range plan.Operations {
		x.logger.Info("applying operation",
			zap.String("op", string(op.Type)),
			zap.String("submodule", op.Name))

		err := x.apply(ctx, op)
		oplog.append(LogEntry{Op: op, Time: x.clock.Now(), Err: err})
		if err != nil {
			x.logger.Error("operation failed",
				zap.String("op", string(op.Type)),
				zap.String("submodule", op.Name),
				zap.Error(err))
			return oplog, fmt.Errorf("%w: %s %s: %v", ErrOperationFailed, op.Type, op.Name, err)
		}
	}

	return oplog, nil
}

func (x *Executor) apply(ctx context.Context, op planner.Operation) error {
	switch op.Type {
	case planner.OpAdd:
		return x.applyAdd(ctx, op)
	case planner.OpUpdate:
		return x.applyUpdate(ctx, op)
	case planner.OpRemove:
		return x.backend.RemoveSubmodule(ctx, op.Name)
	default:
		return fmt.Errorf("unknown operation type %q", op.Type)
	}
}

func (x *Executor) applyAdd(ctx context.Context, op planner.Operation) error {
	h, err := x.backend.AddSubmodule(ctx, op.Path, op.URL)
	if err != nil {
		return err
	}

	commit, err := x.backend.ResolveAndFetch(ctx, h, op.Version)
	if err != nil {
		return err
	}

	if err := x.backend.Checkout(ctx, h, commit, !x.noCheckout); err != nil {
		return err
	}

	return x.backend.FinalizeIndexEntry(ctx, op.Path)
}

func (x *Executor) applyUpdate(ctx context.Context, op planner.Operation) error {
	if err := x.backend.SetSubmoduleURL(ctx, op.Name, op.URL); err != nil {
		return err
	}

	h, err := x.backend.OpenSubmodule(ctx, op.Name)
	if err != nil {
		return err
	}

	commit, err := x.backend.ResolveAndFetch(ctx, h, op.Version)
	if err != nil {
		return err
	}

	if err := x.backend.Checkout(ctx, h, commit, !x.noCheckout); err != nil {
		return err
	}

	return x.backend.FinalizeIndexEntry(ctx, op.Path)
}
