package engine

import "errors"

var (
	// ErrSubmoduleUninitialized indicates an existing submodule with no
	// checked-out working commit.
	ErrSubmoduleUninitialized = errors.New("submodule not initialized")

	// ErrSubmoduleDirty indicates an existing submodule with uncommitted changes.
	ErrSubmoduleDirty = errors.New("submodule has uncommitted changes")

	// ErrSubmoduleDrifted indicates a submodule checked out to a commit other
	// than the one recorded in the superproject index.
	ErrSubmoduleDrifted = errors.New("submodule checked out to unexpected commit")

	// ErrSuperprojectDirty indicates staged changes in the superproject.
	ErrSuperprojectDirty = errors.New("repository has staged changes")

	// ErrOperationFailed indicates an add, update, or remove failed during
	// execution. It is always followed by a rollback attempt.
	ErrOperationFailed = errors.New("operation failed")

	// ErrRollbackFailed indicates the rollback itself failed. The repository
	// state is then unknown relative to both the plan and the snapshot, and
	// manual inspection is required.
	ErrRollbackFailed = errors.New("rollback failed")
)

// IsPrecondition reports whether err is one of the precondition failures
// raised after the snapshot is read but before any mutation.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrSubmoduleUninitialized) ||
		errors.Is(err, ErrSubmoduleDirty) ||
		errors.Is(err, ErrSubmoduleDrifted) ||
		errors.Is(err, ErrSuperprojectDirty)
}
