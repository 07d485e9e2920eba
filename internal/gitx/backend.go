// Package gitx is the version-control backend port for submodsync.
//
// The engine talks to git exclusively through the Backend interface.
// RealBackend shells out to the git CLI; FakeBackend is a deterministic
// in-memory double for tests.
package gitx

import "context"

// Submodule is the state of one existing submodule as recorded by the
// superproject. It is read fresh at the start of every invocation and
// never cached across invocations.
type Submodule struct {
	// Name is the submodule name from .gitmodules.
	Name string

	// Path is the working-tree location relative to the repository root.
	Path string

	// URL is the remote URL recorded in .gitmodules.
	URL string

	// IndexCommit is the commit recorded for the submodule in the
	// superproject's index.
	IndexCommit string

	// HeadCommit is the commit currently checked out in the submodule
	// working tree. Empty when the submodule is not initialized.
	HeadCommit string
}

// Handle identifies an open submodule working tree for fetch and
// checkout operations.
type Handle struct {
	Name string
	Path string
}

// Backend is the narrow port to the version-control store. It carries no
// reconciliation logic; all methods map to primitive git operations and
// are assumed correct.
type Backend interface {
	// ListSubmodules returns all submodules recorded by the superproject,
	// in .gitmodules declaration order.
	ListSubmodules(ctx context.Context) ([]Submodule, error)

	// SubmoduleIsInitialized reports whether the named submodule has a
	// checked-out working commit.
	SubmoduleIsInitialized(ctx context.Context, name string) (bool, error)

	// SubmoduleIsClean reports whether the named submodule's working tree
	// has no modified, new, or deleted entries.
	SubmoduleIsClean(ctx context.Context, name string) (bool, error)

	// SuperprojectHasStagedChanges reports whether the superproject index
	// differs from HEAD.
	SuperprojectHasStagedChanges(ctx context.Context) (bool, error)

	// AddSubmodule registers a new submodule at path pointing at url and
	// clones it, returning a handle to the new working tree.
	AddSubmodule(ctx context.Context, path, url string) (Handle, error)

	// OpenSubmodule returns a handle to an existing submodule's working tree.
	OpenSubmodule(ctx context.Context, name string) (Handle, error)

	// SetSubmoduleURL rewrites the recorded remote URL for the named
	// submodule in .gitmodules and in the submodule's own config.
	SetSubmoduleURL(ctx context.Context, name, url string) error

	// ResolveAndFetch resolves version to a concrete commit id, fetching
	// from origin as needed. The version is treated first as a remote
	// reference name (branch or tag); only if no such reference exists is
	// it treated as a commit id. A string naming both resolves as the
	// reference.
	ResolveAndFetch(ctx context.Context, h Handle, version string) (string, error)

	// Checkout detaches the submodule HEAD at commit. When withWorkTree
	// is false only HEAD is moved; the files are left untouched.
	Checkout(ctx context.Context, h Handle, commit string, withWorkTree bool) error

	// FinalizeIndexEntry stages the submodule at path (and .gitmodules)
	// in the superproject index.
	FinalizeIndexEntry(ctx context.Context, path string) error

	// RemoveSubmodule deinitializes the named submodule, deletes its
	// private object store and working tree, and removes its index entry
	// and .gitmodules declaration.
	RemoveSubmodule(ctx context.Context, name string) error
}
