package engine

import (
	"github.com/submodsync/submodsync/internal/gitx"
	"github.com/submodsync/submodsync/internal/manifest"
	"github.com/submodsync/submodsync/internal/planner"
)

// SyncRequest represents a request to reconcile the manifest against the
// repository's submodules.
type SyncRequest struct {
	// Manifest is the parsed desired set.
	Manifest *manifest.Manifest

	// Prefix is the directory submodules are managed under, relative to
	// the repository root.
	Prefix string

	// Only restricts the run to exactly these manifest paths.
	Only []string

	// Ignore excludes these manifest paths.
	Ignore []string

	// SkipExisting suppresses updates to submodules that already exist.
	SkipExisting bool

	// SyncSelection removes submodules under the prefix that are not in
	// the current selection.
	SyncSelection bool

	// NoCheckout pins submodule commits without populating working trees.
	NoCheckout bool

	// DryRun computes and returns the plan without executing it.
	DryRun bool
}

// SyncResult represents the outcome of a sync.
type SyncResult struct {
	// Plan is the computed reconciliation plan.
	Plan *planner.Plan

	// Added, Updated, and Removed count the operations applied (zero in
	// dry-run mode).
	Added   int
	Updated int
	Removed int

	// Extras lists submodules under the prefix that are outside the
	// selection and were left alone because SyncSelection was off.
	Extras []string

	// RolledBack reports that an operation failed and all changes were
	// restored.
	RolledBack bool
}

// StatusRequest represents a request to compare the manifest against the
// current submodules without mutating anything.
type StatusRequest struct {
	// Manifest is the parsed desired set.
	Manifest *manifest.Manifest

	// Prefix is the managed directory.
	Prefix string
}

// StatusResult describes the current reconciliation state.
type StatusResult struct {
	// Submodules is the current submodule state under the prefix.
	Submodules []gitx.Submodule

	// Missing lists declared entries with no corresponding submodule.
	Missing []string

	// Extra lists submodules under the prefix not declared in the manifest.
	Extra []string
}
