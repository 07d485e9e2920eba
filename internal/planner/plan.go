package planner

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/submodsync/submodsync/internal/gitx"
	"github.com/submodsync/submodsync/internal/manifest"
)

// OpType is the kind of a plan operation.
type OpType string

const (
	OpAdd    OpType = "add"
	OpUpdate OpType = "update"
	OpRemove OpType = "remove"
)

// Operation is a single reconciliation step against one submodule.
type Operation struct {
	// Type is the operation kind.
	Type OpType

	// Name is the submodule name (the prefix-joined path).
	Name string

	// Path is the working-tree location relative to the repository root.
	Path string

	// URL is the remote to point the submodule at (add and update only).
	URL string

	// Version is the branch, tag, or commit to pin (add and update only).
	Version string
}

// Plan is the ordered list of operations implied by the desired set, the
// selection, and the snapshot. It is purely a value: safe to print for a
// dry run or to discard.
type Plan struct {
	Operations []Operation
}

// IsEmpty reports whether the plan has no operations.
func (p *Plan) IsEmpty() bool {
	return len(p.Operations) == 0
}

// Counts returns the number of add, update, and remove operations.
func (p *Plan) Counts() (adds, updates, removes int) {
	for _, op := range p.Operations {
		switch op.Type {
		case OpAdd:
			adds++
		case OpUpdate:
			updates++
		case OpRemove:
			removes++
		}
	}
	return adds, updates, removes
}

// Flags are the reconciliation switches.
type Flags struct {
	// SkipExisting suppresses update operations for submodules that
	// already exist.
	SkipExisting bool

	// SyncSelection removes existing submodules under the prefix that are
	// not in the current selection.
	SyncSelection bool
}

// Build computes the reconciliation plan. It is a pure function of its
// inputs and issues no backend calls.
//
// Adds and updates follow the selection's order; removes follow snapshot
// order; the plan concatenates adds, then updates, then removes. An
// update is emitted only when the recorded URL or pinned commit differs
// from the desired entry, so an unchanged desired set yields an empty
// plan. Removes draw from the existing set minus the selection - not
// minus the full desired set - restricted to submodules under the prefix.
func Build(selected []manifest.Entry, prefix string, existing []gitx.Submodule, flags Flags) *Plan {
	existingByName := make(map[string]gitx.Submodule, len(existing))
	for _, sub := range existing {
		existingByName[sub.Name] = sub
	}

	selectedNames := make(map[string]bool, len(selected))
	var adds, updates, removes []Operation

	for _, e := range selected {
		name := manifest.SubmoduleName(prefix, e.Path)
		selectedNames[name] = true

		cur, ok := existingByName[name]
		if !ok {
			adds = append(adds, Operation{
				Type:    OpAdd,
				Name:    name,
				Path:    name,
				URL:     e.URL,
				Version: e.Version,
			})
			continue
		}

		if flags.SkipExisting {
			continue
		}
		if cur.URL == e.URL && cur.IndexCommit == e.Version {
			// Already pinned exactly as desired.
			continue
		}
		updates = append(updates, Operation{
			Type:    OpUpdate,
			Name:    name,
			Path:    cur.Path,
			URL:     e.URL,
			Version: e.Version,
		})
	}

	if flags.SyncSelection {
		for _, sub := range existing {
			if !underPrefix(sub.Name, prefix) {
				continue
			}
			if selectedNames[sub.Name] {
				continue
			}
			removes = append(removes, Operation{
				Type: OpRemove,
				Name: sub.Name,
				Path: sub.Path,
			})
		}
	}

	ops := make([]Operation, 0, len(adds)+len(updates)+len(removes))
	ops = append(ops, adds...)
	ops = append(ops, updates...)
	ops = append(ops, removes...)
	return &Plan{Operations: ops}
}

// Extras returns the names of existing submodules under the prefix that
// are outside the current selection. When SyncSelection is off these are
// left alone and only reported.
func Extras(selected []manifest.Entry, prefix string, existing []gitx.Submodule) []string {
	selectedNames := make(map[string]bool, len(selected))
	for _, e := range selected {
		selectedNames[manifest.SubmoduleName(prefix, e.Path)] = true
	}

	var extras []string
	for _, sub := range existing {
		if underPrefix(sub.Name, prefix) && !selectedNames[sub.Name] {
			extras = append(extras, sub.Name)
		}
	}
	return extras
}

// underPrefix reports whether a submodule name falls under the managed
// prefix. An empty prefix manages the whole repository.
func underPrefix(name, prefix string) bool {
	if prefix == "" {
		return true
	}
	p := path.Clean(filepath.ToSlash(prefix))
	if p == "." {
		return true
	}
	return name == p || strings.HasPrefix(name, p+"/")
}
