package planner

import (
	"errors"
	"fmt"

	"github.com/submodsync/submodsync/internal/manifest"
)

var (
	// ErrUnknownSelection indicates an --only entry naming no declared repository.
	ErrUnknownSelection = errors.New("unknown repository in selection")

	// ErrSelectionConflict indicates a repository both selected and ignored.
	ErrSelectionConflict = errors.New("repository cannot be selected and ignored at the same time")
)

// Selection narrows the desired set to the entries in scope for one run.
// Only and Ignore are mutually exclusive by construction at the CLI; both
// are still validated here for library callers.
type Selection struct {
	// Only restricts the run to exactly these declared paths.
	Only []string

	// Ignore excludes these paths. Entries not present in the desired set
	// are inert, not an error.
	Ignore []string
}

// Select applies the selection to the ordered desired set, preserving
// order. Only is exact: every name must be a declared path. Ignore is
// permissive. A non-empty intersection of the two is an error, never a
// silent union.
func Select(entries []manifest.Entry, sel Selection) ([]manifest.Entry, error) {
	ignored := make(map[string]bool, len(sel.Ignore))
	for _, p := range sel.Ignore {
		ignored[p] = true
	}

	if len(sel.Only) > 0 {
		declared := make(map[string]bool, len(entries))
		for _, e := range entries {
			declared[e.Path] = true
		}

		only := make(map[string]bool, len(sel.Only))
		for _, p := range sel.Only {
			if !declared[p] {
				return nil, fmt.Errorf("%w: %q", ErrUnknownSelection, p)
			}
			if ignored[p] {
				return nil, fmt.Errorf("%w: %q", ErrSelectionConflict, p)
			}
			only[p] = true
		}

		var out []manifest.Entry
		for _, e := range entries {
			if only[e.Path] {
				out = append(out, e)
			}
		}
		return out, nil
	}

	var out []manifest.Entry
	for _, e := range entries {
		if !ignored[e.Path] {
			out = append(out, e)
		}
	}
	return out, nil
}
