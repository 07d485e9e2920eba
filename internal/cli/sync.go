package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/submodsync/submodsync/internal/engine"
	"github.com/submodsync/submodsync/internal/planner"
)

var (
	syncOnly         []string
	syncIgnore       []string
	syncSkipExisting bool
	syncSelection    bool
	syncNoCheckout   bool
	syncDryRun       bool
)

var syncCmd = &cobra.Command{
	Use:   "sync <repos-file> <prefix>",
	Short: "Reconcile submodules with the manifest",
	Long: `Reconcile the repository's submodules under <prefix> with the entries
declared in <repos-file>.

Missing submodules are added, existing ones are re-pinned when their URL
or commit differs, and with --sync-selection submodules under the prefix
that are absent from the selection are removed. The whole run is one
transaction: if any operation fails, every completed change is undone.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		m, err := loadManifest(args[0])
		if err != nil {
			return err
		}

		req := &engine.SyncRequest{
			Manifest:      m,
			Prefix:        args[1],
			Only:          syncOnly,
			Ignore:        syncIgnore,
			SkipExisting:  syncSkipExisting,
			SyncSelection: syncSelection,
			NoCheckout:    syncNoCheckout,
			DryRun:        syncDryRun,
		}

		result, err := eng.Sync(context.Background(), req)
		if err != nil {
			if result != nil && result.RolledBack {
				PrintWarning("Sync failed; all changes were rolled back.")
			} else if errors.Is(err, engine.ErrRollbackFailed) {
				PrintError("Rollback failed; the repository needs manual inspection.")
			}
			return err
		}

		if jsonOutput {
			return outputJSON(syncView(result))
		}

		for _, name := range result.Extras {
			PrintWarning(fmt.Sprintf("Found extra submodule %s not declared in the manifest", name))
		}

		if result.Plan.IsEmpty() {
			PrintSuccess("All submodules are up to date")
			return nil
		}

		if syncDryRun {
			PrintSection("Dry Run")
			PrintInfo(fmt.Sprintf("Would apply %s", PrintCount(len(result.Plan.Operations), "operation", "operations")))
			ops := make([]string, 0, len(result.Plan.Operations))
			for _, op := range result.Plan.Operations {
				ops = append(ops, describeOp(op))
			}
			PrintList(ops, 1)
			return nil
		}

		PrintSuccess(fmt.Sprintf("Applied %s successfully", PrintCount(len(result.Plan.Operations), "operation", "operations")))
		PrintLabelValue("Added", fmt.Sprintf("%d", result.Added))
		PrintLabelValue("Updated", fmt.Sprintf("%d", result.Updated))
		PrintLabelValue("Removed", fmt.Sprintf("%d", result.Removed))
		return nil
	},
}

// describeOp renders one plan operation for the dry-run listing.
func describeOp(op planner.Operation) string {
	switch op.Type {
	case planner.OpAdd:
		return fmt.Sprintf("add: %s (%s @ %s)", op.Name, op.URL, op.Version)
	case planner.OpUpdate:
		return fmt.Sprintf("update: %s (%s @ %s)", op.Name, op.URL, op.Version)
	case planner.OpRemove:
		return fmt.Sprintf("remove: %s", op.Name)
	default:
		return fmt.Sprintf("%s: %s", op.Type, op.Name)
	}
}

type syncOpView struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	Version string `json:"version,omitempty"`
}

type syncResultView struct {
	Operations []syncOpView `json:"operations"`
	Added      int          `json:"added"`
	Updated    int          `json:"updated"`
	Removed    int          `json:"removed"`
	Extras     []string     `json:"extras,omitempty"`
	DryRun     bool         `json:"dry_run"`
}

func syncView(result *engine.SyncResult) syncResultView {
	view := syncResultView{
		Operations: make([]syncOpView, 0, len(result.Plan.Operations)),
		Added:      result.Added,
		Updated:    result.Updated,
		Removed:    result.Removed,
		Extras:     result.Extras,
		DryRun:     syncDryRun,
	}
	for _, op := range result.Plan.Operations {
		view.Operations = append(view.Operations, syncOpView{
			Type:    string(op.Type),
			Name:    op.Name,
			URL:     op.URL,
			Version: op.Version,
		})
	}
	return view
}

func init() {
	syncCmd.Flags().StringSliceVar(&syncOnly, "only", nil, "Restrict the run to these manifest paths")
	syncCmd.Flags().StringSliceVar(&syncIgnore, "ignore", nil, "Exclude these manifest paths")
	syncCmd.Flags().BoolVar(&syncSkipExisting, "skip-existing", false, "Never touch submodules that already exist")
	syncCmd.Flags().BoolVar(&syncSelection, "sync-selection", false, "Remove submodules under the prefix that are outside the selection")
	syncCmd.Flags().BoolVar(&syncNoCheckout, "no-checkout", false, "Pin commits without populating working trees")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Show the plan without applying it")
	syncCmd.MarkFlagsMutuallyExclusive("only", "ignore")
}
