package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/submodsync/submodsync/internal/engine"
)

var statusCmd = &cobra.Command{
	Use:   "status <repos-file> <prefix>",
	Short: "Show how submodules compare to the manifest",
	Long: `Compare the repository's submodules under <prefix> with the entries
declared in <repos-file>, without changing anything.`,
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

		result, err := eng.Status(context.Background(), &engine.StatusRequest{
			Manifest: m,
			Prefix:   args[1],
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(statusView(result))
		}

		PrintSection("Submodules")
		if len(result.Submodules) == 0 {
			PrintEmptyState("No declared submodules present")
		}
		for _, sub := range result.Submodules {
			PrintLabelValue(sub.Name, fmt.Sprintf("%s @ %s", sub.URL, shortCommit(sub.IndexCommit)))
		}

		if len(result.Missing) > 0 {
			PrintSection("Missing")
			PrintList(result.Missing, 1)
		}
		if len(result.Extra) > 0 {
			PrintSection("Extra")
			PrintList(result.Extra, 1)
		}
		return nil
	},
}

// shortCommit abbreviates a commit id for display.
func shortCommit(commit string) string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}

type statusSubView struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	URL    string `json:"url"`
	Commit string `json:"commit"`
}

type statusResultView struct {
	Submodules []statusSubView `json:"submodules"`
	Missing    []string        `json:"missing,omitempty"`
	Extra      []string        `json:"extra,omitempty"`
}

func statusView(result *engine.StatusResult) statusResultView {
	view := statusResultView{
		Submodules: make([]statusSubView, 0, len(result.Submodules)),
		Missing:    result.Missing,
		Extra:      result.Extra,
	}
	for _, sub := range result.Submodules {
		view.Submodules = append(view.Submodules, statusSubView{
			Name:   sub.Name,
			Path:   sub.Path,
			URL:    sub.URL,
			Commit: sub.IndexCommit,
		})
	}
	return view
}
