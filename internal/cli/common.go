package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/submodsync/submodsync/internal/clock"
	"github.com/submodsync/submodsync/internal/engine"
	"github.com/submodsync/submodsync/internal/fsops"
	"github.com/submodsync/submodsync/internal/gitx"
	"github.com/submodsync/submodsync/internal/manifest"
)

// newEngine creates an engine backed by the git CLI in the current directory.
func newEngine() (*engine.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	backend := gitx.NewRealBackend(cwd, fsops.NewRealFS())
	return engine.New(backend, &clock.RealClock{}, logger), nil
}

// loadManifest parses the repos file named on the command line.
func loadManifest(path string) (*manifest.Manifest, error) {
	m, err := manifest.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return m, nil
}

// outputJSON outputs a value as JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
