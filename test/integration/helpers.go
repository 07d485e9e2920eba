package integration

import (
	"strings"
	"testing"
	"time"

	"github.com/submodsync/submodsync/internal/clock"
	"github.com/submodsync/submodsync/internal/engine"
	"github.com/submodsync/submodsync/internal/gitx"
	"github.com/submodsync/submodsync/internal/manifest"
)

// setupEngine creates an engine over a fresh in-memory backend.
func setupEngine(t *testing.T) (*engine.Engine, *gitx.FakeBackend) {
	t.Helper()

	fake := gitx.NewFakeBackend()
	eng := engine.New(fake, clock.NewFakeClock(time.Unix(1700000000, 0)), nil)
	return eng, fake
}

// parseManifest parses an inline YAML manifest.
func parseManifest(t *testing.T, yaml string) *manifest.Manifest {
	t.Helper()

	m, err := manifest.Parse(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return m
}

// submoduleNames returns the backend's current submodule names in order.
func submoduleNames(fake *gitx.FakeBackend) []string {
	state := fake.State()
	names := make([]string, 0, len(state))
	for _, sub := range state {
		names = append(names, sub.Name)
	}
	return names
}
