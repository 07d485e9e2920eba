package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/submodsync/submodsync/internal/gitx"
)

func TestTakeSnapshotCapturesAllSubmodules(t *testing.T) {
	fake := gitx.NewFakeBackend()
	fake.SeedSubmodule(gitx.Submodule{Name: "vendor/liba", Path: "vendor/liba", URL: "https://example.com/liba.git", IndexCommit: "aaa111"})
	fake.SeedSubmodule(gitx.Submodule{Name: "vendor/libb", Path: "vendor/libb", URL: "https://example.com/libb.git", IndexCommit: "bbb222"})

	snap, err := takeSnapshot(context.Background(), fake)
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, []string{"vendor/liba", "vendor/libb"}, snap.Names())

	sub, ok := snap.Get("vendor/liba")
	require.True(t, ok)
	assert.Equal(t, "aaa111", sub.IndexCommit)
}

func TestTakeSnapshotRejectsStagedSuperproject(t *testing.T) {
	fake := gitx.NewFakeBackend()
	fake.SetStaged(true)

	_, err := takeSnapshot(context.Background(), fake)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSuperprojectDirty))
}

func TestTakeSnapshotRejectsUninitializedSubmodule(t *testing.T) {
	fake := gitx.NewFakeBackend()
	fake.SeedSubmodule(gitx.Submodule{Name: "vendor/liba", Path: "vendor/liba", URL: "https://example.com/liba.git", IndexCommit: "aaa111"})
	fake.SetUninitialized("vendor/liba")

	_, err := takeSnapshot(context.Background(), fake)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSubmoduleUninitialized))
}

func TestTakeSnapshotRejectsDirtySubmodule(t *testing.T) {
	fake := gitx.NewFakeBackend()
	fake.SeedSubmodule(gitx.Submodule{Name: "vendor/liba", Path: "vendor/liba", URL: "https://example.com/liba.git", IndexCommit: "aaa111"})
	fake.SetDirty("vendor/liba")

	_, err := takeSnapshot(context.Background(), fake)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSubmoduleDirty))
}

func TestTakeSnapshotRejectsDriftedSubmodule(t *testing.T) {
	fake := gitx.NewFakeBackend()
	fake.SeedSubmodule(gitx.Submodule{Name: "vendor/liba", Path: "vendor/liba", URL: "https://example.com/liba.git", IndexCommit: "aaa111"})
	fake.SetHead("vendor/liba", "ccc333")

	_, err := takeSnapshot(context.Background(), fake)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSubmoduleDrifted))
	assert.Contains(t, err.Error(), "aaa111")
	assert.Contains(t, err.Error(), "ccc333")
}

func TestTakeSnapshotFailsFastOnFirstViolation(t *testing.T) {
	fake := gitx.NewFakeBackend()
	fake.SeedSubmodule(gitx.Submodule{Name: "vendor/liba", Path: "vendor/liba", URL: "https://example.com/liba.git", IndexCommit: "aaa111"})
	fake.SeedSubmodule(gitx.Submodule{Name: "vendor/libb", Path: "vendor/libb", URL: "https://example.com/libb.git", IndexCommit: "bbb222"})
	fake.SetDirty("vendor/liba")
	fake.SetDirty("vendor/libb")

	_, err := takeSnapshot(context.Background(), fake)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vendor/liba")
	assert.NotContains(t, err.Error(), "vendor/libb")
}

func TestSnapshotAccessorsCopy(t *testing.T) {
	fake := gitx.NewFakeBackend()
	fake.SeedSubmodule(gitx.Submodule{Name: "vendor/liba", Path: "vendor/liba", URL: "https://example.com/liba.git", IndexCommit: "aaa111"})

	snap, err := takeSnapshot(context.Background(), fake)
	require.NoError(t, err)

	names := snap.Names()
	names[0] = "mutated"
	assert.Equal(t, []string{"vendor/liba"}, snap.Names())

	subs := snap.Submodules()
	subs[0].IndexCommit = "mutated"
	got, _ := snap.Get("vendor/liba")
	assert.Equal(t, "aaa111", got.IndexCommit)
}
