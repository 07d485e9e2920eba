package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/submodsync/submodsync/internal/clock"
	"github.com/submodsync/submodsync/internal/gitx"
	"github.com/submodsync/submodsync/internal/planner"
)

// applyAndFail runs the plan, requires that it fails, and returns the
// snapshot taken beforehand together with the operation log.
func applyAndFail(t *testing.T, fake *gitx.FakeBackend, plan *planner.Plan) (*Snapshot, *OperationLog) {
	t.Helper()

	snap, err := takeSnapshot(context.Background(), fake)
	require.NoError(t, err)

	exec := NewExecutor(fake, clock.NewFakeClock(time.Unix(1700000000, 0)), nil, false)
	oplog, err := exec.Apply(context.Background(), plan)
	require.Error(t, err)

	return snap, oplog
}

func TestRestoreUndoesCompletedAdds(t *testing.T) {
	fake := gitx.NewFakeBackend()
	fake.SeedRef("main", "aaa111")
	fake.FetchErr["vendor/libb"] = errors.New("network unreachable")

	snap, err := takeSnapshot(context.Background(), fake)
	require.NoError(t, err)
	before := fake.State()

	plan := &planner.Plan{Operations: []planner.Operation{
		{Type: planner.OpAdd, Name: "vendor/liba", Path: "vendor/liba", URL: "https://example.com/liba.git", Version: "main"},
		{Type: planner.OpAdd, Name: "vendor/libb", Path: "vendor/libb", URL: "https://example.com/libb.git", Version: "main"},
	}}
	exec := NewExecutor(fake, clock.NewFakeClock(time.Unix(1700000000, 0)), nil, false)
	oplog, execErr := exec.Apply(context.Background(), plan)
	require.Error(t, execErr)

	require.NoError(t, NewRollback(fake, nil).Restore(context.Background(), snap, oplog))

	if diff := cmp.Diff(before, fake.State()); diff != "" {
		t.Errorf("state not restored (-want +got):\n%s", diff)
	}
}

func TestRestoreCleansUpPartiallyCreatedAdd(t *testing.T) {
	fake := gitx.NewFakeBackend()
	fake.AddErr["vendor/liba"] = errors.New("clone failed")

	plan := &planner.Plan{Operations: []planner.Operation{
		{Type: planner.OpAdd, Name: "vendor/liba", Path: "vendor/liba", URL: "https://example.com/liba.git", Version: "main"},
	}}
	snap, oplog := applyAndFail(t, fake, plan)

	// The failed add left a partial entry behind; rollback removes it.
	require.Len(t, fake.State(), 1)
	require.NoError(t, NewRollback(fake, nil).Restore(context.Background(), snap, oplog))
	assert.Empty(t, fake.State())
}

func TestRestoreToleratesPartialCleanupFailure(t *testing.T) {
	fake := gitx.NewFakeBackend()
	fake.AddErr["vendor/liba"] = errors.New("clone failed")
	fake.RemoveErr["vendor/liba"] = errors.New("rm failed")

	plan := &planner.Plan{Operations: []planner.Operation{
		{Type: planner.OpAdd, Name: "vendor/liba", Path: "vendor/liba", URL: "https://example.com/liba.git", Version: "main"},
	}}
	snap, oplog := applyAndFail(t, fake, plan)

	// Cleanup of the partial entry is best-effort only.
	require.NoError(t, NewRollback(fake, nil).Restore(context.Background(), snap, oplog))
}

func TestRestoreResetsUpdatedSubmodule(t *testing.T) {
	fake := gitx.NewFakeBackend()
	fake.SeedSubmodule(gitx.Submodule{Name: "vendor/liba", Path: "vendor/liba", URL: "https://example.com/liba.git", IndexCommit: "aaa111"})
	fake.SeedSubmodule(gitx.Submodule{Name: "vendor/libb", Path: "vendor/libb", URL: "https://example.com/libb.git", IndexCommit: "bbb222"})
	fake.SeedCommit("ccc333")
	fake.FetchErr["vendor/libb"] = errors.New("network unreachable")

	before := fake.State()

	plan := &planner.Plan{Operations: []planner.Operation{
		{Type: planner.OpUpdate, Name: "vendor/liba", Path: "vendor/liba", URL: "https://example.com/liba.git", Version: "ccc333"},
		{Type: planner.OpUpdate, Name: "vendor/libb", Path: "vendor/libb", URL: "https://example.com/libb.git", Version: "ccc333"},
	}}
	snap, oplog := applyAndFail(t, fake, plan)

	// The first update completed before the second failed.
	require.Equal(t, "ccc333", fake.State()[0].IndexCommit)

	require.NoError(t, NewRollback(fake, nil).Restore(context.Background(), snap, oplog))

	if diff := cmp.Diff(before, fake.State()); diff != "" {
		t.Errorf("state not restored (-want +got):\n%s", diff)
	}
}

func TestRestoreRematerializesRemovedSubmodule(t *testing.T) {
	fake := gitx.NewFakeBackend()
	fake.SeedSubmodule(gitx.Submodule{Name: "vendor/stale", Path: "vendor/stale", URL: "https://example.com/stale.git", IndexCommit: "aaa111"})
	fake.FetchErr["vendor/libb"] = errors.New("network unreachable")

	before := fake.State()

	plan := &planner.Plan{Operations: []planner.Operation{
		{Type: planner.OpRemove, Name: "vendor/stale", Path: "vendor/stale"},
		{Type: planner.OpAdd, Name: "vendor/libb", Path: "vendor/libb", URL: "https://example.com/libb.git", Version: "main"},
	}}
	snap, oplog := applyAndFail(t, fake, plan)

	require.NoError(t, NewRollback(fake, nil).Restore(context.Background(), snap, oplog))

	state := fake.State()
	require.Len(t, state, 1)
	assert.Equal(t, before[0].Name, state[0].Name)
	assert.Equal(t, before[0].URL, state[0].URL)
	assert.Equal(t, before[0].IndexCommit, state[0].IndexCommit)
}

func TestRestoreFailureIsTerminal(t *testing.T) {
	fake := gitx.NewFakeBackend()
	fake.SeedSubmodule(gitx.Submodule{Name: "vendor/stale", Path: "vendor/stale", URL: "https://example.com/stale.git", IndexCommit: "aaa111"})
	fake.FetchErr["vendor/libb"] = errors.New("network unreachable")

	plan := &planner.Plan{Operations: []planner.Operation{
		{Type: planner.OpRemove, Name: "vendor/stale", Path: "vendor/stale"},
		{Type: planner.OpAdd, Name: "vendor/libb", Path: "vendor/libb", URL: "https://example.com/libb.git", Version: "main"},
	}}
	snap, oplog := applyAndFail(t, fake, plan)

	// Rematerializing the removed submodule starts with an add; fail it.
	fake.AddErr["vendor/stale"] = errors.New("remote gone")

	err := NewRollback(fake, nil).Restore(context.Background(), snap, oplog)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRollbackFailed))
}

func TestRestoreFailsWhenAddedSubmoduleCannotBeRemoved(t *testing.T) {
	fake := gitx.NewFakeBackend()
	fake.SeedRef("main", "aaa111")
	fake.FetchErr["vendor/libb"] = errors.New("network unreachable")

	plan := &planner.Plan{Operations: []planner.Operation{
		{Type: planner.OpAdd, Name: "vendor/liba", Path: "vendor/liba", URL: "https://example.com/liba.git", Version: "main"},
		{Type: planner.OpAdd, Name: "vendor/libb", Path: "vendor/libb", URL: "https://example.com/libb.git", Version: "main"},
	}}
	snap, oplog := applyAndFail(t, fake, plan)

	fake.RemoveErr["vendor/liba"] = errors.New("rm failed")

	err := NewRollback(fake, nil).Restore(context.Background(), snap, oplog)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRollbackFailed))
	assert.Contains(t, err.Error(), "vendor/liba")
}
