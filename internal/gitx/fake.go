package gitx

import (
	"context"
	"fmt"
	"strings"
)

// FakeBackend is an in-memory Backend double. It models submodule state,
// a set of remote references and commits, and per-target error injection,
// and records every mutating call for order assertions.
type FakeBackend struct {
	order         []string
	subs          map[string]*Submodule
	dirty         map[string]bool
	uninitialized map[string]bool
	staged        bool

	refs    map[string]string // remote branch/tag name -> commit id
	commits map[string]bool   // commit ids reachable on the remote

	// Configurable failures, keyed by target.
	ListErr     error
	AddErr      map[string]error // by path
	FetchErr    map[string]error // by submodule name
	CheckoutErr map[string]error // by submodule name
	SetURLErr   map[string]error // by submodule name
	FinalizeErr map[string]error // by path
	RemoveErr   map[string]error // by submodule name

	// Calls records every backend call in order, e.g. "add src/a".
	Calls []string
}

// NewFakeBackend creates an empty FakeBackend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		subs:          make(map[string]*Submodule),
		dirty:         make(map[string]bool),
		uninitialized: make(map[string]bool),
		refs:          make(map[string]string),
		commits:       make(map[string]bool),
		AddErr:        make(map[string]error),
		FetchErr:      make(map[string]error),
		CheckoutErr:   make(map[string]error),
		SetURLErr:     make(map[string]error),
		FinalizeErr:   make(map[string]error),
		RemoveErr:     make(map[string]error),
	}
}

// SeedSubmodule installs an existing submodule.
func (f *FakeBackend) SeedSubmodule(sub Submodule) {
	if sub.HeadCommit == "" {
		sub.HeadCommit = sub.IndexCommit
	}
	cp := sub
	f.subs[sub.Name] = &cp
	f.order = append(f.order, sub.Name)
	f.commits[sub.IndexCommit] = true
}

// SeedRef declares a remote branch or tag pointing at commit.
func (f *FakeBackend) SeedRef(ref, commit string) {
	f.refs[ref] = commit
	f.commits[commit] = true
}

// SeedCommit declares a commit id reachable on the remote.
func (f *FakeBackend) SeedCommit(id string) {
	f.commits[id] = true
}

// SetStaged marks the superproject index as dirty.
func (f *FakeBackend) SetStaged(staged bool) {
	f.staged = staged
}

// SetDirty marks a submodule working tree as modified.
func (f *FakeBackend) SetDirty(name string) {
	f.dirty[name] = true
}

// SetUninitialized marks a submodule as having no working commit.
func (f *FakeBackend) SetUninitialized(name string) {
	f.uninitialized[name] = true
	if sub, ok := f.subs[name]; ok {
		sub.HeadCommit = ""
	}
}

// SetHead moves a submodule's checked-out commit without touching the index
// entry, simulating drift.
func (f *FakeBackend) SetHead(name, commit string) {
	if sub, ok := f.subs[name]; ok {
		sub.HeadCommit = commit
	}
}

// State returns a deep copy of the current submodule state in order.
// Tests use it to assert purity and rollback correctness.
func (f *FakeBackend) State() []Submodule {
	out := make([]Submodule, 0, len(f.order))
	for _, name := range f.order {
		out = append(out, *f.subs[name])
	}
	return out
}

func (f *FakeBackend) record(format string, args ...any) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

// ListSubmodules returns the current submodules in insertion order.
func (f *FakeBackend) ListSubmodules(ctx context.Context) ([]Submodule, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.State(), nil
}

// SubmoduleIsInitialized reports the seeded initialization state.
func (f *FakeBackend) SubmoduleIsInitialized(ctx context.Context, name string) (bool, error) {
	if _, ok := f.subs[name]; !ok {
		return false, fmt.Errorf("unknown submodule %q", name)
	}
	return !f.uninitialized[name], nil
}

// SubmoduleIsClean reports the seeded cleanliness state.
func (f *FakeBackend) SubmoduleIsClean(ctx context.Context, name string) (bool, error) {
	if _, ok := f.subs[name]; !ok {
		return false, fmt.Errorf("unknown submodule %q", name)
	}
	return !f.dirty[name], nil
}

// SuperprojectHasStagedChanges reports the seeded staged state.
func (f *FakeBackend) SuperprojectHasStagedChanges(ctx context.Context) (bool, error) {
	return f.staged, nil
}

// AddSubmodule registers a new entry. On an injected failure the entry is
// still registered as partially created, mirroring git's behavior of
// touching .gitmodules before the clone can fail.
func (f *FakeBackend) AddSubmodule(ctx context.Context, path, url string) (Handle, error) {
	f.record("add %s", path)

	name := strings.TrimSuffix(path, "/")
	sub := &Submodule{Name: name, Path: path, URL: url}
	f.subs[name] = sub
	f.order = append(f.order, name)

	if err := f.AddErr[path]; err != nil {
		return Handle{}, err
	}
	return Handle{Name: name, Path: path}, nil
}

// OpenSubmodule returns a handle for an existing entry.
func (f *FakeBackend) OpenSubmodule(ctx context.Context, name string) (Handle, error) {
	sub, ok := f.subs[name]
	if !ok {
		return Handle{}, fmt.Errorf("unknown submodule %q", name)
	}
	return Handle{Name: name, Path: sub.Path}, nil
}

// SetSubmoduleURL rewrites the recorded URL.
func (f *FakeBackend) SetSubmoduleURL(ctx context.Context, name, url string) error {
	f.record("set-url %s %s", name, url)
	if err := f.SetURLErr[name]; err != nil {
		return err
	}
	sub, ok := f.subs[name]
	if !ok {
		return fmt.Errorf("unknown submodule %q", name)
	}
	sub.URL = url
	return nil
}

// ResolveAndFetch resolves version reference-first, then as a commit id.
func (f *FakeBackend) ResolveAndFetch(ctx context.Context, h Handle, version string) (string, error) {
	f.record("fetch %s %s", h.Name, version)
	if err := f.FetchErr[h.Name]; err != nil {
		return "", err
	}
	if commit, ok := f.refs[version]; ok {
		return commit, nil
	}
	if f.commits[version] {
		return version, nil
	}
	return "", fmt.Errorf("couldn't find remote ref or commit %q", version)
}

// Checkout moves the submodule HEAD to commit.
func (f *FakeBackend) Checkout(ctx context.Context, h Handle, commit string, withWorkTree bool) error {
	f.record("checkout %s %s tree=%t", h.Name, commit, withWorkTree)
	if err := f.CheckoutErr[h.Name]; err != nil {
		return err
	}
	sub, ok := f.subs[h.Name]
	if !ok {
		return fmt.Errorf("unknown submodule %q", h.Name)
	}
	sub.HeadCommit = commit
	delete(f.uninitialized, h.Name)
	return nil
}

// FinalizeIndexEntry records the checked-out commit in the index.
func (f *FakeBackend) FinalizeIndexEntry(ctx context.Context, path string) error {
	f.record("finalize %s", path)
	if err := f.FinalizeErr[path]; err != nil {
		return err
	}
	for _, sub := range f.subs {
		if sub.Path == path {
			sub.IndexCommit = sub.HeadCommit
			return nil
		}
	}
	return fmt.Errorf("no submodule at path %q", path)
}

// RemoveSubmodule deletes the entry entirely.
func (f *FakeBackend) RemoveSubmodule(ctx context.Context, name string) error {
	f.record("remove %s", name)
	if err := f.RemoveErr[name]; err != nil {
		return err
	}
	if _, ok := f.subs[name]; !ok {
		return fmt.Errorf("unknown submodule %q", name)
	}
	delete(f.subs, name)
	for i, n := range f.order {
		if n == name {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	delete(f.dirty, name)
	delete(f.uninitialized, name)
	return nil
}
