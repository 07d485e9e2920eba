package gitx

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/submodsync/submodsync/internal/fsops"
)

// RealBackend implements Backend by invoking the git CLI in the
// superproject's root directory.
type RealBackend struct {
	root string
	fs   fsops.FS
}

// NewRealBackend creates a backend rooted at the given superproject
// directory.
func NewRealBackend(root string, fs fsops.FS) *RealBackend {
	return &RealBackend{root: root, fs: fs}
}

// runGit executes a git command in dir and returns its trimmed stdout.
func (b *RealBackend) runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return "", fmt.Errorf("git %s failed: %w\nstderr: %s", strings.Join(args, " "), err, stderr.String())
	}

	return strings.TrimSpace(stdout.String()), nil
}

// subDir returns the absolute directory of a submodule working tree.
func (b *RealBackend) subDir(path string) string {
	return filepath.Join(b.root, filepath.FromSlash(path))
}

// gitmodulesPath returns the location of the superproject's .gitmodules file.
func (b *RealBackend) gitmodulesPath() string {
	return filepath.Join(b.root, ".gitmodules")
}

// ListSubmodules reads .gitmodules plus the index and working trees.
func (b *RealBackend) ListSubmodules(ctx context.Context) ([]Submodule, error) {
	exists, err := b.fs.Exists(b.gitmodulesPath())
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	out, err := b.runGit(ctx, b.root, "config", "--file", ".gitmodules", "--list")
	if err != nil {
		return nil, fmt.Errorf("failed to read .gitmodules: %w", err)
	}

	subs := parseGitmodulesConfig(out)
	for i := range subs {
		indexOut, err := b.runGit(ctx, b.root, "ls-files", "-s", "--", subs[i].Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read index entry for %q: %w", subs[i].Path, err)
		}
		subs[i].IndexCommit = parseIndexCommit(indexOut)

		// HEAD resolution fails for uninitialized submodules; that is
		// reported through the empty HeadCommit, not an error.
		head, err := b.runGit(ctx, b.subDir(subs[i].Path), "rev-parse", "HEAD")
		if err == nil {
			subs[i].HeadCommit = head
		}
	}

	return subs, nil
}

// SubmoduleIsInitialized reports whether the submodule has a working commit.
func (b *RealBackend) SubmoduleIsInitialized(ctx context.Context, name string) (bool, error) {
	path, err := b.resolvePath(ctx, name)
	if err != nil {
		return false, err
	}
	_, err = b.runGit(ctx, b.subDir(path), "rev-parse", "--verify", "HEAD")
	return err == nil, nil
}

// SubmoduleIsClean reports whether the submodule working tree is unmodified.
func (b *RealBackend) SubmoduleIsClean(ctx context.Context, name string) (bool, error) {
	path, err := b.resolvePath(ctx, name)
	if err != nil {
		return false, err
	}
	out, err := b.runGit(ctx, b.subDir(path), "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("failed to check submodule status: %w", err)
	}
	return out == "", nil
}

// SuperprojectHasStagedChanges reports whether the index differs from HEAD.
func (b *RealBackend) SuperprojectHasStagedChanges(ctx context.Context) (bool, error) {
	out, err := b.runGit(ctx, b.root, "diff", "--cached", "--name-only")
	if err != nil {
		return false, fmt.Errorf("failed to check staged changes: %w", err)
	}
	return out != "", nil
}

// AddSubmodule registers and clones a new submodule.
func (b *RealBackend) AddSubmodule(ctx context.Context, path, url string) (Handle, error) {
	if _, err := b.runGit(ctx, b.root, "submodule", "add", "--force", "--", url, path); err != nil {
		return Handle{}, fmt.Errorf("failed to add submodule %q: %w", path, err)
	}
	// git names a fresh submodule after its path.
	return Handle{Name: filepath.ToSlash(path), Path: path}, nil
}

// OpenSubmodule returns a handle to an existing submodule.
func (b *RealBackend) OpenSubmodule(ctx context.Context, name string) (Handle, error) {
	path, err := b.resolvePath(ctx, name)
	if err != nil {
		return Handle{}, err
	}
	return Handle{Name: name, Path: path}, nil
}

// SetSubmoduleURL rewrites the recorded URL in .gitmodules and the
// submodule's origin remote.
func (b *RealBackend) SetSubmoduleURL(ctx context.Context, name, url string) error {
	if _, err := b.runGit(ctx, b.root, "config", "--file", ".gitmodules",
		fmt.Sprintf("submodule.%s.url", name), url); err != nil {
		return fmt.Errorf("failed to set submodule url: %w", err)
	}

	path, err := b.resolvePath(ctx, name)
	if err != nil {
		return err
	}
	if _, err := b.runGit(ctx, b.subDir(path), "remote", "set-url", "origin", url); err != nil {
		return fmt.Errorf("failed to update submodule remote: %w", err)
	}
	return nil
}

// ResolveAndFetch implements the reference-then-commit resolution order.
func (b *RealBackend) ResolveAndFetch(ctx context.Context, h Handle, version string) (string, error) {
	dir := b.subDir(h.Path)

	_, err := b.runGit(ctx, dir, "fetch", "origin", version)
	if err == nil {
		commit, err := b.runGit(ctx, dir, "rev-parse", "FETCH_HEAD")
		if err != nil {
			return "", fmt.Errorf("failed to resolve fetched reference %q: %w", version, err)
		}
		return commit, nil
	}
	if !isNoSuchRef(err) {
		return "", err
	}

	// Not a reference on the remote; treat it as a commit id.
	commit, revErr := b.runGit(ctx, dir, "rev-parse", "--verify", version+"^{commit}")
	if revErr == nil {
		return commit, nil
	}

	// The commit may simply not be local yet.
	if _, fetchErr := b.runGit(ctx, dir, "fetch", "origin"); fetchErr != nil {
		return "", fmt.Errorf("failed to fetch %q: %w", version, fetchErr)
	}
	commit, revErr = b.runGit(ctx, dir, "rev-parse", "--verify", version+"^{commit}")
	if revErr != nil {
		return "", fmt.Errorf("%q is neither a remote reference nor a reachable commit: %w", version, revErr)
	}
	return commit, nil
}

// isNoSuchRef matches git's fetch failure for an unknown remote reference.
func isNoSuchRef(err error) bool {
	return strings.Contains(err.Error(), "couldn't find remote ref")
}

// Checkout detaches the submodule HEAD at commit.
func (b *RealBackend) Checkout(ctx context.Context, h Handle, commit string, withWorkTree bool) error {
	dir := b.subDir(h.Path)
	if withWorkTree {
		if _, err := b.runGit(ctx, dir, "checkout", "--detach", commit); err != nil {
			return fmt.Errorf("failed to checkout %s: %w", commit, err)
		}
		return nil
	}
	if _, err := b.runGit(ctx, dir, "update-ref", "--no-deref", "HEAD", commit); err != nil {
		return fmt.Errorf("failed to move HEAD to %s: %w", commit, err)
	}
	return nil
}

// FinalizeIndexEntry stages the submodule and .gitmodules.
func (b *RealBackend) FinalizeIndexEntry(ctx context.Context, path string) error {
	if _, err := b.runGit(ctx, b.root, "add", "--force", "--", path); err != nil {
		return fmt.Errorf("failed to stage submodule %q: %w", path, err)
	}
	exists, err := b.fs.Exists(b.gitmodulesPath())
	if err != nil {
		return err
	}
	if exists {
		if _, err := b.runGit(ctx, b.root, "add", "--force", "--", ".gitmodules"); err != nil {
			return fmt.Errorf("failed to stage .gitmodules: %w", err)
		}
	}
	return nil
}

// RemoveSubmodule fully removes a submodule, tolerating a partially
// created one: deinit and rm may fail for an entry that never finished
// cloning, in which case the leftovers are deleted directly.
func (b *RealBackend) RemoveSubmodule(ctx context.Context, name string) error {
	path, err := b.resolvePath(ctx, name)
	if err != nil {
		// The .gitmodules entry may already be gone; fall back to the
		// name, which matches the path for submodules this tool manages.
		path = name
	}

	if _, err := b.runGit(ctx, b.root, "submodule", "deinit", "--force", "--", path); err == nil {
		if _, err := b.runGit(ctx, b.root, "rm", "-f", "--", path); err != nil {
			return fmt.Errorf("failed to remove submodule %q from index: %w", path, err)
		}
	} else {
		// Deinit fails for a never-initialized or partially created
		// submodule; drop the index entry and directory directly.
		_, _ = b.runGit(ctx, b.root, "rm", "-f", "--cached", "--", path)
		if err := b.fs.RemoveAll(b.subDir(path)); err != nil {
			return fmt.Errorf("failed to delete submodule working tree %q: %w", path, err)
		}
	}

	// Delete the private object store.
	modulesDir := filepath.Join(b.root, ".git", "modules", filepath.FromSlash(name))
	exists, err := b.fs.Exists(modulesDir)
	if err != nil {
		return err
	}
	if exists {
		if err := b.fs.RemoveAll(modulesDir); err != nil {
			return fmt.Errorf("failed to delete submodule object store: %w", err)
		}
	}

	return b.cleanGitmodules(ctx, name)
}

// cleanGitmodules strips the named submodule's declaration and deletes the
// file entirely when no declarations remain.
func (b *RealBackend) cleanGitmodules(ctx context.Context, name string) error {
	gmPath := b.gitmodulesPath()
	exists, err := b.fs.Exists(gmPath)
	if err != nil || !exists {
		return err
	}

	data, err := b.fs.ReadFile(gmPath)
	if err != nil {
		return fmt.Errorf("failed to read .gitmodules: %w", err)
	}

	stripped := StripGitmodulesSection(string(data), name)
	if strings.TrimSpace(stripped) == "" {
		if err := b.fs.Remove(gmPath); err != nil {
			return fmt.Errorf("failed to remove empty .gitmodules: %w", err)
		}
		// Best effort: drop the stale index entry too.
		_, _ = b.runGit(ctx, b.root, "rm", "-f", "--cached", "--", ".gitmodules")
		return nil
	}

	if stripped != string(data) {
		if err := b.fs.AtomicWrite(gmPath, []byte(stripped), 0644); err != nil {
			return fmt.Errorf("failed to rewrite .gitmodules: %w", err)
		}
		if _, err := b.runGit(ctx, b.root, "add", "--force", "--", ".gitmodules"); err != nil {
			return fmt.Errorf("failed to stage .gitmodules: %w", err)
		}
	}
	return nil
}

// resolvePath looks up the working-tree path for a submodule name.
func (b *RealBackend) resolvePath(ctx context.Context, name string) (string, error) {
	out, err := b.runGit(ctx, b.root, "config", "--file", ".gitmodules", "--get",
		fmt.Sprintf("submodule.%s.path", name))
	if err != nil {
		return "", fmt.Errorf("unknown submodule %q: %w", name, err)
	}
	return out, nil
}

// parseGitmodulesConfig parses `git config --file .gitmodules --list`
// output into submodules, preserving first-seen order.
func parseGitmodulesConfig(out string) []Submodule {
	var order []string
	byName := make(map[string]*Submodule)

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		rest, found := strings.CutPrefix(key, "submodule.")
		if !found {
			continue
		}
		idx := strings.LastIndex(rest, ".")
		if idx < 0 {
			continue
		}
		name, field := rest[:idx], rest[idx+1:]

		sub, ok := byName[name]
		if !ok {
			sub = &Submodule{Name: name}
			byName[name] = sub
			order = append(order, name)
		}
		switch field {
		case "path":
			sub.Path = value
		case "url":
			sub.URL = value
		}
	}

	subs := make([]Submodule, 0, len(order))
	for _, name := range order {
		subs = append(subs, *byName[name])
	}
	return subs
}

// parseIndexCommit extracts the commit id from `git ls-files -s` output
// for a gitlink entry ("160000 <sha> 0\t<path>").
func parseIndexCommit(out string) string {
	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "160000" {
		return ""
	}
	return fields[1]
}

// StripGitmodulesSection returns content with the named submodule's
// section removed. Exported for the fake-free unit tests.
func StripGitmodulesSection(content, name string) string {
	header := fmt.Sprintf("[submodule %q]", name)

	var sb strings.Builder
	inSection := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == header {
			inSection = true
			continue
		}
		if inSection && strings.HasPrefix(trimmed, "[") {
			inSection = false
		}
		if !inSection {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}
