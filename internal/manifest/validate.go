package manifest

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedType indicates a repository type other than git.
	ErrUnsupportedType = errors.New("unsupported repository type")

	// ErrDuplicatePath indicates the same path is declared twice.
	ErrDuplicatePath = errors.New("duplicate repository path")

	// ErrDuplicateName indicates two entries resolve to the same submodule name.
	ErrDuplicateName = errors.New("duplicate submodule name")

	// ErrUnsafePath indicates an absolute path or one escaping the prefix.
	ErrUnsafePath = errors.New("unsafe repository path")

	// ErrInvalidURL indicates a malformed or unsupported repository URL.
	ErrInvalidURL = errors.New("invalid repository url")
)

// supportedSchemes are the URL schemes accepted for repository remotes.
var supportedSchemes = map[string]bool{
	"git":   true,
	"ssh":   true,
	"https": true,
	"http":  true,
	"file":  true,
}

// SubmoduleName derives the submodule name for an entry: the cleaned,
// prefix-joined path in slash form. Submodules are identified by this
// name in .gitmodules and throughout the engine.
func SubmoduleName(prefix, entryPath string) string {
	return path.Join(filepath.ToSlash(prefix), filepath.ToSlash(entryPath))
}

// Validate checks the desired set for shape problems. It runs before any
// repository state is read; a failure aborts the invocation with nothing
// mutated.
func (m *Manifest) Validate(prefix string) error {
	if filepath.IsAbs(prefix) {
		return fmt.Errorf("%w: the prefix must be a relative path, got %q", ErrUnsafePath, prefix)
	}

	seenPaths := make(map[string]bool, len(m.Entries))
	seenNames := make(map[string]bool, len(m.Entries))

	for _, e := range m.Entries {
		if err := validatePath(e.Path); err != nil {
			return err
		}
		if err := validateURL(e.URL); err != nil {
			return err
		}

		if seenPaths[e.Path] {
			return fmt.Errorf("%w: %q", ErrDuplicatePath, e.Path)
		}
		seenPaths[e.Path] = true

		name := SubmoduleName(prefix, e.Path)
		if seenNames[name] {
			return fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
		seenNames[name] = true
	}

	return nil
}

// validatePath rejects absolute paths and paths with parent-dir components.
func validatePath(p string) error {
	if p == "" {
		return fmt.Errorf("%w: empty path", ErrUnsafePath)
	}
	if filepath.IsAbs(p) || strings.HasPrefix(filepath.ToSlash(p), "/") {
		return fmt.Errorf("%w: path must be relative, got %q", ErrUnsafePath, p)
	}
	for _, comp := range strings.Split(filepath.ToSlash(p), "/") {
		if comp == ".." {
			return fmt.Errorf("%w: path cannot contain '..' components, got %q", ErrUnsafePath, p)
		}
	}
	cleaned := path.Clean(filepath.ToSlash(p))
	if cleaned == "." {
		return fmt.Errorf("%w: path %q resolves to the prefix itself", ErrUnsafePath, p)
	}
	return nil
}

// validateURL checks the remote URL scheme against the supported set.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}
	if !supportedSchemes[u.Scheme] {
		return fmt.Errorf("%w: scheme %q in %q, supported schemes: git, ssh, https, http, file",
			ErrInvalidURL, u.Scheme, raw)
	}
	return nil
}
