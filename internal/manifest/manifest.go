// Package manifest parses and validates the declared set of external
// repositories to track as submodules.
//
// The manifest file is YAML of the form:
//
//	repositories:
//	  tools/widget:
//	    type: git
//	    url: https://example.com/widget.git
//	    version: main
//
// Entry order in the file is preserved; the engine emits add and update
// operations in manifest order.
package manifest

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Entry describes one declared repository: where it goes (relative to the
// prefix), where it comes from, and which version to pin.
type Entry struct {
	// Path is the repository's location relative to the prefix.
	Path string

	// URL is the remote to clone from.
	URL string

	// Version is a branch, tag, or commit id to pin the submodule to.
	Version string
}

// Manifest is the ordered desired set, keyed by path.
type Manifest struct {
	// Entries holds the declared repositories in file order.
	Entries []Entry
}

// rawRepo is the on-disk shape of a single repository entry.
type rawRepo struct {
	Type    string `yaml:"type"`
	URL     string `yaml:"url"`
	Version string `yaml:"version"`
}

// Parse reads a manifest from r, preserving the declaration order of the
// repositories mapping.
func Parse(r io.Reader) (*Manifest, error) {
	var doc struct {
		Repositories yaml.Node `yaml:"repositories"`
	}

	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if doc.Repositories.IsZero() {
		return nil, fmt.Errorf("failed to parse manifest: missing 'repositories' mapping")
	}
	if doc.Repositories.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("failed to parse manifest: 'repositories' must be a mapping")
	}

	m := &Manifest{}
	content := doc.Repositories.Content
	for i := 0; i+1 < len(content); i += 2 {
		keyNode := content[i]
		valNode := content[i+1]

		var raw rawRepo
		if err := valNode.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to parse entry %q: %w", keyNode.Value, err)
		}

		if raw.Type != "git" {
			return nil, fmt.Errorf("%w: repository type %q is not supported, only 'git' repositories are supported",
				ErrUnsupportedType, raw.Type)
		}
		if raw.URL == "" {
			return nil, fmt.Errorf("%w: entry %q has no url", ErrInvalidURL, keyNode.Value)
		}
		if raw.Version == "" {
			return nil, fmt.Errorf("failed to parse entry %q: missing version", keyNode.Value)
		}

		m.Entries = append(m.Entries, Entry{
			Path:    keyNode.Value,
			URL:     raw.URL,
			Version: raw.Version,
		})
	}

	return m, nil
}

// ParseFile reads and parses the manifest at path.
func ParseFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	return Parse(f)
}
