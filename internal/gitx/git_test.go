package gitx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGitmodulesConfig(t *testing.T) {
	out := `submodule.src/alpha.path=src/alpha
submodule.src/alpha.url=https://example.com/alpha.git
submodule.src/beta.path=src/beta
submodule.src/beta.url=ssh://git@example.com/beta.git
submodule.src/beta.branch=main`

	subs := parseGitmodulesConfig(out)
	require.Len(t, subs, 2)

	assert.Equal(t, "src/alpha", subs[0].Name)
	assert.Equal(t, "src/alpha", subs[0].Path)
	assert.Equal(t, "https://example.com/alpha.git", subs[0].URL)

	assert.Equal(t, "src/beta", subs[1].Name)
	assert.Equal(t, "ssh://git@example.com/beta.git", subs[1].URL)
}

func TestParseGitmodulesConfig_DottedNames(t *testing.T) {
	// Submodule names may themselves contain dots; only the last segment
	// is the config field.
	out := `submodule.libs/foo.bar.path=libs/foo.bar
submodule.libs/foo.bar.url=https://example.com/foo.bar.git`

	subs := parseGitmodulesConfig(out)
	require.Len(t, subs, 1)
	assert.Equal(t, "libs/foo.bar", subs[0].Name)
	assert.Equal(t, "libs/foo.bar", subs[0].Path)
}

func TestParseGitmodulesConfig_Empty(t *testing.T) {
	assert.Empty(t, parseGitmodulesConfig(""))
	assert.Empty(t, parseGitmodulesConfig("core.bare=false"))
}

func TestParseIndexCommit(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want string
	}{
		{
			name: "gitlink entry",
			out:  "160000 0123456789abcdef0123456789abcdef01234567 0\tsrc/alpha",
			want: "0123456789abcdef0123456789abcdef01234567",
		},
		{
			name: "regular file is not a submodule",
			out:  "100644 0123456789abcdef0123456789abcdef01234567 0\tREADME.md",
			want: "",
		},
		{
			name: "empty output",
			out:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseIndexCommit(tt.out))
		})
	}
}

func TestStripGitmodulesSection(t *testing.T) {
	content := `[submodule "src/alpha"]
	path = src/alpha
	url = https://example.com/alpha.git
[submodule "src/beta"]
	path = src/beta
	url = https://example.com/beta.git
`

	got := StripGitmodulesSection(content, "src/alpha")
	want := `[submodule "src/beta"]
	path = src/beta
	url = https://example.com/beta.git
`
	assert.Equal(t, want, got)

	// Removing the only section leaves nothing but whitespace.
	only := `[submodule "src/beta"]
	path = src/beta
	url = https://example.com/beta.git
`
	got = StripGitmodulesSection(only, "src/beta")
	assert.Equal(t, "\n", got)

	// Unknown name leaves content untouched.
	got = StripGitmodulesSection(content, "src/gamma")
	assert.Equal(t, content, got)
}
