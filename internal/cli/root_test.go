package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandHelp(t *testing.T) {
	rootCmd.SetArgs([]string{"--help"})
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "submodsync")
	assert.Contains(t, buf.String(), "sync")

	// Reset flag state for other tests.
	require.NoError(t, rootCmd.Flags().Lookup("help").Value.Set("false"))
}

func TestRootCommandVersion(t *testing.T) {
	SetVersion("1.2.3")
	rootCmd.SetArgs([]string{"--version"})
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "1.2.3")
}

func TestSetVersionIgnoresEmpty(t *testing.T) {
	SetVersion("2.0.0")
	SetVersion("")
	assert.Equal(t, "2.0.0", rootCmd.Version)
}

func TestRootCommandSubcommands(t *testing.T) {
	for _, name := range []string{"sync", "status", "version"} {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{name})
			require.NoError(t, err)
			require.NotNil(t, cmd)
			assert.Equal(t, name, cmd.Name())
		})
	}
}

func TestSyncCommandRejectsOnlyWithIgnore(t *testing.T) {
	rootCmd.SetArgs([]string{"sync", "repos.yaml", "vendor", "--only", "a", "--ignore", "b"})
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "only") && strings.Contains(err.Error(), "ignore"))

	// Reset flag state for other tests.
	syncOnly = nil
	syncIgnore = nil
}

func TestSyncCommandRequiresTwoArgs(t *testing.T) {
	rootCmd.SetArgs([]string{"sync", "repos.yaml"})
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)

	require.Error(t, rootCmd.Execute())
}
