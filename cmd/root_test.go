package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "search", "batch", "snapshots", "migrate"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "geosight", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestSearchCommand_Flags(t *testing.T) {
	for _, name := range []string{"query", "target", "mode", "location", "save"} {
		require.NotNil(t, searchCmd.Flags().Lookup(name), "search command should have --%s flag", name)
	}
	assert.Equal(t, "results", searchCmd.Flags().Lookup("mode").DefValue)
	assert.Equal(t, "false", searchCmd.Flags().Lookup("save").DefValue)
}

func TestBatchCommand_Flags(t *testing.T) {
	flag := batchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "batch command should have --limit flag")
	assert.Equal(t, "100", flag.DefValue)
	require.NotNil(t, batchCmd.Flags().Lookup("file"))
	require.NotNil(t, batchCmd.Flags().Lookup("concurrency"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestSnapshotsCommand_HasShow(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range snapshotsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["show"])
}
