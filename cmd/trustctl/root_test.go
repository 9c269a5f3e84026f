package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"migrate", "score", "risk", "status", "events", "verify-chain", "cases"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, cmd.Name())
	}
}

func TestRiskRequiresFlags(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"risk", "--client", "c1"})
	require.Error(t, root.Execute())
}

func TestModelsCoverEngineTables(t *testing.T) {
	require.Len(t, Models(), 4)
}
