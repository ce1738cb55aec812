package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTree(t *testing.T) {
	root := newRootCmd()

	for _, path := range [][]string{
		{"serve"},
		{"render"},
		{"backup", "create"},
		{"backup", "list"},
		{"backup", "restore"},
		{"products", "export"},
		{"migrate"},
		{"remind"},
	} {
		cmd, rest, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Empty(t, rest, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestRenderRequiresInvoiceID(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"render"})

	err := root.Execute()
	assert.ErrorContains(t, err, "accepts 1 arg(s)")
}

func TestRenderOutputFlag(t *testing.T) {
	cmd, _, err := newRootCmd().Find([]string{"render"})
	require.NoError(t, err)
	flag := cmd.Flags().ShorthandLookup("o")
	require.NotNil(t, flag)
	assert.Equal(t, "output", flag.Name)
}

func TestCompanyFlagDescribesResolution(t *testing.T) {
	flag := newRootCmd().PersistentFlags().Lookup("company")
	require.NotNil(t, flag)
	assert.Empty(t, flag.DefValue)
	assert.Contains(t, flag.Usage, "active company")
}
