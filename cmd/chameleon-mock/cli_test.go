package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chameleon-db/chameleon-mock/internal/admin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestInitValidateReplay(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, run(t, "init"))
	assert.Error(t, run(t, "init"), "second init must refuse to overwrite")

	require.NoError(t, run(t, "validate"))
	require.NoError(t, run(t, "replay", filepath.Join("scripts", "example.yml"), "--strict", "--save"))
	require.NoError(t, run(t, "query", "Contact", "--filter", "Name:eq:Alice", "--format", "json"))

	logger, err := admin.NewManagerFactory(dir).CreateJournalLogger()
	require.NoError(t, err)
	entries, err := logger.Last(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "validate", entries[0].Action)
	assert.Equal(t, "replay", entries[1].Action)
	assert.EqualValues(t, 5, entries[1].Details["hits"])
	assert.Equal(t, "query", entries[2].Action)

	reports, err := filepath.Glob(filepath.Join(dir, admin.DirName, "reports", "example-*.json"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestParseLiteral(t *testing.T) {
	assert.Equal(t, int64(18), parseLiteral("gte", "18"))
	assert.Equal(t, 12.5, parseLiteral("eq", "12.5"))
	assert.Equal(t, true, parseLiteral("eq", "true"))
	assert.Nil(t, parseLiteral("eq", "null"))
	assert.Equal(t, "Alice", parseLiteral("eq", "Alice"))
	assert.Equal(t, []interface{}{"new", int64(2)}, parseLiteral("In", "new, 2"))
}
