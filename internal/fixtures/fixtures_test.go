package fixtures

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chameleon-db/chameleon-mock/pkg/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDirectoryInNameOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b_orders.toml", `
[[items]]
entity = "Order"
`)
	writeFile(t, dir, "a_contacts.yml", `
default_values:
  - entity: Contact
    values: {Active: true}
items:
  - entity: Contact
`)
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	extra := writeFile(t, t.TempDir(), "extra.json", `{"saving": [{"entity": "Order", "operation": "delete"}]}`)

	merged, err := Load([]string{dir, extra})
	require.NoError(t, err)

	f := merged.Fixtures
	assert.Equal(t, 4, f.Len())
	require.Len(t, f.Items, 2)
	assert.Equal(t, "Contact", f.Items[0].Entity)
	assert.Equal(t, "Order", f.Items[1].Entity)

	require.Len(t, merged.Origins, 4)
	assert.Equal(t, "default_values", merged.Origins[0].Kind)
	assert.Equal(t, "a_contacts.yml", filepath.Base(merged.Origins[1].File))
	assert.Equal(t, "b_orders.toml", filepath.Base(merged.Origins[2].File))
	assert.Equal(t, "saving[0] (Order) in extra.json", merged.Origins[3].String())

	p := mock.NewProvider()
	require.NoError(t, f.Apply(p))
	assert.Len(t, p.Specs(), 4)
}

func TestLoadErrors(t *testing.T) {
	empty := t.TempDir()
	_, err := Load([]string{empty})
	assert.ErrorContains(t, err, "no fixture files found")

	_, err = Load([]string{filepath.Join(empty, "missing")})
	assert.Error(t, err)

	bad := writeFile(t, t.TempDir(), "bad.yml", "items: [")
	_, err = Load([]string{bad})
	assert.ErrorContains(t, err, "bad.yml")
}

func TestDuplicateDefaultValues(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yml", "default_values:\n  - entity: Contact\n")
	b := writeFile(t, dir, "b.yml", "default_values:\n  - entity: Contact\n  - entity: Order\n")

	_, err := Load([]string{a, b})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Contact (in a.yml, b.yml)")
	assert.NotContains(t, err.Error(), "Order")

	_, err = NewMerger().Merge(nil)
	assert.Error(t, err)
}
