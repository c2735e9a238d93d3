package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chameleon-db/chameleon-mock/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, engine.Version, cfg.Version)
	assert.NotEmpty(t, cfg.Fixtures.Paths)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, engine.DebugNone, cfg.DebugLevel())
}

func TestConfigValidation(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Schema:   SchemaConfig{Path: "schema.yml"},
			Fixtures: FixturesConfig{Paths: []string{"./fixtures"}},
		}
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30, cfg.Database.ConnectionTimeout)

	tests := map[string]struct {
		mutate func(*Config)
		field  string
	}{
		"no schema":     {func(c *Config) { c.Schema.Path = "" }, "schema.path"},
		"no fixtures":   {func(c *Config) { c.Fixtures.Paths = nil }, "fixtures.paths"},
		"bad debug":     {func(c *Config) { c.Debug.Level = "loud" }, "debug.level"},
		"bad db driver": {func(c *Config) { c.Database.Driver = "oracle" }, "database.driver"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			var cerr *ConfigError
			require.ErrorAs(t, cfg.Validate(), &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestLoaderResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MOCK_DB_HOST", "db.local")

	content := `
schema:
  path: schema.yml
fixtures:
  paths: [fixtures, /abs/fixtures.toml]
debug:
  level: trace
database:
  connection_string: postgres://${MOCK_DB_HOST}/app
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "schema.yml"), cfg.Schema.Path)
	assert.Equal(t, []string{filepath.Join(dir, "fixtures"), "/abs/fixtures.toml"}, cfg.Fixtures.Paths)
	assert.Equal(t, engine.DebugTrace, cfg.DebugLevel())
	assert.Equal(t, "postgres://db.local/app", cfg.Database.ConnectionString)

	t.Setenv("DATABASE_URL", "mysql://root@localhost/app")
	cfg, err = NewLoader(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, "mysql://root@localhost/app", cfg.Database.ConnectionString)
}

func TestLoaderMissingFile(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(dir)

	_, err := loader.Load()
	assert.ErrorIs(t, err, ErrNotFound)

	cfg, err := loader.LoadOrDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "fixtures"), cfg.Fixtures.Paths[0])
}

func TestLoaderTemplateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "")
	loader := NewLoader(dir)

	require.NoError(t, loader.WriteTemplate(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "0.3.0", cfg.Version)
	assert.Equal(t, filepath.Join(dir, "schema.yml"), cfg.Schema.Path)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, 2026, cfg.CreatedAt.Year())

	saved := Defaults()
	saved.Fixtures.Strict = true
	require.NoError(t, NewFileLoader(filepath.Join(dir, "other.yml")).Save(saved))

	reloaded, err := NewFileLoader(filepath.Join(dir, "other.yml")).Load()
	require.NoError(t, err)
	assert.True(t, reloaded.Fixtures.Strict)
}

func TestDatabaseConnector(t *testing.T) {
	db := DatabaseConfig{
		Driver:            "postgresql",
		ConnectionString:  "postgres://ana@db.local/shop?pool_max_conns=2&connect_timeout=9",
		MaxConnections:    10,
		ConnectionTimeout: 5,
	}
	cc, err := db.Connector()
	require.NoError(t, err)
	assert.Equal(t, db.ConnectionString, cc.URL)
	assert.EqualValues(t, 10, cc.MaxConns)
	assert.Equal(t, 5*time.Second, cc.ConnectTimeout)

	// unset fields keep the URL's pool parameters
	db.MaxConnections, db.ConnectionTimeout = 0, 0
	cc, err = db.Connector()
	require.NoError(t, err)
	assert.EqualValues(t, 2, cc.MaxConns)
	assert.Equal(t, 9*time.Second, cc.ConnectTimeout)

	_, err = DatabaseConfig{Driver: "mysql", ConnectionString: "mysql://localhost/db"}.Connector()
	assert.ErrorContains(t, err, "pgx")

	t.Setenv("DATABASE_URL", "postgres://ci@localhost/test")
	cfg, err := NewLoader(t.TempDir()).LoadOrDefault()
	require.NoError(t, err)
	cc, err = cfg.Database.Connector()
	require.NoError(t, err)
	assert.Equal(t, "postgres://ci@localhost/test", cc.URL)
	assert.EqualValues(t, 10, cc.MaxConns)
}
