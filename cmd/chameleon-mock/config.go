package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chameleon-db/chameleon-mock/internal/admin"
	"github.com/chameleon-db/chameleon-mock/internal/config"
	"github.com/chameleon-db/chameleon-mock/internal/fixtures"
	"github.com/chameleon-db/chameleon-mock/internal/journal"
	"github.com/chameleon-db/chameleon-mock/pkg/engine"
	"github.com/chameleon-db/chameleon-mock/pkg/mock"
	"github.com/fatih/color"
)

// project is the loaded .chameleon-mock.yml plus its admin directory
type project struct {
	workDir string
	factory *admin.ManagerFactory
	cfg     *config.Config
	journal *journal.Logger // nil when the journal is disabled
}

// loadProject loads the config from --config, or from the working
// directory. A missing config file falls back to defaults.
func loadProject() (*project, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	factory := admin.NewManagerFactory(workDir)
	if configPath != "" {
		factory.WithConfigPath(configPath)
	}

	loader := factory.CreateConfigLoader()
	cfg, err := loader.LoadOrDefault()
	if err != nil {
		return nil, err
	}
	if verbose {
		if _, statErr := os.Stat(loader.Path()); statErr == nil {
			printInfo("Using %s", loader.Path())
		} else {
			printInfo("No %s found, using defaults", config.FileName)
		}
	}
	if !cfg.Debug.Color {
		color.NoColor = true
	}

	p := &project{workDir: workDir, factory: factory, cfg: cfg}
	if cfg.Journal.Enabled {
		if _, err := os.Stat(factory.Paths().Root); err == nil {
			if p.journal, err = factory.CreateJournalLogger(); err != nil {
				printWarning("Journal disabled: %v", err)
			}
		}
	}
	return p, nil
}

// engine creates an engine with the configured schema and debug level
func (p *project) engine() (*engine.Engine, error) {
	eng, err := engine.NewEngineWithSchema(p.cfg.Schema.Path)
	if err != nil {
		return nil, err
	}
	eng.Debug.ColorOutput = p.cfg.Debug.Color
	eng.Debug.Level = p.cfg.DebugLevel()
	return eng, nil
}

// fixtures loads and merges every configured fixtures path
func (p *project) fixtures() (*fixtures.Merged, error) {
	merged, err := fixtures.Load(p.cfg.Fixtures.Paths)
	if err != nil {
		return nil, err
	}
	if verbose {
		printInfo("Loaded %d fixture(s) for %v", merged.Fixtures.Len(), merged.Fixtures.Entities())
	}
	return merged, nil
}

// provider builds a mock provider from the configured fixtures
func (p *project) provider() (*mock.Provider, error) {
	merged, err := p.fixtures()
	if err != nil {
		return nil, err
	}
	provider := mock.NewProvider()
	if err := merged.Fixtures.Apply(provider); err != nil {
		return nil, fmt.Errorf("invalid fixtures: %w", err)
	}
	return provider, nil
}

// connect attaches the configured database to eng. PostgreSQL goes
// through the pgx pool; other drivers through the provider registry.
func (p *project) connect(ctx context.Context, eng *engine.Engine) error {
	db := p.cfg.Database
	if db.ConnectionString == "" {
		return fmt.Errorf("database.connection_string is empty\nSet DATABASE_URL or edit %s", config.FileName)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(db.ConnectionTimeout)*time.Second)
	defer cancel()

	switch db.Driver {
	case "", "postgresql", "postgres":
		cc, err := db.Connector()
		if err != nil {
			return fmt.Errorf("invalid connection string in %s: %w", config.FileName, err)
		}
		return eng.Connect(ctx, cc)
	default:
		return eng.Open(ctx, db.ConnectionString)
	}
}

// record journals a finished run when the journal is enabled
func (p *project) record(action string, started time.Time, details map[string]interface{}, err error) {
	if p.journal == nil {
		return
	}
	if logErr := p.journal.LogRun(action, started, details, err); logErr != nil && verbose {
		printWarning("Could not write journal: %v", logErr)
	}
}
