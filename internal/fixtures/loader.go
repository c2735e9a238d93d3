package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chameleon-db/chameleon-mock/pkg/mock"
)

// Loader is the interface for loading fixture files
type Loader interface {
	// LoadAll loads every fixture file available
	LoadAll() ([]Source, error)
	// Load loads a single file
	Load(path string) (*mock.Fixtures, error)
}

// Source is one parsed fixture file
type Source struct {
	Path     string
	Fixtures *mock.Fixtures
}

var fixtureExts = map[string]bool{
	".yml":  true,
	".yaml": true,
	".toml": true,
	".json": true,
}

// FileLoader loads fixtures from files and directories
type FileLoader struct {
	paths []string
}

// NewFileLoader creates a new FileLoader
func NewFileLoader(paths []string) *FileLoader {
	return &FileLoader{paths: paths}
}

// LoadAll loads every fixture file of the configured paths. Files inside a
// directory are taken in name order.
func (fl *FileLoader) LoadAll() ([]Source, error) {
	var sources []Source

	for _, path := range fl.paths {
		files, err := fl.findFixtureFiles(path)
		if err != nil {
			return nil, fmt.Errorf("failed to find fixture files in %s: %w", path, err)
		}

		for _, file := range files {
			f, err := fl.Load(file)
			if err != nil {
				return nil, err
			}
			sources = append(sources, Source{Path: file, Fixtures: f})
		}
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("no fixture files found in %v", fl.paths)
	}
	return sources, nil
}

// Load loads a single fixture file
func (fl *FileLoader) Load(path string) (*mock.Fixtures, error) {
	return mock.LoadFixtures(path)
}

// findFixtureFiles returns path itself for a file, or the fixture files of
// a directory
func (fl *FileLoader) findFixtureFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && fixtureExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(files)

	return files, nil
}
