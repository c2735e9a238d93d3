package admin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chameleon-db/chameleon-mock/internal/config"
	"github.com/chameleon-db/chameleon-mock/internal/journal"
)

// DirName is the administrative directory created by init
const DirName = ".chameleon-mock"

// Directory manages the .chameleon-mock/ directory structure
type Directory struct {
	rootDir string
}

// NewDirectory creates a new directory manager
func NewDirectory(workDir string) *Directory {
	return &Directory{
		rootDir: filepath.Join(workDir, DirName),
	}
}

// Initialize creates the .chameleon-mock/ directory structure
func (d *Directory) Initialize() error {
	if err := os.MkdirAll(d.rootDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", DirName, err)
	}

	for _, subdir := range []string{"journal", "reports"} {
		path := filepath.Join(d.rootDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", subdir, err)
		}
	}

	return d.createGitignore()
}

// createGitignore creates .chameleon-mock/.gitignore
func (d *Directory) createGitignore() error {
	gitignorePath := filepath.Join(d.rootDir, ".gitignore")
	gitignoreContent := `# chameleon-mock local files
journal/
reports/
`
	return os.WriteFile(gitignorePath, []byte(gitignoreContent), 0644)
}

// GetPaths returns all directory paths
func (d *Directory) GetPaths() DirectoryPaths {
	return DirectoryPaths{
		Root:    d.rootDir,
		Journal: filepath.Join(d.rootDir, "journal"),
		Reports: filepath.Join(d.rootDir, "reports"),
	}
}

// DirectoryPaths holds all important paths
type DirectoryPaths struct {
	Root    string
	Journal string
	Reports string
}

// ManagerFactory creates the config loader and journal for a project
type ManagerFactory struct {
	workDir    string
	configPath string
	dir        *Directory
}

// NewManagerFactory creates a new manager factory
func NewManagerFactory(workDir string) *ManagerFactory {
	return &ManagerFactory{
		workDir: workDir,
		dir:     NewDirectory(workDir),
	}
}

// WithConfigPath makes the factory load an explicit config file
func (mf *ManagerFactory) WithConfigPath(path string) *ManagerFactory {
	mf.configPath = path
	return mf
}

// Initialize creates the .chameleon-mock/ structure
func (mf *ManagerFactory) Initialize() error {
	return mf.dir.Initialize()
}

// Paths returns the administrative paths
func (mf *ManagerFactory) Paths() DirectoryPaths {
	return mf.dir.GetPaths()
}

// CreateConfigLoader creates a config loader
func (mf *ManagerFactory) CreateConfigLoader() *config.Loader {
	if mf.configPath != "" {
		return config.NewFileLoader(mf.configPath)
	}
	return config.NewLoader(mf.workDir)
}

// CreateJournalLogger creates a journal logger
func (mf *ManagerFactory) CreateJournalLogger() (*journal.Logger, error) {
	return journal.NewLogger(mf.dir.GetPaths().Journal)
}

// Status describes the directory structure
func (mf *ManagerFactory) Status() (string, error) {
	paths := mf.dir.GetPaths()

	if _, err := os.Stat(paths.Root); err != nil {
		if os.IsNotExist(err) {
			return "not_initialized", nil
		}
		return "", err
	}

	var b strings.Builder
	b.WriteString("initialized\n")
	fmt.Fprintf(&b, "  Journal: %s\n", paths.Journal)
	fmt.Fprintf(&b, "  Reports: %s\n", paths.Reports)

	configPath := mf.CreateConfigLoader().Path()
	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(&b, "  Config: %s\n", configPath)
	} else {
		b.WriteString("  Config: missing\n")
	}

	return b.String(), nil
}
