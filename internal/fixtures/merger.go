package fixtures

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chameleon-db/chameleon-mock/pkg/mock"
)

// Merged holds the fixtures of several files plus where each came from
type Merged struct {
	Fixtures *mock.Fixtures
	Origins  []Origin // in mock.Fixtures.Apply order
}

// Origin tracks the file a fixture was declared in
type Origin struct {
	Kind     string // default_values, items, scalars, saving
	Entity   string
	File     string
	Position int // index inside its section of the file
}

func (o Origin) String() string {
	return fmt.Sprintf("%s[%d] (%s) in %s", o.Kind, o.Position, o.Entity, filepath.Base(o.File))
}

// Merger combines sources in order
type Merger struct{}

// NewMerger creates a new Merger
func NewMerger() *Merger {
	return &Merger{}
}

// Merge concatenates the sources section by section
func (m *Merger) Merge(sources []Source) (*Merged, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no fixture files to merge")
	}

	merged := &Merged{Fixtures: &mock.Fixtures{}}
	var defaults, items, scalars, saving []Origin

	for _, src := range sources {
		f := src.Fixtures
		if f == nil {
			continue
		}
		for i, d := range f.DefaultValues {
			defaults = append(defaults, Origin{Kind: "default_values", Entity: d.Entity, File: src.Path, Position: i})
		}
		for i, it := range f.Items {
			items = append(items, Origin{Kind: "items", Entity: it.Entity, File: src.Path, Position: i})
		}
		for i, s := range f.Scalars {
			scalars = append(scalars, Origin{Kind: "scalars", Entity: s.Entity, File: src.Path, Position: i})
		}
		for i, s := range f.Saving {
			saving = append(saving, Origin{Kind: "saving", Entity: s.Entity, File: src.Path, Position: i})
		}
		merged.Fixtures.Merge(f)
	}

	merged.Origins = append(merged.Origins, defaults...)
	merged.Origins = append(merged.Origins, items...)
	merged.Origins = append(merged.Origins, scalars...)
	merged.Origins = append(merged.Origins, saving...)
	return merged, nil
}

// Validate rejects entities that declare default values more than once,
// since only one default-values mock can exist per entity
func (m *Merger) Validate(merged *Merged) error {
	files := make(map[string][]string)
	for _, o := range merged.Origins {
		if o.Kind == "default_values" {
			files[o.Entity] = append(files[o.Entity], filepath.Base(o.File))
		}
	}

	var duplicates []string
	for entity, in := range files {
		if len(in) > 1 {
			duplicates = append(duplicates, fmt.Sprintf("%s (in %s)", entity, strings.Join(in, ", ")))
		}
	}
	if len(duplicates) == 0 {
		return nil
	}

	sort.Strings(duplicates)
	return fmt.Errorf("duplicate default values: %s\n\nDeclare the default values of each entity only once.",
		strings.Join(duplicates, "; "))
}

// Load runs the loader and merger together
func Load(paths []string) (*Merged, error) {
	sources, err := NewFileLoader(paths).LoadAll()
	if err != nil {
		return nil, err
	}

	merger := NewMerger()
	merged, err := merger.Merge(sources)
	if err != nil {
		return nil, err
	}
	if err := merger.Validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}
