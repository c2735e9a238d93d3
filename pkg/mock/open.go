package mock

import (
	"context"
	"net/url"

	"github.com/chameleon-db/chameleon-mock/pkg/engine"
)

func init() {
	engine.RegisterProvider("mock", func(ctx context.Context, u *url.URL, schema *engine.Schema) (engine.DataProvider, error) {
		return Open(u)
	})
}

// Open builds a provider from a mock URL, applying every fixtures file it
// names. mock:// with no file gives an empty provider.
func Open(u *url.URL) (*Provider, error) {
	p := NewProvider()
	for _, path := range fixturePaths(u) {
		f, err := LoadFixtures(path)
		if err != nil {
			return nil, err
		}
		if err := f.Apply(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func fixturePaths(u *url.URL) []string {
	var paths []string
	switch {
	case u.Opaque != "":
		paths = append(paths, u.Opaque)
	case u.Host != "" && u.Path != "":
		paths = append(paths, u.Host+u.Path)
	case u.Host != "":
		paths = append(paths, u.Host)
	case u.Path != "" && u.Path != "/":
		paths = append(paths, u.Path)
	}
	return append(paths, u.Query()["file"]...)
}
