package engine

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"sync"
)

// ProviderOpener builds a DataProvider from a URI. The schema may be nil.
type ProviderOpener func(ctx context.Context, u *url.URL, schema *Schema) (DataProvider, error)

var (
	providersMu sync.RWMutex
	providers   = make(map[string]ProviderOpener)
)

func init() {
	RegisterProvider("postgres", openPgxProvider)
	RegisterProvider("postgresql", openPgxProvider)
	RegisterProvider("mysql", openSQLProvider)
	RegisterProvider("pq", openSQLProvider)
}

// RegisterProvider makes a provider available to OpenProvider under scheme.
// Registering the same scheme twice replaces the earlier opener.
func RegisterProvider(scheme string, open ProviderOpener) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[scheme] = open
}

// RegisteredSchemes lists the known URI schemes, sorted
func RegisteredSchemes() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()
	schemes := make([]string, 0, len(providers))
	for scheme := range providers {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}

// OpenProvider resolves uri's scheme to a registered opener
func OpenProvider(ctx context.Context, uri string, schema *Schema) (DataProvider, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid provider uri: %w", err)
	}

	providersMu.RLock()
	open, ok := providers[u.Scheme]
	providersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, u.Scheme)
	}
	return open(ctx, u, schema)
}

func openPgxProvider(ctx context.Context, u *url.URL, schema *Schema) (DataProvider, error) {
	config, err := ParseConnectionString(u.String())
	if err != nil {
		return nil, err
	}
	connector := NewConnector(config)
	if err := connector.Connect(ctx); err != nil {
		return nil, err
	}
	return NewExecutor(connector, schema), nil
}

func openSQLProvider(ctx context.Context, u *url.URL, schema *Schema) (DataProvider, error) {
	return OpenSQLExecutor(ctx, u, schema)
}
