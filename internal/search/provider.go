// Package search composes video search providers with resilience and caching.
package search

import (
	"context"

	"github.com/justestif/moodtube/internal/recommend"
)

// Provider searches a third-party catalog for a query.
// Zero results is an empty slice and a nil error.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]recommend.RawItem, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc struct {
	ProviderName string
	Fn           func(ctx context.Context, query string) ([]recommend.RawItem, error)
}

// Name implements Provider.
func (f ProviderFunc) Name() string {
	return f.ProviderName
}

// Search implements Provider.
func (f ProviderFunc) Search(ctx context.Context, query string) ([]recommend.RawItem, error) {
	return f.Fn(ctx, query)
}
