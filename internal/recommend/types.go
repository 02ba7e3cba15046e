// Package recommend turns a mood into a search query and turns raw provider
// results into the curated list shown to the user.
package recommend

import (
	"math/rand/v2"
)

// MaxResults is the largest curated result set.
const MaxResults = 10

// RawItem is a provider search result before curation.
// Providers fill whatever fields they have; an empty ExternalID marks a
// malformed entry.
type RawItem struct {
	ExternalID          string `json:"external_id"`
	Title               string `json:"title"`
	URL                 string `json:"url"`
	EmbedURL            string `json:"embed_url"`
	MediumThumbnailURL  string `json:"medium_thumbnail_url,omitempty"`
	DefaultThumbnailURL string `json:"default_thumbnail_url,omitempty"`
}

// Item is a curated recommendation.
type Item struct {
	Title      string `json:"title"`
	ExternalID string `json:"external_id"`
	URL        string `json:"url"`
	EmbedURL   string `json:"embed_url"`
	// ThumbnailURL is empty when the provider had no usable thumbnail.
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// HasThumbnail reports whether the item has a thumbnail to render.
func (i Item) HasThumbnail() bool {
	return i.ThumbnailURL != ""
}

// Rand is the source of randomness for query selection and shuffling.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// globalRand delegates to the math/rand/v2 top-level functions, which are
// safe for concurrent use.
type globalRand struct{}

func (globalRand) IntN(n int) int                     { return rand.IntN(n) }
func (globalRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// DefaultRand returns a concurrency-safe, randomly seeded Rand.
func DefaultRand() Rand {
	return globalRand{}
}
