package recommend

import "strings"

// Curator filters, shuffles and caps provider results.
type Curator struct {
	rng        Rand
	maxResults int
}

// CuratorOption configures a Curator.
type CuratorOption func(*Curator)

// WithMaxResults caps the curated list at n items. Values outside
// 1..MaxResults are ignored.
func WithMaxResults(n int) CuratorOption {
	return func(c *Curator) {
		if n > 0 && n <= MaxResults {
			c.maxResults = n
		}
	}
}

// NewCurator creates a Curator. A nil rng uses DefaultRand.
func NewCurator(rng Rand, opts ...CuratorOption) *Curator {
	if rng == nil {
		rng = DefaultRand()
	}
	c := &Curator{
		rng:        rng,
		maxResults: MaxResults,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Curate drops entries without an external id, resolves thumbnails, applies a
// uniform random permutation independent of the provider's ranking and keeps
// the first items up to the cap. Duplicate ids keep their first occurrence.
// Always returns a non-nil slice.
func (c *Curator) Curate(raw []RawItem) []Item {
	items := make([]Item, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, r := range raw {
		id := strings.TrimSpace(r.ExternalID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		items = append(items, Item{
			Title:        r.Title,
			ExternalID:   id,
			URL:          r.URL,
			EmbedURL:     r.EmbedURL,
			ThumbnailURL: resolveThumbnail(r),
		})
	}

	c.rng.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})

	if len(items) > c.maxResults {
		items = items[:c.maxResults]
	}
	return items
}

// resolveThumbnail prefers the medium thumbnail, then the default one.
func resolveThumbnail(r RawItem) string {
	if u := strings.TrimSpace(r.MediumThumbnailURL); u != "" {
		return u
	}
	return strings.TrimSpace(r.DefaultThumbnailURL)
}
