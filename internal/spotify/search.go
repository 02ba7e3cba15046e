package spotify

import (
	"context"
	"strings"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/moodtube/internal/metrics"
	"github.com/justestif/moodtube/internal/recommend"
)

const (
	trackURL = "https://open.spotify.com/track/"
	embedURL = "https://open.spotify.com/embed/track/"
)

// Search returns tracks matching the query as raw items.
// An empty page is zero results, not an error.
func (c *Client) Search(ctx context.Context, query string) ([]recommend.RawItem, error) {
	tracks, err := c.searchTracks(ctx, query)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(ProviderName, metrics.OutcomeFailure).Inc()
		return nil, err
	}
	metrics.ProviderRequests.WithLabelValues(ProviderName, metrics.OutcomeSuccess).Inc()

	items := make([]recommend.RawItem, 0, len(tracks))
	for _, track := range tracks {
		items = append(items, convertTrack(track))
	}
	return items, nil
}

// convertTrack converts a Spotify FullTrack to a raw item.
// The title carries the artists joined by ", ".
func convertTrack(track spotify.FullTrack) recommend.RawItem {
	id := track.ID.String()

	artists := make([]string, 0, len(track.Artists))
	for _, a := range track.Artists {
		if a.Name != "" {
			artists = append(artists, a.Name)
		}
	}

	title := track.Name
	if len(artists) > 0 {
		title += " - " + strings.Join(artists, ", ")
	}

	item := recommend.RawItem{
		ExternalID: id,
		Title:      title,
	}
	if id != "" {
		item.URL = track.ExternalURLs["spotify"]
		if item.URL == "" {
			item.URL = trackURL + id
		}
		item.EmbedURL = embedURL + id
	}

	// Album images are ordered widest first.
	images := track.Album.Images
	switch len(images) {
	case 0:
	case 1:
		item.DefaultThumbnailURL = images[0].URL
	default:
		item.MediumThumbnailURL = images[1].URL
		item.DefaultThumbnailURL = images[len(images)-1].URL
	}

	return item
}
