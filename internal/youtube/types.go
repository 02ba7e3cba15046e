package youtube

import "github.com/goccy/go-json"

// searchResponse is the JSON response for search.list.
// Items are decoded one by one so a malformed entry does not fail the page.
type searchResponse struct {
	Items json.RawMessage `json:"items"`
}

// searchItem is one entry of search.list.
type searchItem struct {
	ID struct {
		Kind    string `json:"kind"`
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title      string `json:"title"`
		Thumbnails struct {
			Default *thumbnail `json:"default"`
			Medium  *thumbnail `json:"medium"`
			High    *thumbnail `json:"high"`
		} `json:"thumbnails"`
	} `json:"snippet"`
}

type thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

func (t *thumbnail) url() string {
	if t == nil {
		return ""
	}
	return t.URL
}

// apiError represents a Google API error response.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
			Domain string `json:"domain"`
		} `json:"errors"`
	} `json:"error"`
}

// reason returns the first error reason, if any.
func (e apiError) reason() string {
	if len(e.Error.Errors) == 0 {
		return ""
	}
	return e.Error.Errors[0].Reason
}
