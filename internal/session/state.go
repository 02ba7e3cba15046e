// Package session owns the per-session detect/recommend state machine.
package session

import (
	"github.com/justestif/moodtube/internal/mood"
	"github.com/justestif/moodtube/internal/recommend"
)

// Phase is the state machine phase.
type Phase int

const (
	PhaseIdle      Phase = iota // No mood, no results
	PhaseDetecting              // A pipeline is running
	PhaseReady                  // Results (possibly empty) are published
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDetecting:
		return "detecting"
	case PhaseReady:
		return "ready"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase as its name in JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is a snapshot of one session.
type State struct {
	Phase Phase `json:"phase"`
	// CurrentMood is meaningful only when HasMood is true.
	CurrentMood mood.Label `json:"current_mood,omitempty"`
	HasMood     bool       `json:"has_mood"`
	// Results holds at most recommend.MaxResults items and is never nil.
	Results   []recommend.Item `json:"results"`
	IsLoading bool             `json:"is_loading"`
	// ActiveItemID is empty or the ExternalID of an item in Results.
	ActiveItemID string `json:"active_item_id,omitempty"`
	Query        string `json:"query,omitempty"`
	FetchFailed  bool   `json:"fetch_failed"`
}

func idleState() State {
	return State{Phase: PhaseIdle, Results: []recommend.Item{}}
}

// clone returns a copy that shares no memory with s.
func (s State) clone() State {
	s.Results = append([]recommend.Item{}, s.Results...)
	return s
}

// ActiveItem returns the item selected for playback, if any.
func (s State) ActiveItem() (recommend.Item, bool) {
	if s.ActiveItemID == "" {
		return recommend.Item{}, false
	}
	for _, item := range s.Results {
		if item.ExternalID == s.ActiveItemID {
			return item, true
		}
	}
	return recommend.Item{}, false
}

// StatusLine is the message shown above the results.
func (s State) StatusLine() string {
	switch {
	case s.Phase == PhaseDetecting:
		return "Detecting mood..."
	case !s.HasMood:
		return ""
	case s.FetchFailed:
		return s.CurrentMood.Description() + ". Couldn't load songs, try again."
	case len(s.Results) == 0:
		return s.CurrentMood.Description() + ". No songs found."
	default:
		return s.CurrentMood.Description()
	}
}
