// Package mood reduces facial expression scores to a single dominant mood.
package mood

import (
	"math"
	"strings"
)

// Label is a discrete mood category.
type Label string

// Expression labels reported by the detector.
const (
	Neutral   Label = "neutral"
	Happy     Label = "happy"
	Sad       Label = "sad"
	Angry     Label = "angry"
	Fearful   Label = "fearful"
	Disgusted Label = "disgusted"
	Surprised Label = "surprised"
)

const (
	// NoFace means the detector found no face in the frame.
	NoFace Label = "no_face"

	// Fallback is the query table key used when no mood entry applies.
	// It is never returned by Classify.
	Fallback Label = "fallback"
)

// priority is the fixed tie-breaking order used by Classify.
// It follows the order in which the expression model enumerates its outputs.
var priority = []Label{Neutral, Happy, Sad, Angry, Fearful, Disgusted, Surprised}

// Labels returns the expression labels in tie-breaking priority order.
func Labels() []Label {
	out := make([]Label, len(priority))
	copy(out, priority)
	return out
}

// Scores maps expression labels to confidence values in [0,1].
// A nil Scores means no detection occurred.
type Scores map[Label]float64

// Classify returns the label with the strictly greatest confidence.
//
// When several labels share the maximum, the one that comes first in
// Labels() wins. Keys outside the expression set and values that are NaN or
// outside [0,1] are ignored. Returns NoFace if scores is nil or holds no
// usable value.
func Classify(scores Scores) Label {
	best := NoFace
	bestScore := -1.0

	for _, label := range priority {
		v, ok := scores[label]
		if !ok || math.IsNaN(v) || v < 0 || v > 1 {
			continue
		}
		if v > bestScore {
			best = label
			bestScore = v
		}
	}

	return best
}

// ParseLabel converts a string to an expression label.
// Matching is case-insensitive; "surprise" and "disgust" are accepted as aliases.
func ParseLabel(s string) (Label, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "neutral":
		return Neutral, true
	case "happy":
		return Happy, true
	case "sad":
		return Sad, true
	case "angry":
		return Angry, true
	case "fearful":
		return Fearful, true
	case "disgusted", "disgust":
		return Disgusted, true
	case "surprised", "surprise":
		return Surprised, true
	default:
		return "", false
	}
}

// IsExpression reports whether l is one of the detector's expression labels.
func (l Label) IsExpression() bool {
	for _, p := range priority {
		if p == l {
			return true
		}
	}
	return false
}

// Description returns the status line shown to the user for a classified mood.
func (l Label) Description() string {
	switch l {
	case NoFace:
		return "No face detected, showing trending songs"
	case "":
		return ""
	default:
		return "You look " + string(l)
	}
}

func (l Label) String() string {
	return string(l)
}
