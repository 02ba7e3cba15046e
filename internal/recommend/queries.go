package recommend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/justestif/moodtube/internal/mood"
)

// ErrInvalidQueryTable is returned when a query table cannot serve every mood.
var ErrInvalidQueryTable = errors.New("invalid query table")

// QueryTable maps a mood to the search queries that suit it.
// The mood.Fallback entry serves NoFace and every unmapped mood.
type QueryTable map[mood.Label][]string

// DefaultQueryTable returns the curated query table.
func DefaultQueryTable() QueryTable {
	return QueryTable{
		mood.Happy: {
			"Bollywood latest upbeat songs 2025 Arijit Singh Neha Kakkar",
			"Bollywood party songs 2025 upbeat hits",
			"Fun Hindi songs 2025 peppy Bollywood",
		},
		mood.Sad: {
			"Bollywood sad songs 2025 Arijit Singh Atif Aslam",
			"Emotional Hindi songs 2025",
			"Melancholic Bollywood songs 2025",
		},
		mood.Angry: {
			"Energetic Hindi rock workout songs Bollywood 2025",
			"Hindi power songs 2025 high energy",
			"Bollywood action intense music 2025",
		},
		mood.Surprised: {
			"Fun Bollywood songs 2025 playful peppy hits",
			"Hindi dance hits 2025",
			"Bollywood fun upbeat mix 2025",
		},
		mood.Neutral: {
			"Chill Hindi acoustic or soft Bollywood songs 2025",
			"Bollywood calm relaxing songs 2025",
			"Hindi mellow songs 2025",
		},
		mood.Fearful: {
			"Calm Hindi instrumental songs relaxing background music",
			"Soft Hindi meditation music 2025",
			"Relaxing Hindi spa songs 2025",
		},
		mood.Disgusted: {
			"Indie Hindi songs 2025 soulful mellow tracks",
			"Hindi indie soft fusion songs 2025",
			"Alternative Bollywood calm songs 2025",
		},
		mood.Fallback: {
			"Top trending Bollywood Hindi songs 2025",
		},
	}
}

// Validate checks that the table has a non-empty Fallback entry and that no
// entry is empty or holds a blank query.
func (t QueryTable) Validate() error {
	if len(t[mood.Fallback]) == 0 {
		return fmt.Errorf("%w: missing %q entry", ErrInvalidQueryTable, mood.Fallback)
	}
	for label, queries := range t {
		if len(queries) == 0 {
			return fmt.Errorf("%w: %q has no queries", ErrInvalidQueryTable, label)
		}
		for i, q := range queries {
			if strings.TrimSpace(q) == "" {
				return fmt.Errorf("%w: %q query %d is blank", ErrInvalidQueryTable, label, i)
			}
		}
	}
	return nil
}

// clone returns a deep copy so callers cannot mutate a validated table.
func (t QueryTable) clone() QueryTable {
	out := make(QueryTable, len(t))
	for label, queries := range t {
		out[label] = append([]string(nil), queries...)
	}
	return out
}

// QuerySelector picks a search query for a mood.
type QuerySelector struct {
	table QueryTable
	rng   Rand
}

// NewQuerySelector validates the table and returns a selector over a private
// copy of it. A nil rng uses DefaultRand.
func NewQuerySelector(table QueryTable, rng Rand) (*QuerySelector, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = DefaultRand()
	}
	return &QuerySelector{
		table: table.clone(),
		rng:   rng,
	}, nil
}

// Select returns one query for the mood, chosen uniformly at random.
// NoFace and moods without an entry use the Fallback queries.
func (s *QuerySelector) Select(label mood.Label) string {
	queries := s.resolve(label)
	return queries[s.rng.IntN(len(queries))]
}

// Queries returns the candidate queries Select chooses from for the mood.
func (s *QuerySelector) Queries(label mood.Label) []string {
	return append([]string(nil), s.resolve(label)...)
}

func (s *QuerySelector) resolve(label mood.Label) []string {
	queries, ok := s.table[label]
	if label == mood.NoFace || !ok {
		return s.table[mood.Fallback]
	}
	return queries
}
