package recommend

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/moodtube/internal/mood"
)

// scriptedRand returns a fixed sequence from IntN and leaves order unchanged on Shuffle.
type scriptedRand struct {
	ints  []int
	calls int
}

func (r *scriptedRand) IntN(n int) int {
	v := r.ints[r.calls%len(r.ints)]
	r.calls++
	return v % n
}

func (r *scriptedRand) Shuffle(int, func(i, j int)) {}

// reverseRand reverses order on Shuffle.
type reverseRand struct{}

func (reverseRand) IntN(int) int { return 0 }

func (reverseRand) Shuffle(n int, swap func(i, j int)) {
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		swap(i, j)
	}
}

func TestDefaultQueryTable(t *testing.T) {
	table := DefaultQueryTable()
	require.NoError(t, table.Validate())

	for _, label := range mood.Labels() {
		assert.Len(t, table[label], 3, "mood %q", label)
	}
	assert.Equal(t, []string{"Top trending Bollywood Hindi songs 2025"}, table[mood.Fallback])
	assert.NotContains(t, table, mood.NoFace)
}

func TestQueryTable_Validate(t *testing.T) {
	tests := []struct {
		name    string
		table   QueryTable
		wantErr bool
	}{
		{
			name:  "fallback only",
			table: QueryTable{mood.Fallback: {"trending"}},
		},
		{
			name:    "missing fallback",
			table:   QueryTable{mood.Happy: {"party"}},
			wantErr: true,
		},
		{
			name:    "empty fallback",
			table:   QueryTable{mood.Fallback: {}},
			wantErr: true,
		},
		{
			name:    "empty mood entry",
			table:   QueryTable{mood.Fallback: {"trending"}, mood.Sad: nil},
			wantErr: true,
		},
		{
			name:    "blank query",
			table:   QueryTable{mood.Fallback: {"trending"}, mood.Sad: {"slow", "  "}},
			wantErr: true,
		},
		{
			name:    "nil table",
			table:   nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidQueryTable)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewQuerySelector_RejectsInvalidTable(t *testing.T) {
	sel, err := NewQuerySelector(QueryTable{mood.Happy: {"party"}}, nil)
	require.ErrorIs(t, err, ErrInvalidQueryTable)
	require.Nil(t, sel)
}

func TestNewQuerySelector_CopiesTable(t *testing.T) {
	table := QueryTable{mood.Fallback: {"trending"}, mood.Happy: {"party"}}
	sel, err := NewQuerySelector(table, &scriptedRand{ints: []int{0}})
	require.NoError(t, err)

	table[mood.Happy][0] = "mutated"
	delete(table, mood.Fallback)

	assert.Equal(t, "party", sel.Select(mood.Happy))
	assert.Equal(t, "trending", sel.Select(mood.NoFace))
}

func TestQuerySelector_Select(t *testing.T) {
	table := DefaultQueryTable()

	t.Run("scenario A: happy picks from the happy entry", func(t *testing.T) {
		sel, err := NewQuerySelector(table, nil)
		require.NoError(t, err)

		for i := 0; i < 100; i++ {
			assert.Contains(t, table[mood.Happy], sel.Select(mood.Happy))
		}
	})

	t.Run("scenario B: no face resolves to the single fallback query", func(t *testing.T) {
		sel, err := NewQuerySelector(table, nil)
		require.NoError(t, err)

		for i := 0; i < 20; i++ {
			assert.Equal(t, "Top trending Bollywood Hindi songs 2025", sel.Select(mood.NoFace))
		}
	})

	t.Run("unmapped mood uses fallback", func(t *testing.T) {
		sel, err := NewQuerySelector(QueryTable{mood.Fallback: {"trending"}}, nil)
		require.NoError(t, err)

		assert.Equal(t, "trending", sel.Select(mood.Angry))
		assert.Equal(t, "trending", sel.Select(mood.Label("contempt")))
	})

	t.Run("injected rand selects exact entries", func(t *testing.T) {
		rng := &scriptedRand{ints: []int{2, 0, 1}}
		sel, err := NewQuerySelector(table, rng)
		require.NoError(t, err)

		sad := table[mood.Sad]
		assert.Equal(t, sad[2], sel.Select(mood.Sad))
		assert.Equal(t, sad[0], sel.Select(mood.Sad))
		assert.Equal(t, sad[1], sel.Select(mood.Sad))
	})
}

func TestQuerySelector_EveryQueryReachable(t *testing.T) {
	table := DefaultQueryTable()
	sel, err := NewQuerySelector(table, rand.New(rand.NewPCG(7, 11)))
	require.NoError(t, err)

	for _, label := range mood.Labels() {
		seen := make(map[string]int)
		for i := 0; i < 1000; i++ {
			seen[sel.Select(label)]++
		}
		for _, q := range table[label] {
			assert.Positive(t, seen[q], "mood %q never selected %q", label, q)
		}
		assert.Len(t, seen, len(table[label]), "mood %q selected a query outside its entry", label)
	}
}

func TestQuerySelector_Queries(t *testing.T) {
	sel, err := NewQuerySelector(DefaultQueryTable(), nil)
	require.NoError(t, err)

	got := sel.Queries(mood.NoFace)
	require.Len(t, got, 1)

	got[0] = "mutated"
	assert.Equal(t, "Top trending Bollywood Hindi songs 2025", sel.Select(mood.NoFace))
}
