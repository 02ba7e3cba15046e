package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/moodtube/internal/detector"
	"github.com/justestif/moodtube/internal/mood"
	"github.com/justestif/moodtube/internal/recommend"
	"github.com/justestif/moodtube/internal/search"
)

var testFrame = detector.Frame{Data: []byte("jpeg"), ContentType: "image/jpeg"}

func scoresDetector(scores mood.Scores) detector.Detector {
	return detector.Func(func(context.Context, detector.Frame) (mood.Scores, error) {
		return scores, nil
	})
}

func rawItems(n int) []recommend.RawItem {
	items := make([]recommend.RawItem, n)
	for i := range items {
		id := fmt.Sprintf("v%02d", i)
		items[i] = recommend.RawItem{
			ExternalID:         id,
			Title:              "Song " + id,
			URL:                "https://www.youtube.com/watch?v=" + id,
			MediumThumbnailURL: "https://i.ytimg.com/vi/" + id + "/mqdefault.jpg",
		}
	}
	return items
}

func staticProvider(items []recommend.RawItem, err error) search.Provider {
	return search.ProviderFunc{
		ProviderName: "static",
		Fn: func(context.Context, string) ([]recommend.RawItem, error) {
			return items, err
		},
	}
}

// blockingProvider holds Search until release is closed.
type blockingProvider struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	items   []recommend.RawItem
}

func newBlockingProvider(items []recommend.RawItem) *blockingProvider {
	return &blockingProvider{
		started: make(chan struct{}),
		release: make(chan struct{}),
		items:   items,
	}
}

func (p *blockingProvider) Name() string { return "blocking" }

func (p *blockingProvider) Search(ctx context.Context, query string) ([]recommend.RawItem, error) {
	p.once.Do(func() { close(p.started) })
	<-p.release
	return p.items, nil
}

func newMachine(t *testing.T, det detector.Detector, provider search.Provider, opts ...Option) *Machine {
	t.Helper()
	rng := rand.New(rand.NewPCG(1, 2))
	selector, err := recommend.NewQuerySelector(recommend.DefaultQueryTable(), rng)
	require.NoError(t, err)

	m, err := New(Deps{
		Detector: det,
		Selector: selector,
		Curator:  recommend.NewCurator(rng),
		Provider: provider,
	}, opts...)
	require.NoError(t, err)
	return m
}

// startDetect runs TriggerDetect in the background and waits for the provider call.
func startDetect(t *testing.T, m *Machine, p *blockingProvider) <-chan State {
	t.Helper()
	done := make(chan State, 1)
	go func() {
		state, err := m.TriggerDetect(context.Background(), testFrame)
		assert.NoError(t, err)
		done <- state
	}()

	select {
	case <-p.started:
	case <-time.After(2 * time.Second):
		t.Fatal("provider was never called")
	}
	return done
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Deps{})
	require.Error(t, err)
}

func TestMachine_InitialState(t *testing.T) {
	m := newMachine(t, detector.Unavailable{}, staticProvider(nil, nil))

	state := m.Snapshot()
	assert.Equal(t, PhaseIdle, state.Phase)
	assert.False(t, state.HasMood)
	assert.False(t, state.IsLoading)
	assert.NotNil(t, state.Results)
	assert.Empty(t, state.Results)
	assert.Empty(t, state.ActiveItemID)
}

func TestTriggerDetect_Success(t *testing.T) {
	var gotQuery string
	provider := search.ProviderFunc{
		ProviderName: "static",
		Fn: func(_ context.Context, query string) ([]recommend.RawItem, error) {
			gotQuery = query
			return rawItems(15), nil
		},
	}
	m := newMachine(t, scoresDetector(mood.Scores{mood.Happy: 0.9, mood.Sad: 0.1}), provider)

	state, err := m.TriggerDetect(context.Background(), testFrame)
	require.NoError(t, err)

	assert.Equal(t, PhaseReady, state.Phase)
	assert.True(t, state.HasMood)
	assert.Equal(t, mood.Happy, state.CurrentMood)
	assert.False(t, state.IsLoading)
	assert.False(t, state.FetchFailed)
	assert.Len(t, state.Results, recommend.MaxResults)
	assert.Contains(t, recommend.DefaultQueryTable()[mood.Happy], gotQuery)
	assert.Equal(t, gotQuery, state.Query)
	assert.Equal(t, "You look happy", state.StatusLine())
}

func TestTriggerDetect_NoFaceUsesFallback(t *testing.T) {
	var gotQuery string
	provider := search.ProviderFunc{
		ProviderName: "static",
		Fn: func(_ context.Context, query string) ([]recommend.RawItem, error) {
			gotQuery = query
			return rawItems(3), nil
		},
	}
	m := newMachine(t, detector.Unavailable{}, provider)

	state, err := m.TriggerDetect(context.Background(), testFrame)
	require.NoError(t, err)

	assert.Equal(t, mood.NoFace, state.CurrentMood)
	assert.Equal(t, recommend.DefaultQueryTable()[mood.Fallback][0], gotQuery)
	assert.Len(t, state.Results, 3)
	assert.Equal(t, "No face detected, showing trending songs", state.StatusLine())
}

func TestTriggerDetect_DetectorErrorIsNoFace(t *testing.T) {
	det := detector.Func(func(context.Context, detector.Frame) (mood.Scores, error) {
		return nil, errors.New("expression service down")
	})
	m := newMachine(t, det, staticProvider(rawItems(2), nil))

	state, err := m.TriggerDetect(context.Background(), testFrame)
	require.NoError(t, err)
	assert.Equal(t, PhaseReady, state.Phase)
	assert.Equal(t, mood.NoFace, state.CurrentMood)
	assert.Len(t, state.Results, 2)
}

// Scenario D
func TestTriggerDetect_ProviderFailure(t *testing.T) {
	m := newMachine(t, scoresDetector(mood.Scores{mood.Sad: 0.8}), staticProvider(nil, errors.New("network unreachable")))

	state, err := m.TriggerDetect(context.Background(), testFrame)
	require.NoError(t, err)

	assert.Equal(t, PhaseReady, state.Phase)
	assert.NotNil(t, state.Results)
	assert.Empty(t, state.Results)
	assert.False(t, state.IsLoading)
	assert.True(t, state.FetchFailed)
	assert.Equal(t, mood.Sad, state.CurrentMood, "mood is kept on fetch failure")
}

func TestTriggerDetect_ProviderTimeout(t *testing.T) {
	provider := search.ProviderFunc{
		ProviderName: "slow",
		Fn: func(ctx context.Context, _ string) ([]recommend.RawItem, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	m := newMachine(t, detector.Unavailable{}, provider, WithSearchTimeout(20*time.Millisecond))

	state, err := m.TriggerDetect(context.Background(), testFrame)
	require.NoError(t, err)
	assert.True(t, state.FetchFailed)
	assert.Equal(t, PhaseReady, state.Phase)
}

func TestTriggerDetect_PanicRecovered(t *testing.T) {
	provider := search.ProviderFunc{
		ProviderName: "broken",
		Fn: func(context.Context, string) ([]recommend.RawItem, error) {
			panic("nil map write")
		},
	}
	m := newMachine(t, scoresDetector(mood.Scores{mood.Angry: 1}), provider)

	state, err := m.TriggerDetect(context.Background(), testFrame)
	require.NoError(t, err)
	assert.Equal(t, PhaseReady, state.Phase)
	assert.True(t, state.FetchFailed)
	assert.Equal(t, mood.Angry, state.CurrentMood)
	assert.Empty(t, state.Results)

	// The machine is usable afterwards.
	_, err = m.TriggerDetect(context.Background(), testFrame)
	require.NoError(t, err)
}

func TestTriggerDetect_CanceledRequestStillCompletes(t *testing.T) {
	m := newMachine(t, detector.Unavailable{}, staticProvider(rawItems(4), nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, err := m.TriggerDetect(ctx, testFrame)
	require.NoError(t, err)
	assert.Equal(t, PhaseReady, state.Phase)
	assert.False(t, state.FetchFailed)
	assert.Len(t, state.Results, 4)
}

func TestTriggerDetect_ClearsPreviousResults(t *testing.T) {
	provider := newBlockingProvider(rawItems(5))
	m := newMachine(t, scoresDetector(mood.Scores{mood.Happy: 1}), provider)

	// First run to populate results.
	close(provider.release)
	first, err := m.TriggerDetect(context.Background(), testFrame)
	require.NoError(t, err)
	m.SelectItem(first.Results[0].ExternalID)

	blocking := newBlockingProvider(rawItems(5))
	m.deps.Provider = blocking
	done := startDetect(t, m, blocking)

	during := m.Snapshot()
	assert.Equal(t, PhaseDetecting, during.Phase)
	assert.True(t, during.IsLoading)
	assert.Empty(t, during.Results)
	assert.Empty(t, during.ActiveItemID)
	assert.Equal(t, "Detecting mood...", during.StatusLine())

	close(blocking.release)
	final := <-done
	assert.Equal(t, PhaseReady, final.Phase)
}

func TestTriggerDetect_BusyGuard(t *testing.T) {
	provider := newBlockingProvider(rawItems(3))
	m := newMachine(t, detector.Unavailable{}, provider)

	done := startDetect(t, m, provider)

	state, err := m.TriggerDetect(context.Background(), testFrame)
	require.ErrorIs(t, err, ErrDetectInFlight)
	assert.Equal(t, PhaseDetecting, state.Phase)

	close(provider.release)
	final := <-done
	assert.Equal(t, PhaseReady, final.Phase)
	assert.Len(t, final.Results, 3)

	// Free again once the pipeline finished.
	_, err = m.TriggerDetect(context.Background(), testFrame)
	require.NoError(t, err)
}

// Scenario F
func TestTriggerReset_DiscardsInFlightResult(t *testing.T) {
	provider := newBlockingProvider(rawItems(8))
	m := newMachine(t, scoresDetector(mood.Scores{mood.Happy: 1}), provider)

	done := startDetect(t, m, provider)

	reset := m.TriggerReset()
	assert.Equal(t, PhaseIdle, reset.Phase)

	// The orphaned pipeline still holds the guard.
	_, err := m.TriggerDetect(context.Background(), testFrame)
	require.ErrorIs(t, err, ErrDetectInFlight)

	close(provider.release)
	final := <-done

	assert.Equal(t, PhaseIdle, final.Phase)
	assert.Empty(t, final.Results)
	assert.False(t, final.HasMood)
	assert.Equal(t, final, m.Snapshot())

	_, err = m.TriggerDetect(context.Background(), testFrame)
	require.NoError(t, err)
}

func TestTriggerReset(t *testing.T) {
	m := newMachine(t, scoresDetector(mood.Scores{mood.Happy: 1}), staticProvider(rawItems(5), nil))

	state, err := m.TriggerDetect(context.Background(), testFrame)
	require.NoError(t, err)
	m.SelectItem(state.Results[0].ExternalID)

	reset := m.TriggerReset()
	assert.Equal(t, PhaseIdle, reset.Phase)
	assert.False(t, reset.HasMood)
	assert.Empty(t, reset.Results)
	assert.Empty(t, reset.ActiveItemID)
	assert.Empty(t, reset.Query)
}

func TestSelectItem(t *testing.T) {
	m := newMachine(t, scoresDetector(mood.Scores{mood.Neutral: 1}), staticProvider(rawItems(5), nil))

	// Nothing to select while idle.
	assert.Empty(t, m.SelectItem("v01").ActiveItemID)

	state, err := m.TriggerDetect(context.Background(), testFrame)
	require.NoError(t, err)
	id := state.Results[2].ExternalID

	selected := m.SelectItem(id)
	assert.Equal(t, id, selected.ActiveItemID)
	item, ok := selected.ActiveItem()
	require.True(t, ok)
	assert.Equal(t, id, item.ExternalID)

	// Scenario E
	unchanged := m.SelectItem("not-a-result")
	assert.Equal(t, id, unchanged.ActiveItemID)

	other := state.Results[0].ExternalID
	assert.Equal(t, other, m.SelectItem(other).ActiveItemID)
}

func TestSnapshot_IsACopy(t *testing.T) {
	m := newMachine(t, detector.Unavailable{}, staticProvider(rawItems(3), nil))

	_, err := m.TriggerDetect(context.Background(), testFrame)
	require.NoError(t, err)

	snap := m.Snapshot()
	snap.Results[0].Title = "mutated"
	snap.Results = slices.Delete(snap.Results, 0, 1)

	fresh := m.Snapshot()
	assert.Len(t, fresh.Results, 3)
	assert.NotEqual(t, "mutated", fresh.Results[0].Title)
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "detecting", PhaseDetecting.String())
	assert.Equal(t, "ready", PhaseReady.String())
	assert.Equal(t, "unknown", Phase(42).String())

	text, err := PhaseReady.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "ready", string(text))
}

func TestStatusLine(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  string
	}{
		{name: "idle", state: idleState(), want: ""},
		{
			name:  "fetch failed",
			state: State{Phase: PhaseReady, HasMood: true, CurrentMood: mood.Sad, FetchFailed: true},
			want:  "You look sad. Couldn't load songs, try again.",
		},
		{
			name:  "no results",
			state: State{Phase: PhaseReady, HasMood: true, CurrentMood: mood.Sad, Results: []recommend.Item{}},
			want:  "You look sad. No songs found.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.StatusLine())
		})
	}
}
