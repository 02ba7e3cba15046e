package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/justestif/moodtube/internal/detector"
	"github.com/justestif/moodtube/internal/metrics"
	"github.com/justestif/moodtube/internal/mood"
	"github.com/justestif/moodtube/internal/recommend"
	"github.com/justestif/moodtube/internal/search"
)

// DefaultSearchTimeout bounds the provider call.
const DefaultSearchTimeout = 10 * time.Second

// ErrDetectInFlight is returned when a detect is triggered while a pipeline
// is still running, including one orphaned by a reset.
var ErrDetectInFlight = errors.New("detect already in progress")

// Deps are the collaborators of a Machine.
type Deps struct {
	Detector detector.Detector
	Selector *recommend.QuerySelector
	Curator  *recommend.Curator
	Provider search.Provider
}

// Option configures a Machine.
type Option func(*Machine)

// WithSearchTimeout sets the provider call timeout.
func WithSearchTimeout(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.searchTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// Machine runs detect cycles for one session and owns its State.
// It is safe for concurrent use; at most one pipeline runs at a time.
type Machine struct {
	deps          Deps
	searchTimeout time.Duration
	logger        zerolog.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	inFlight   bool
}

// New creates a Machine in the idle phase.
func New(deps Deps, opts ...Option) (*Machine, error) {
	if deps.Detector == nil || deps.Selector == nil || deps.Curator == nil || deps.Provider == nil {
		return nil, errors.New("session: detector, selector, curator and provider are required")
	}

	m := &Machine{
		deps:          deps,
		searchTimeout: DefaultSearchTimeout,
		logger:        zerolog.Nop(),
		state:         idleState(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// TriggerDetect runs one detect, classify, query, search and curate cycle and
// returns the resulting state. The cycle is detached from ctx cancellation so
// a dropped client cannot leave the machine detecting.
func (m *Machine) TriggerDetect(ctx context.Context, frame detector.Frame) (State, error) {
	m.mu.Lock()
	if m.inFlight {
		snapshot := m.state.clone()
		m.mu.Unlock()
		metrics.PipelineRuns.WithLabelValues(metrics.OutcomeRejected).Inc()
		return snapshot, ErrDetectInFlight
	}

	m.inFlight = true
	gen := m.generation
	m.state = State{
		Phase:       PhaseDetecting,
		CurrentMood: m.state.CurrentMood,
		HasMood:     m.state.HasMood,
		Results:     []recommend.Item{},
		IsLoading:   true,
	}
	m.mu.Unlock()

	logger := m.logger.With().Str("run_id", uuid.NewString()).Logger()
	start := time.Now()

	res := m.runPipeline(context.WithoutCancel(ctx), frame, logger)

	metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	metrics.MoodsDetected.WithLabelValues(string(res.mood)).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight = false

	if gen != m.generation {
		metrics.PipelineRuns.WithLabelValues(metrics.OutcomeDiscarded).Inc()
		logger.Info().Msg("discarding result of a reset session")
		return m.state.clone(), nil
	}

	outcome := metrics.OutcomeSuccess
	if res.fetchFailed {
		outcome = metrics.OutcomeDegraded
	}
	metrics.PipelineRuns.WithLabelValues(outcome).Inc()

	m.state = State{
		Phase:       PhaseReady,
		CurrentMood: res.mood,
		HasMood:     true,
		Results:     res.items,
		Query:       res.query,
		FetchFailed: res.fetchFailed,
	}
	return m.state.clone(), nil
}

// TriggerReset returns the session to idle. A running pipeline keeps running
// but its result is discarded.
func (m *Machine) TriggerReset() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	m.state = idleState()
	return m.state.clone()
}

// SelectItem marks the result with the given id for playback.
// Unknown ids leave the state unchanged.
func (m *Machine) SelectItem(id string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Phase == PhaseReady {
		for _, item := range m.state.Results {
			if item.ExternalID == id {
				m.state.ActiveItemID = id
				break
			}
		}
	}
	return m.state.clone()
}

type pipelineResult struct {
	mood        mood.Label
	query       string
	items       []recommend.Item
	fetchFailed bool
}

// runPipeline never fails: detector trouble becomes NoFace, provider trouble
// and panics become an empty, failed fetch.
func (m *Machine) runPipeline(ctx context.Context, frame detector.Frame, logger zerolog.Logger) (res pipelineResult) {
	res.mood = mood.NoFace
	res.items = []recommend.Item{}

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("panic", fmt.Sprint(r)).Msg("pipeline panicked")
			res.items = []recommend.Item{}
			res.fetchFailed = true
		}
	}()

	scores, err := m.deps.Detector.Detect(ctx, frame)
	if err != nil {
		logger.Warn().Err(err).Msg("detection unavailable")
		scores = nil
	}
	res.mood = mood.Classify(scores)
	res.query = m.deps.Selector.Select(res.mood)

	logger = logger.With().Str("mood", string(res.mood)).Str("query", res.query).Logger()

	searchCtx, cancel := context.WithTimeout(ctx, m.searchTimeout)
	defer cancel()

	raw, err := m.deps.Provider.Search(searchCtx, res.query)
	if err != nil {
		logger.Warn().Err(err).Str("provider", m.deps.Provider.Name()).Msg("search failed")
		res.fetchFailed = true
		return res
	}

	res.items = m.deps.Curator.Curate(raw)
	logger.Info().Int("raw", len(raw)).Int("results", len(res.items)).Msg("recommendations ready")
	return res
}
