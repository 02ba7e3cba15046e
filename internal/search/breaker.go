package search

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/justestif/moodtube/internal/metrics"
	"github.com/justestif/moodtube/internal/recommend"
)

// ErrUnavailable is returned while the circuit is open.
var ErrUnavailable = errors.New("search provider unavailable")

// BreakerConfig tunes when the circuit opens and how long it stays open.
type BreakerConfig struct {
	// MinRequests is the number of requests in a window before the ratio is considered.
	MinRequests uint32
	// FailureRatio opens the circuit once reached.
	FailureRatio float64
	// Interval resets the counts while closed.
	Interval time.Duration
	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration
}

// DefaultBreakerConfig returns the settings used in production.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MinRequests:  5,
		FailureRatio: 0.6,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
	}
}

// Breaker wraps a Provider with a circuit breaker.
// Open-circuit rejections surface as ErrUnavailable.
type Breaker struct {
	next   Provider
	cb     *gobreaker.CircuitBreaker[[]recommend.RawItem]
	logger zerolog.Logger
}

// NewBreaker wraps next with a circuit breaker named after the provider.
func NewBreaker(next Provider, cfg BreakerConfig, logger zerolog.Logger) *Breaker {
	name := next.Name() + "-search"
	logger = logger.With().Str("component", "breaker").Str("name", name).Logger()

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	b := &Breaker{next: next, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker[[]recommend.RawItem](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		// A caller giving up is not a provider failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
	return b
}

// Name implements Provider.
func (b *Breaker) Name() string {
	return b.next.Name()
}

// Search implements Provider.
func (b *Breaker) Search(ctx context.Context, query string) ([]recommend.RawItem, error) {
	items, err := b.cb.Execute(func() ([]recommend.RawItem, error) {
		return b.next.Search(ctx, query)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.ProviderRequests.WithLabelValues(b.next.Name(), metrics.OutcomeRejected).Inc()
		return nil, errors.Join(ErrUnavailable, err)
	}
	return items, err
}

// State reports the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
