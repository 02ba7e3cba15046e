// Command moodtube runs the mood-based music recommendation web application.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"

	"github.com/justestif/moodtube/internal/config"
	"github.com/justestif/moodtube/internal/db"
	"github.com/justestif/moodtube/internal/detector"
	"github.com/justestif/moodtube/internal/logging"
	"github.com/justestif/moodtube/internal/recommend"
	"github.com/justestif/moodtube/internal/search"
	"github.com/justestif/moodtube/internal/session"
	"github.com/justestif/moodtube/internal/spotify"
	"github.com/justestif/moodtube/internal/web"
	"github.com/justestif/moodtube/internal/youtube"
	webfs "github.com/justestif/moodtube/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	table, err := cfg.QueryTable()
	if err != nil {
		return err
	}

	// One shared selector fails fast on a bad table before any session exists.
	rng := recommend.DefaultRand()
	selector, err := recommend.NewQuerySelector(table, rng)
	if err != nil {
		return fmt.Errorf("building query selector: %w", err)
	}

	ctx := context.Background()

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}
	provider = search.NewBreaker(provider, search.DefaultBreakerConfig(), logger)

	if cfg.Database.URL != "" {
		database, err := db.New(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()

		if err := database.Migrate(ctx); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}

		provider = search.NewCachedProvider(database.SearchCache(), provider, cfg.Database.CacheTTL, logger)

		if cfg.Database.PurgeSchedule != "" {
			purger, err := search.NewPurgeScheduler(cfg.Database.PurgeSchedule, database.SearchCache(), logger)
			if err != nil {
				return err
			}
			purger.Start()
			defer purger.Stop(ctx)
		}
		logger.Info().Msg("persistent search cache enabled")
	}

	var det detector.Detector = detector.Unavailable{}
	if cfg.Detector.URL != "" {
		det = detector.NewHTTPDetector(cfg.Detector.URL, cfg.Detector.Timeout)
	} else {
		logger.Warn().Msg("no detector configured, every cycle uses the fallback query")
	}

	factory := newMachineFactory(session.Deps{
		Detector: det,
		Selector: selector,
		Curator:  recommend.NewCurator(rng),
		Provider: provider,
	}, cfg, logger)

	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		return fmt.Errorf("creating templates filesystem: %w", err)
	}

	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("creating static filesystem: %w", err)
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:        cfg.Server.Addr,
		TemplatesFS: templates,
		StaticFS:    static,
		Sessions:    web.NewSessionStore(cfg.Session.TTL, factory),
		Handlers: web.HandlersConfig{
			MaxFrameBytes:   cfg.Detector.MaxFrameBytes,
			DetectorEnabled: cfg.Detector.URL != "",
			Provider:        cfg.Search.Provider,
		},
		DetectPerMinute: cfg.RateLimit.DetectPerMinute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run()
}

// newProvider builds the configured search backend.
func newProvider(ctx context.Context, cfg *config.Config) (search.Provider, error) {
	switch cfg.Search.Provider {
	case config.ProviderSpotify:
		client, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			Market:       cfg.Search.Region,
			Limit:        cfg.Search.MaxResults,
			Timeout:      cfg.Search.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("creating spotify client: %w", err)
		}
		return client, nil
	default:
		return youtube.NewClient(youtube.Config{
			APIKey:            cfg.YouTube.APIKey,
			BaseURL:           cfg.YouTube.BaseURL,
			Region:            cfg.Search.Region,
			MaxResults:        cfg.Search.MaxResults,
			CacheTTL:          cfg.Search.CacheTTL,
			RequestsPerSecond: cfg.Search.RequestsPerSecond,
			Timeout:           cfg.Search.Timeout,
		}), nil
	}
}

// newMachineFactory returns a factory giving each browser session its own
// state machine over the shared pipeline components.
func newMachineFactory(deps session.Deps, cfg *config.Config, logger zerolog.Logger) web.MachineFactory {
	return func() (*session.Machine, error) {
		return session.New(deps,
			session.WithSearchTimeout(cfg.Search.Timeout),
			session.WithLogger(logger),
		)
	}
}
