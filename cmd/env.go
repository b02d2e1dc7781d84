package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/memetrace/attribution/internal/claim"
	"github.com/memetrace/attribution/internal/fetcher"
	"github.com/memetrace/attribution/internal/pipeline"
	"github.com/memetrace/attribution/internal/store"
	"github.com/memetrace/attribution/pkg/anthropic"
)

// appEnv holds the initialized store, clients, and pipeline shared by the
// analyze/batch/serve commands.
type appEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Drafter  *claim.Drafter
	Fetcher  fetcher.MediaFetcher
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initEnv sets up the store, the inference client, and the pipeline.
// Callers should defer env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic api key is required (ATTRIBUTION_ANTHROPIC_KEY)")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	client := anthropic.NewClient(cfg.Anthropic.Key)

	return &appEnv{
		Store:    st,
		Pipeline: pipeline.New(client, st, cfg),
		Drafter:  claim.NewDrafter(client, cfg.Anthropic),
		Fetcher:  fetcher.NewHTTPFetcher(cfg.Fetch),
	}, nil
}
