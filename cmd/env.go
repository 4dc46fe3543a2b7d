package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/trueinf/geosight-new-sub000/internal/pipeline"
	"github.com/trueinf/geosight-new-sub000/internal/provider"
	"github.com/trueinf/geosight-new-sub000/internal/store"
)

// searchEnv holds the fetcher and store needed by the search, batch and
// serve commands.
type searchEnv struct {
	Store   store.Store // nil when persistence is not wanted
	Fetcher *pipeline.Fetcher
}

// Close releases resources held by the environment.
func (e *searchEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initSearch validates config for mode, opens and migrates the store when
// withStore is set, and builds a Fetcher over every configured provider.
// Callers should defer env.Close().
func initSearch(ctx context.Context, mode string, withStore bool) (*searchEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &searchEnv{
		Fetcher: pipeline.NewFetcher(provider.NewCallers(cfg), pipeline.OptionsFromConfig(cfg.Fetch)),
	}
	if !withStore {
		return env, nil
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env.Store = st
	return env, nil
}

// initStore opens the configured store and applies its schema.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
