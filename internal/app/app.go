// Package app wires configuration, storage, the variant catalog and the
// session registry shared by the binaries.
package app

import (
	"context"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/xtding233/outcome-engine/internal/catalog"
	"github.com/xtding233/outcome-engine/internal/config"
	"github.com/xtding233/outcome-engine/internal/engine"
	"github.com/xtding233/outcome-engine/internal/game"
	"github.com/xtding233/outcome-engine/internal/integrity"
	"github.com/xtding233/outcome-engine/internal/kv"
	"github.com/xtding233/outcome-engine/internal/session"
	"github.com/xtding233/outcome-engine/internal/variants"
)

// App is the running engine.
type App struct {
	Settings config.Settings
	Logger   zerolog.Logger
	Loader   *game.Loader
	Catalog  *catalog.Catalog
	Sessions *session.Registry
	Store    kv.Store

	closer io.Closer
}

// New opens the store and loads every configured game.
func New(ctx context.Context, s config.Settings, log zerolog.Logger) (*App, error) {
	store, closer, err := kv.Open(ctx, s.Store())
	if err != nil {
		return nil, err
	}
	loader := game.NewLoader(s.ConfigDir)
	opts := variants.Options{
		Logger: log,
		OnExhausted: func(e *engine.ExhaustedError) {
			log.Debug().Err(e).Msg("exhausted sample kept")
		},
	}
	cat := catalog.New(loader, s.Games, opts, log)
	if err := cat.Reload(); err != nil {
		_ = closer.Close()
		return nil, err
	}

	reg := session.NewRegistry(cat, store, log)
	reg.Monitor, _ = integrity.NewLogged(log)

	log.Info().
		Str("store", s.Store().Backend).
		Str("config_dir", filepath.Clean(s.ConfigDir)).
		Strs("games", s.Games).
		Msg("engine ready")
	return &App{
		Settings: s,
		Logger:   log,
		Loader:   loader,
		Catalog:  cat,
		Sessions: reg,
		Store:    store,
		closer:   closer,
	}, nil
}

// Watch reloads the catalog whenever a config file changes, until ctx is
// done. A reload that fails validation keeps the previous variants.
func (a *App) Watch(ctx context.Context) {
	if a.Settings.ReloadInterval <= 0 {
		return
	}
	w := game.NewFileWatcher(func() []string { return a.Loader.Files(a.Settings.Games) }, a.Settings.ReloadInterval, func(changed []string) {
		a.Loader.Invalidate()
		if err := a.Catalog.Reload(); err != nil {
			a.Logger.Error().Err(err).Strs("changed", changed).Msg("config reload failed, keeping previous variants")
			return
		}
		a.Logger.Info().Strs("changed", changed).Msg("config reloaded")
	})
	w.Run(ctx)
}

// Close ends every session and releases the store.
func (a *App) Close() error {
	a.Sessions.Close()
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}
