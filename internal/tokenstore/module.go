package tokenstore

import (
	"context"

	"github.com/brizzai/devdash/internal/config"
	"go.uber.org/fx"
)

// NewStore opens the configured backend and hydrates the store from it.
func NewStore(lc fx.Lifecycle, cfg *config.Config) (*Store, error) {
	backend, err := OpenBackend(cfg.Session)
	if err != nil {
		return nil, err
	}

	s := New(backend)
	if err := s.Load(); err != nil {
		_ = backend.Close()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return s.Close()
		},
	})
	return s, nil
}

// Module provides the token store
var Module = fx.Module("tokenstore",
	fx.Provide(NewStore),
)
