package profile

import (
	"github.com/brizzai/devdash/internal/auth/providers"
	"github.com/brizzai/devdash/internal/tokenstore"
	"go.uber.org/fx"
)

func newCache(store *tokenstore.Store, provider providers.Provider) *Cache {
	return NewCache(store, provider)
}

// Module provides the profile cache
var Module = fx.Module("profile",
	fx.Provide(newCache),
)
