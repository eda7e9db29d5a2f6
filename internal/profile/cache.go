// Package profile memoizes the user profile per token on top of the token store.
package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/brizzai/devdash/internal/auth/models"
	"github.com/brizzai/devdash/internal/auth/providers"
	"github.com/brizzai/devdash/internal/logger"
	"github.com/brizzai/devdash/internal/tokenstore"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrUnauthenticated means the provider rejected the token and the session was cleared.
var ErrUnauthenticated = errors.New("profile: session is not authenticated")

// Fetcher resolves a token into a profile.
type Fetcher interface {
	FetchProfile(ctx context.Context, token string) (*models.UserProfile, error)
}

// Cache is a read-through profile cache. The stored profile is the only entry:
// it is dropped whenever the store's token is replaced or cleared.
type Cache struct {
	store   *tokenstore.Store
	fetcher Fetcher

	// dedups concurrent fetches for the same token
	group singleflight.Group
}

func NewCache(store *tokenstore.Store, fetcher Fetcher) *Cache {
	return &Cache{store: store, fetcher: fetcher}
}

// Get returns the cached profile for token, fetching and storing it on a miss.
func (c *Cache) Get(ctx context.Context, token string) (*models.UserProfile, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	if p, ok := c.store.ProfileFor(token); ok {
		return p, nil
	}
	return c.fetch(ctx, token)
}

// Refresh fetches the profile for token regardless of what is cached.
func (c *Cache) Refresh(ctx context.Context, token string) (*models.UserProfile, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	return c.fetch(ctx, token)
}

// Hydrate fetches and stores the profile right after a login. Unlike Refresh it
// leaves the session alone when the provider rejects the token: a profile
// failure there must not undo a token exchange that just succeeded.
func (c *Cache) Hydrate(ctx context.Context, token string) (*models.UserProfile, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	return c.fetchWith(ctx, token, false)
}

func (c *Cache) fetch(ctx context.Context, token string) (*models.UserProfile, error) {
	return c.fetchWith(ctx, token, true)
}

func (c *Cache) fetchWith(ctx context.Context, token string, demote bool) (*models.UserProfile, error) {
	key := token
	if !demote {
		key = "hydrate:" + token
	}

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		p, err := c.fetcher.FetchProfile(ctx, token)
		if err != nil {
			if providers.IsUnauthorized(err) && demote {
				cleared, clearErr := c.store.ClearIf(token)
				if clearErr != nil {
					logger.Error("Failed to clear rejected session", zap.Error(clearErr))
				}
				logger.Info("Provider rejected token",
					logger.Fingerprint(token),
					zap.Bool("cleared", cleared),
				)
				return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
			}
			return nil, err
		}

		if err := c.store.SetProfile(token, p); err != nil {
			switch {
			case errors.Is(err, tokenstore.ErrStaleToken), errors.Is(err, tokenstore.ErrNoSession):
				logger.Debug("Profile arrived for a token that is no longer current", logger.Fingerprint(token))
			default:
				logger.Warn("Failed to cache profile", zap.Error(err))
			}
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug("Profile fetch shared with a concurrent caller", logger.Fingerprint(token))
	}

	// callers sharing a flight must not share the pointer
	out := *v.(*models.UserProfile)
	return &out, nil
}
