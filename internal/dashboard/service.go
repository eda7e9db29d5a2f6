// Package dashboard loads the data behind the protected views.
package dashboard

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/brizzai/devdash/internal/auth/models"
	"github.com/brizzai/devdash/internal/config"
	"github.com/brizzai/devdash/internal/logger"
	"github.com/brizzai/devdash/internal/profile"
	"github.com/brizzai/devdash/internal/requester"
	"github.com/brizzai/devdash/internal/session"
	"github.com/brizzai/devdash/internal/tokenstore"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrNotAuthorized means there is no usable session; the caller must route to login.
var ErrNotAuthorized = errors.New("dashboard: not signed in")

const defaultRepoLimit = 10

// View is everything a protected view renders. Profile may be nil when the
// provider could not be reached; the view then shows unprovided fields.
type View struct {
	Session   models.Session
	Profile   *models.UserProfile
	Repos     []models.Repository
	ReposNote string
}

// API is the slice of the outbound HTTP layer the dashboard uses
type API interface {
	GetJSON(ctx context.Context, path string, query url.Values, out interface{}) error
}

type Service struct {
	guard        *session.Guard
	store        *tokenstore.Store
	profiles     *profile.Cache
	api          API
	reposEnabled bool
}

func NewService(guard *session.Guard, store *tokenstore.Store, profiles *profile.Cache, api API, reposEnabled bool) *Service {
	return &Service{guard: guard, store: store, profiles: profiles, api: api, reposEnabled: reposEnabled}
}

// Load assembles the dashboard. It refuses to run without a session.
func (s *Service) Load(ctx context.Context) (*View, error) {
	if !s.guard.IsAuthorized() {
		return nil, ErrNotAuthorized
	}

	sess, _ := s.store.Session()
	view := &View{Session: sess}

	p, err := s.profiles.Get(ctx, sess.Token)
	switch {
	case errors.Is(err, profile.ErrUnauthenticated):
		return nil, ErrNotAuthorized
	case err != nil:
		logger.Warn("Dashboard profile unavailable", zap.Error(err))
	default:
		view.Profile = p
	}

	if !s.reposEnabled {
		view.ReposNote = "repositories are only listed for GitHub accounts"
		return view, nil
	}

	repos, err := s.Repos(ctx, defaultRepoLimit)
	switch {
	case errors.Is(err, requester.ErrUnauthorized):
		return nil, ErrNotAuthorized
	case err != nil:
		logger.Warn("Dashboard repositories unavailable", zap.Error(err))
		view.ReposNote = "repositories could not be loaded"
	default:
		view.Repos = repos
	}
	return view, nil
}

// Repos lists the signed-in user's most recently updated repositories.
func (s *Service) Repos(ctx context.Context, limit int) ([]models.Repository, error) {
	if limit <= 0 {
		limit = defaultRepoLimit
	}
	q := url.Values{
		"sort":     {"updated"},
		"per_page": {strconv.Itoa(limit)},
	}
	var repos []models.Repository
	if err := s.api.GetJSON(ctx, "/user/repos", q, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

func newService(cfg *config.Config, guard *session.Guard, store *tokenstore.Store, profiles *profile.Cache, api *requester.HTTPRequester) *Service {
	return NewService(guard, store, profiles, api, cfg.Provider.Name == config.ProviderGitHub)
}

// Module provides the dashboard service
var Module = fx.Module("dashboard",
	fx.Provide(newService),
)
