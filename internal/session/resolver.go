package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/brizzai/devdash/internal/auth/constants"
	"github.com/brizzai/devdash/internal/auth/models"
	"github.com/brizzai/devdash/internal/auth/providers"
	"github.com/brizzai/devdash/internal/logger"
	"github.com/brizzai/devdash/internal/profile"
	"github.com/brizzai/devdash/internal/tokenstore"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CallbackParams is what the provider redirect (or a manual navigation) landed with.
type CallbackParams struct {
	Code  string
	Error string
	// HasCode distinguishes "?code=" from no code parameter at all.
	HasCode bool
}

// ParamsFromQuery reads the callback parameters from a landing URL query.
func ParamsFromQuery(q url.Values) CallbackParams {
	return CallbackParams{
		Code:    q.Get(constants.CodeParam),
		Error:   q.Get(constants.ErrorParam),
		HasCode: q.Has(constants.CodeParam),
	}
}

// CodeExchanger is the part of the provider client the resolver drives.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code string) (*providers.Exchange, error)
}

// Resolver turns a callback landing into exactly one terminal Outcome.
type Resolver struct {
	exchanger CodeExchanger
	store     *tokenstore.Store
	profiles  *profile.Cache
	nav       Navigator
	routes    Routes
	watchdog  time.Duration

	group   singleflight.Group
	mu      sync.Mutex
	settled map[string]Outcome
	// order holds settled codes oldest first; the memo keeps at most settledLimit of them.
	order        []string
	settledLimit int
}

// settledCapacity bounds how many resolved codes are remembered for replay.
const settledCapacity = 64

func NewResolver(exchanger CodeExchanger, store *tokenstore.Store, profiles *profile.Cache, nav Navigator, routes Routes, watchdog time.Duration) *Resolver {
	if watchdog <= 0 {
		watchdog = constants.DefaultWatchdog
	}
	if nav == nil {
		nav = NewLogNavigator()
	}
	return &Resolver{
		exchanger: exchanger,
		store:     store,
		profiles:  profiles,
		nav:       nav,
		routes:    routes,
		watchdog:  watchdog,
		settled:   map[string]Outcome{},

		settledLimit: settledCapacity,
	}
}

// Resolve never returns an error and never blocks longer than the watchdog.
// The chosen route is handed to the navigator before returning.
func (r *Resolver) Resolve(ctx context.Context, params CallbackParams) Outcome {
	out := r.resolve(ctx, params)
	logger.Info("Callback resolved",
		zap.Stringer("outcome", out.Kind),
		zap.String("route", string(out.Route)),
	)
	r.nav.Navigate(out.Route, out.Notice)
	return out
}

func (r *Resolver) resolve(ctx context.Context, params CallbackParams) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Callback resolution panicked", zap.Any("panic", rec))
			out = r.failed(fmt.Errorf("callback resolution panicked: %v", rec))
		}
	}()

	// error wins over code when both are present
	if reason := strings.TrimSpace(params.Error); reason != "" {
		return Outcome{Kind: Denied, Reason: reason, Route: r.routes.Login, Notice: denialNotice(reason)}
	}
	if !params.HasCode && params.Code == "" {
		return Outcome{
			Kind:   Denied,
			Reason: constants.MissingCodeReason,
			Route:  r.routes.Login,
			Notice: denialNotice(constants.MissingCodeReason),
		}
	}

	code := params.Code
	if o, ok := r.lookup(code); ok {
		return o
	}

	// The exchange outlives both the watchdog and the caller's context.
	exchangeCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(code, func() (interface{}, error) {
		return r.settle(exchangeCtx, code), nil
	})

	timer := time.NewTimer(r.watchdog)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.Val.(Outcome)
	case <-timer.C:
		logger.Warn("Callback watchdog fired", zap.Duration("after", r.watchdog))
		return r.pending(ErrWatchdogExpired)
	case <-ctx.Done():
		return r.pending(ctx.Err())
	}
}

func (r *Resolver) lookup(code string) (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.settled[code]
	return o, ok
}

// settle runs inside the flight for code. A flight that finished between the
// caller's lookup and DoChan has already settled the code, so the memo is
// checked again before exchanging.
func (r *Resolver) settle(ctx context.Context, code string) Outcome {
	if o, ok := r.lookup(code); ok {
		return o
	}
	o := r.exchange(ctx, code)
	r.remember(code, o)
	return o
}

func (r *Resolver) remember(code string, o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.settled[code]; !ok {
		r.order = append(r.order, code)
	}
	r.settled[code] = o
	for len(r.order) > r.settledLimit {
		delete(r.settled, r.order[0])
		r.order = r.order[1:]
	}
}

// exchange runs once per code. Any panic is turned into a Failed outcome here
// because DoChan would otherwise re-panic on a goroutine nobody recovers.
func (r *Resolver) exchange(ctx context.Context, code string) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Code exchange panicked", zap.Any("panic", rec))
			out = r.failed(fmt.Errorf("code exchange panicked: %v", rec))
		}
	}()

	ex, err := r.exchanger.ExchangeCode(ctx, code)
	if err != nil {
		logger.Warn("Code exchange failed", zap.Error(err))
		return r.failed(err)
	}

	token := ex.Session.Token
	if err := r.store.SetSession(ex.Session); err != nil {
		logger.Error("Failed to store session", zap.Error(err))
		return r.failed(err)
	}

	// best-effort: the token stays even if the profile cannot be hydrated
	p := r.hydrate(ctx, token, ex.User)

	return Outcome{Kind: Authenticated, Token: token, Profile: p, Route: r.routes.Dashboard}
}

func (r *Resolver) hydrate(ctx context.Context, token string, embedded *models.UserProfile) *models.UserProfile {
	if embedded.Valid() {
		if err := r.store.SetProfile(token, embedded); err != nil {
			logger.Warn("Failed to store embedded profile", zap.Error(err))
		}
		return embedded
	}

	if r.profiles == nil {
		return nil
	}
	p, err := r.profiles.Hydrate(ctx, token)
	if err != nil {
		logger.Warn("Profile hydration failed", zap.Error(err))
		return nil
	}
	return p
}

func (r *Resolver) failed(cause error) Outcome {
	return Outcome{Kind: Failed, Cause: cause, Route: r.routes.Login, Notice: failureNotice(cause)}
}

// pending is the outcome handed out while the exchange is still in flight.
// Only an already stored token may send the user to the protected area.
func (r *Resolver) pending(cause error) Outcome {
	route := r.routes.Login
	if r.store.Token() != "" {
		route = r.routes.Dashboard
	}
	return Outcome{Kind: Failed, Cause: cause, Route: route, Notice: failureNotice(cause)}
}
