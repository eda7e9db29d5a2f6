package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/brizzai/devdash/internal/logger"
	"github.com/brizzai/devdash/internal/session"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var callbackPage = template.Must(template.New("callback").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>devdash</title></head>
<body>
<h1>{{.Title}}</h1>
{{if .Notice}}<p>{{.Notice}}</p>{{end}}
<p>You can close this window and return to the terminal.</p>
</body></html>
`))

// CallbackListener is a short-lived local server that waits for the provider
// redirect during a terminal login. Every landing is resolved; the first
// outcome is handed to WaitForOutcome.
type CallbackListener struct {
	resolver *session.Resolver
	addr     string
	path     string

	server   *http.Server
	listener net.Listener
	resultCh chan session.Outcome
	errorCh  chan error
	once     sync.Once
}

// NewCallbackListener listens on the host and port of redirectURL.
func NewCallbackListener(resolver *session.Resolver, redirectURL string) (*CallbackListener, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("redirect url %q has no host", redirectURL)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return &CallbackListener{
		resolver: resolver,
		addr:     u.Host,
		path:     path,
		resultCh: make(chan session.Outcome, 1),
		errorCh:  make(chan error, 1),
	}, nil
}

// Start begins listening; the listener stops when ctx is cancelled.
func (l *CallbackListener) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("failed to start callback listener on %s: %w", l.addr, err)
	}
	l.listener = listener

	r := chi.NewRouter()
	r.Get(l.path, l.handleCallback)
	l.server = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := l.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case l.errorCh <- err:
			default:
			}
		}
	}()

	go func() {
		<-ctx.Done()
		l.Stop()
	}()

	logger.Debug("Callback listener started", zap.String("address", listener.Addr().String()), zap.String("path", l.path))
	return nil
}

// Addr returns the bound address, useful when the configured port was 0.
func (l *CallbackListener) Addr() string {
	if l.listener == nil {
		return l.addr
	}
	return l.listener.Addr().String()
}

// WaitForOutcome blocks until the first landing has been resolved.
func (l *CallbackListener) WaitForOutcome(ctx context.Context) (session.Outcome, error) {
	select {
	case out := <-l.resultCh:
		return out, nil
	case err := <-l.errorCh:
		return session.Outcome{}, err
	case <-ctx.Done():
		return session.Outcome{}, ctx.Err()
	}
}

func (l *CallbackListener) handleCallback(w http.ResponseWriter, r *http.Request) {
	out := l.resolver.Resolve(r.Context(), session.ParamsFromQuery(r.URL.Query()))

	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	title := "Signed in"
	if out.Kind != session.Authenticated {
		title = "Sign-in did not complete"
	}
	if err := callbackPage.Execute(w, map[string]string{"Title": title, "Notice": out.Notice}); err != nil {
		logger.Error("Failed to render callback page", zap.Error(err))
	}

	l.once.Do(func() {
		l.resultCh <- out
	})
}

// Stop shuts the listener down.
func (l *CallbackListener) Stop() {
	if l.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = l.server.Shutdown(ctx)
	}
	if l.listener != nil {
		_ = l.listener.Close()
	}
}
