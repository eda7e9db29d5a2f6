package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/brizzai/devdash/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestNewCallbackListenerRejectsBadURL(t *testing.T) {
	_, err := NewCallbackListener(nil, "/relative/only")
	assert.Error(t, err)
}

func TestCallbackListenerDeliversFirstOutcome(t *testing.T) {
	c := newComponents(t, &fakeProvider{}, &fakeAPI{})
	redirect := fmt.Sprintf("http://127.0.0.1:%d/auth/callback", freePort(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	l, err := NewCallbackListener(c.Resolver, redirect)
	require.NoError(t, err)
	require.NoError(t, l.Start(ctx))
	defer l.Stop()

	for i := 0; i < 2; i++ {
		resp, err := http.Get(redirect + "?code=abc")
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), "Signed in")
	}

	out, err := l.WaitForOutcome(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Authenticated, out.Kind)
	assert.Equal(t, "tok-abc", c.Store.Token())
}

func TestCallbackListenerDenied(t *testing.T) {
	c := newComponents(t, &fakeProvider{}, &fakeAPI{})
	redirect := fmt.Sprintf("http://127.0.0.1:%d/cb", freePort(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	l, err := NewCallbackListener(c.Resolver, redirect)
	require.NoError(t, err)
	require.NoError(t, l.Start(ctx))
	defer l.Stop()

	resp, err := http.Get(redirect + "?error=access_denied")
	require.NoError(t, err)
	_ = resp.Body.Close()

	out, err := l.WaitForOutcome(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Denied, out.Kind)
	assert.Equal(t, "access_denied", out.Reason)
	assert.Empty(t, c.Store.Token())
}

func TestCallbackListenerOnlyServesCallbackPath(t *testing.T) {
	c := newComponents(t, &fakeProvider{}, &fakeAPI{})
	redirect := fmt.Sprintf("http://127.0.0.1:%d/auth/callback", freePort(t))

	l, err := NewCallbackListener(c.Resolver, redirect)
	require.NoError(t, err)
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	base := "http://" + l.Addr()
	resp, err := http.Get(base + "/elsewhere?code=abc")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(redirect+"?code=abc", "text/plain", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Empty(t, c.Store.Token(), "no landing was resolved")
}

func TestCallbackListenerWaitHonoursContext(t *testing.T) {
	c := newComponents(t, &fakeProvider{}, &fakeAPI{})
	l, err := NewCallbackListener(c.Resolver, fmt.Sprintf("http://127.0.0.1:%d/cb", freePort(t)))
	require.NoError(t, err)
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.WaitForOutcome(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
