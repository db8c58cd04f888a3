package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"project-pulse/pkg/httpclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusServer(t *testing.T, status int, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		w.WriteHeader(status)
		w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPProber_Success(t *testing.T) {
	srv := statusServer(t, http.StatusOK, 0)
	p := NewHTTPProber(httpclient.NewHttpClient(), srv.URL)

	r := p.Run(context.Background(), Target{Group: GroupAPI, Name: "Clients", URL: "/api/clients", Critical: true}, time.Second)

	assert.True(t, r.Succeeded)
	require.NotNil(t, r.LatencyMs)
	assert.Equal(t, "200", r.Status)
	assert.Equal(t, "/api/clients", r.Target)
	assert.True(t, r.Critical)
	assert.Empty(t, r.Reason)
}

func TestHTTPProber_UnauthorizedIsReachable(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound} {
		srv := statusServer(t, code, 0)
		p := NewHTTPProber(httpclient.NewHttpClient(), srv.URL)

		r := p.Run(context.Background(), Target{Group: GroupAPI, Name: "Finance", URL: "/api/finance"}, time.Second)
		assert.True(t, r.Succeeded, "status %d should count as reachable", code)
	}
}

func TestHTTPProber_ServerErrorKeepsLatency(t *testing.T) {
	srv := statusServer(t, http.StatusInternalServerError, 0)
	p := NewHTTPProber(httpclient.NewHttpClient(), srv.URL)

	r := p.Run(context.Background(), Target{Group: GroupAPI, Name: "Projects", URL: "/api/projects", Critical: true}, time.Second)

	assert.False(t, r.Succeeded)
	require.NotNil(t, r.LatencyMs, "a 5xx response was received, latency must be recorded")
	assert.Equal(t, "500", r.Status)
	assert.Equal(t, ReasonServerError, r.Reason)
}

func TestHTTPProber_TimeoutHasNoLatency(t *testing.T) {
	srv := statusServer(t, http.StatusOK, 500*time.Millisecond)
	p := NewHTTPProber(httpclient.NewHttpClient(), srv.URL)

	r := p.Run(context.Background(), Target{Group: GroupPage, Name: "Dashboard", URL: "/dashboard"}, 50*time.Millisecond)

	assert.False(t, r.Succeeded)
	assert.Nil(t, r.LatencyMs)
	assert.Equal(t, StatusError, r.Status)
	assert.Equal(t, ReasonTimeout, r.Reason)
	assert.NotEmpty(t, r.Error)
}

func TestHTTPProber_ConnectionRefused(t *testing.T) {
	srv := statusServer(t, http.StatusOK, 0)
	url := srv.URL
	srv.Close()

	p := NewHTTPProber(httpclient.NewHttpClient(), url)
	r := p.Run(context.Background(), Target{Group: GroupAPI, Name: "Leads", URL: "/api/leads"}, time.Second)

	assert.False(t, r.Succeeded)
	assert.Nil(t, r.LatencyMs)
	assert.Equal(t, StatusError, r.Status)
	assert.Equal(t, ReasonNetworkError, r.Reason)
}

func TestHTTPProber_Resolve(t *testing.T) {
	p := NewHTTPProber(httpclient.NewHttpClient(), "http://localhost:3000/")

	assert.Equal(t, "http://localhost:3000/api/clients", p.resolve("/api/clients"))
	assert.Equal(t, "http://localhost:3000/clients", p.resolve("clients"))
	assert.Equal(t, "https://status.example.com/ping", p.resolve("https://status.example.com/ping"))
}
