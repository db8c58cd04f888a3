package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"sync/atomic"
	"testing"
	"time"

	"project-pulse/config"
	"project-pulse/internals/modules/alert"
	"project-pulse/pkg/apperror"
	"project-pulse/pkg/rabbitmq"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nop = zerolog.Nop()

func slowAlert() alert.Alert {
	return alert.Alert{
		Type:         alert.TypePerformance,
		Severity:     alert.SeverityWarning,
		Message:      "Slow API response: Clients took 4000ms",
		Endpoint:     "/api/clients",
		ResponseTime: 4000,
	}
}

func captureServer(t *testing.T, status int, got *map[string]any, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		if got != nil {
			require.NoError(t, json.Unmarshal(body, got))
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSlackSink_Send(t *testing.T) {
	var got map[string]any
	var calls int32
	srv := captureServer(t, http.StatusOK, &got, &calls)

	s := NewSlackSink(srv.URL, "pulse", srv.Client(), &nop)
	require.NoError(t, s.Send(context.Background(), slowAlert()))

	text, _ := got["text"].(string)
	assert.Contains(t, text, "[pulse WARNING] performance alert")
	assert.Contains(t, text, "Endpoint: /api/clients")
	assert.Contains(t, text, "Response time: 4000ms")
	assert.True(t, s.ReceivesWarnings())
}

func TestDiscordSink_SendUsesEmbeds(t *testing.T) {
	var got map[string]any
	var calls int32
	srv := captureServer(t, http.StatusNoContent, &got, &calls)

	s := NewDiscordSink(srv.URL, "pulse", srv.Client(), &nop)
	a := slowAlert()
	a.Severity = alert.SeverityCritical
	require.NoError(t, s.Send(context.Background(), a))

	embeds, ok := got["embeds"].([]any)
	require.True(t, ok)
	require.Len(t, embeds, 1)
	embed := embeds[0].(map[string]any)
	assert.Equal(t, float64(discordRed), embed["color"])
	assert.Contains(t, embed["title"], "CRITICAL")
}

func TestWebhookSink_Non2xxIsError(t *testing.T) {
	var calls int32
	srv := captureServer(t, http.StatusInternalServerError, nil, &calls)

	s := NewSlackSink(srv.URL, "pulse", srv.Client(), &nop)
	err := s.Send(context.Background(), slowAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slack returned 500")
	assert.True(t, apperror.IsKind(err, apperror.Delivery))
}

func TestWebhookSink_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int32
	srv := captureServer(t, http.StatusBadGateway, nil, &calls)

	s := NewSlackSink(srv.URL, "pulse", srv.Client(), &nop)
	for range 3 {
		assert.Error(t, s.Send(context.Background(), slowAlert()))
	}

	err := s.Send(context.Background(), slowAlert())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSlackSink_Digest(t *testing.T) {
	var got map[string]any
	var calls int32
	srv := captureServer(t, http.StatusOK, &got, &calls)

	d := alert.Digest{
		To:         time.Now(),
		Total:      3,
		ByType:     map[alert.Type]int{alert.TypeError: 1, alert.TypePerformance: 2},
		BySeverity: map[alert.Severity]int{alert.SeverityCritical: 1, alert.SeverityWarning: 2},
	}
	s := NewSlackSink(srv.URL, "pulse", srv.Client(), &nop)
	require.NoError(t, s.SendDigest(context.Background(), d))

	text := got["text"].(string)
	assert.Contains(t, text, "Alerts in the last 24h: 3")
	assert.Contains(t, text, "Critical: 1, warning: 2")
	assert.Contains(t, text, "performance: 2")
}

func TestEmailSink(t *testing.T) {
	cfg := config.EmailConfig{
		Enabled:  true,
		Host:     "smtp.example.com",
		Port:     587,
		From:     "monitor@example.com",
		To:       []string{"ops@example.com", "dev@example.com"},
		Username: "monitor",
		Password: "secret",
	}
	e := NewEmailSink(cfg, "pulse")

	var addr string
	var to []string
	var msg string
	e.sendMail = func(_ context.Context, a string, auth smtp.Auth, from string, rcpt []string, m []byte) error {
		addr, to, msg = a, rcpt, string(m)
		assert.NotNil(t, auth)
		return nil
	}

	a := alert.Alert{Type: alert.TypeError, Severity: alert.SeverityCritical, Message: "API endpoint failed: Projects", Endpoint: "/api/projects"}
	require.NoError(t, e.Send(context.Background(), a))

	assert.Equal(t, "smtp.example.com:587", addr)
	assert.Equal(t, cfg.To, to)
	assert.Contains(t, msg, "Subject: [pulse CRITICAL] error alert\r\n")
	assert.Contains(t, msg, "To: ops@example.com,dev@example.com\r\n")
	assert.Contains(t, msg, "Endpoint: /api/projects")
	assert.False(t, e.ReceivesWarnings())
}

func TestEmailSink_PropagatesSMTPError(t *testing.T) {
	e := NewEmailSink(config.EmailConfig{Host: "localhost", Port: 25, From: "a@b", To: []string{"c@d"}}, "pulse")
	e.sendMail = func(context.Context, string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := e.SendDigest(context.Background(), alert.Digest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email send")
	assert.True(t, apperror.IsKind(err, apperror.Delivery))
}

func TestEmailSink_SilentServerHonoursDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	held := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			held <- conn
		}
	}()
	t.Cleanup(func() {
		select {
		case c := <-held:
			c.Close()
		default:
		}
	})

	port := ln.Addr().(*net.TCPAddr).Port
	e := NewEmailSink(config.EmailConfig{Host: "127.0.0.1", Port: port, From: "a@b", To: []string{"c@d"}}, "pulse")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = e.Send(ctx, alert.Alert{Type: alert.TypeError, Severity: alert.SeverityCritical, Message: "down"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, apperror.IsKind(err, apperror.Timeout))
}

func TestEmailSink_CancelledContext(t *testing.T) {
	e := NewEmailSink(config.EmailConfig{Host: "localhost", Port: 25, From: "a@b", To: []string{"c@d"}}, "pulse")
	e.sendMail = func(context.Context, string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("must not dial with a cancelled context")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Send(ctx, alert.Alert{Severity: alert.SeverityCritical})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.Timeout))
}

type fakePublisher struct {
	key  string
	body []byte
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, key string, body []byte) error {
	f.key, f.body = key, body
	return f.err
}

func TestBrokerSink_Send(t *testing.T) {
	pub := &fakePublisher{}
	b := NewBrokerSink(pub)

	require.NoError(t, b.Send(context.Background(), slowAlert()))
	assert.Equal(t, "alerts.warning.performance", pub.key)

	var ev rabbitmq.EventPayload
	require.NoError(t, json.Unmarshal(pub.body, &ev))
	assert.Equal(t, eventAlertRaised, ev.Type)

	var a alert.Alert
	require.NoError(t, json.Unmarshal(ev.Payload, &a))
	assert.Equal(t, slowAlert(), a)
}

func TestBuildSinks_SkipsDisabled(t *testing.T) {
	cfg := &config.Config{ServiceName: "pulse"}
	cfg.Notify.Slack = config.WebhookConfig{Enabled: true, WebhookURL: "http://localhost/hook"}
	cfg.Notify.Broker.Enabled = true

	sinks := BuildSinks(cfg, http.DefaultClient, nil, &nop)
	require.Len(t, sinks, 1)
	assert.Equal(t, "slack", sinks[0].Name())

	sinks = BuildSinks(cfg, http.DefaultClient, &fakePublisher{}, &nop)
	require.Len(t, sinks, 2)
	assert.Equal(t, "broker", sinks[1].Name())
}
