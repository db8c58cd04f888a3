package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"project-pulse/internals/modules/alert"
	"project-pulse/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const webhookTimeout = 10 * time.Second

// webhookSink posts JSON to a chat webhook behind a circuit breaker.
type webhookSink struct {
	name    string
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func newWebhookSink(name, url string, client *http.Client, logger *zerolog.Logger) *webhookSink {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    10 * time.Minute,
		Timeout:     5 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn().
				Str("sink", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("sink circuit breaker state change")
		},
	}

	return &webhookSink{
		name:    name,
		url:     url,
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (w *webhookSink) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s payload: %w", w.name, err)
	}

	_, err = w.breaker.Execute(func() (any, error) {
		ctx, cancel := context.WithTimeout(ctx, webhookTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%s request: %w", w.name, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s send: %w", w.name, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return nil, fmt.Errorf("%s returned %d: %s", w.name, resp.StatusCode, string(respBody))
		}
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	})
	if err != nil {
		return apperror.New(apperror.Delivery, "notify."+w.name+".send", err)
	}
	return nil
}

// --- Slack ---

type SlackSink struct {
	*webhookSink
	service string
}

func NewSlackSink(url, service string, client *http.Client, logger *zerolog.Logger) *SlackSink {
	return &SlackSink{webhookSink: newWebhookSink("slack", url, client, logger), service: service}
}

func (s *SlackSink) Name() string           { return s.name }
func (s *SlackSink) ReceivesWarnings() bool { return true }

func (s *SlackSink) Send(ctx context.Context, a alert.Alert) error {
	text := fmt.Sprintf("%s *%s*\n%s", severityEmoji(a.Severity), subject(s.service, a), plainText(a))
	return s.post(ctx, map[string]any{"text": text})
}

func (s *SlackSink) SendDigest(ctx context.Context, d alert.Digest) error {
	text := fmt.Sprintf("*%s daily digest*\n%s", s.service, digestText(d))
	return s.post(ctx, map[string]any{"text": text})
}

// --- Discord ---

const (
	discordRed    = 0xE74C3C
	discordYellow = 0xF1C40F
	discordBlue   = 0x3498DB
)

type DiscordSink struct {
	*webhookSink
	service string
}

func NewDiscordSink(url, service string, client *http.Client, logger *zerolog.Logger) *DiscordSink {
	return &DiscordSink{webhookSink: newWebhookSink("discord", url, client, logger), service: service}
}

func (s *DiscordSink) Name() string           { return s.name }
func (s *DiscordSink) ReceivesWarnings() bool { return true }

func (s *DiscordSink) Send(ctx context.Context, a alert.Alert) error {
	color := discordYellow
	if a.Severity == alert.SeverityCritical {
		color = discordRed
	}
	embed := map[string]any{
		"title":       subject(s.service, a),
		"description": plainText(a),
		"color":       color,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}
	return s.post(ctx, map[string]any{"embeds": []any{embed}})
}

func (s *DiscordSink) SendDigest(ctx context.Context, d alert.Digest) error {
	embed := map[string]any{
		"title":       s.service + " daily digest",
		"description": digestText(d),
		"color":       discordBlue,
		"timestamp":   d.To.UTC().Format(time.RFC3339),
	}
	return s.post(ctx, map[string]any{"embeds": []any{embed}})
}
