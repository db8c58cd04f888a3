package alert

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"project-pulse/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultDedupWindow = 15 * time.Minute
	DefaultRateWindow  = time.Hour
	DefaultRateLimit   = 3
	DefaultMaxEntries  = 1000
)

// Sink delivers alerts to one channel (email, slack, ...).
type Sink interface {
	Name() string
	// ReceivesWarnings reports whether warning-severity alerts are routed here.
	ReceivesWarnings() bool
	Send(ctx context.Context, a Alert) error
	SendDigest(ctx context.Context, d Digest) error
}

type Policy struct {
	DedupWindow time.Duration
	RateWindow  time.Duration
	RateLimit   int
	MaxEntries  int
}

func (p Policy) withDefaults() Policy {
	if p.DedupWindow <= 0 {
		p.DedupWindow = DefaultDedupWindow
	}
	if p.RateWindow <= 0 {
		p.RateWindow = DefaultRateWindow
	}
	if p.RateLimit <= 0 {
		p.RateLimit = DefaultRateLimit
	}
	if p.MaxEntries <= 0 {
		p.MaxEntries = DefaultMaxEntries
	}
	return p
}

// AlertService decides which alerts get through, records them and fans
// them out to the configured sinks.
type AlertService struct {
	policy  Policy
	store   HistoryStore
	sinks   []Sink
	metrics *metrics.Metrics
	logger  *zerolog.Logger
	now     func() time.Time

	mu      sync.Mutex
	history []HistoryEntry

	// serialises writes so an older snapshot never overwrites a newer one
	saveMu sync.Mutex
}

type Option func(*AlertService)

func WithClock(now func() time.Time) Option {
	return func(s *AlertService) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *AlertService) { s.metrics = m }
}

// NewAlertService loads the persisted history. An unreadable history is
// logged and treated as empty.
func NewAlertService(ctx context.Context, policy Policy, store HistoryStore, sinks []Sink, logger *zerolog.Logger, opts ...Option) *AlertService {
	s := &AlertService{
		policy: policy.withDefaults(),
		store:  store,
		sinks:  sinks,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	entries, err := store.Load(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load alert history, starting empty")
		entries = nil
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	s.history = entries

	return s
}

// ShouldSend applies de-duplication and the warning rate limit against the
// current history.
func (s *AlertService) ShouldSend(a Alert) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, _ := s.shouldSend(a, s.now())
	return ok
}

func (s *AlertService) shouldSend(a Alert, now time.Time) (bool, string) {
	dedupFrom := now.Add(-s.policy.DedupWindow)
	rateFrom := now.Add(-s.policy.RateWindow)
	key := a.Key()

	warnings := 0
	for i := len(s.history) - 1; i >= 0; i-- {
		e := s.history[i]
		if e.Timestamp.After(dedupFrom) && e.Key() == key {
			return false, "duplicate"
		}
		if e.Severity == SeverityWarning && e.Timestamp.After(rateFrom) {
			warnings++
		}
	}

	if a.Severity == SeverityCritical {
		return true, ""
	}
	if warnings >= s.policy.RateLimit {
		return false, "rate_limited"
	}
	return true, ""
}

// Process runs each alert through the policy in order, records the accepted
// ones and dispatches them. Delivery failures never propagate.
func (s *AlertService) Process(ctx context.Context, alerts []Alert) []HistoryEntry {
	if len(alerts) == 0 {
		return nil
	}

	s.mu.Lock()
	now := s.now()
	var accepted []HistoryEntry
	for _, a := range alerts {
		ok, reason := s.shouldSend(a, now)
		if !ok {
			s.logger.Info().
				Str("type", string(a.Type)).
				Str("severity", string(a.Severity)).
				Str("target", a.Target()).
				Str("reason", reason).
				Msg("alert suppressed")
			s.metrics.ObserveAlert(string(a.Type), string(a.Severity), reason)
			continue
		}

		entry := HistoryEntry{
			ID:        uuid.NewString(),
			Alert:     a,
			Timestamp: now,
			Sent:      true,
		}
		s.history = append(s.history, entry)
		accepted = append(accepted, entry)
		s.metrics.ObserveAlert(string(a.Type), string(a.Severity), "accepted")
	}
	if over := len(s.history) - s.policy.MaxEntries; over > 0 {
		s.history = append([]HistoryEntry(nil), s.history[over:]...)
	}
	s.mu.Unlock()

	if len(accepted) == 0 {
		return nil
	}

	for _, e := range accepted {
		s.dispatch(ctx, e.Alert)
	}
	s.persist(ctx)

	return accepted
}

func (s *AlertService) dispatch(ctx context.Context, a Alert) {
	for _, sink := range s.sinks {
		if a.Severity == SeverityWarning && !sink.ReceivesWarnings() {
			continue
		}
		err := safeSend(func() error { return sink.Send(ctx, a) })
		s.metrics.ObserveDelivery(sink.Name(), err)
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("sink", sink.Name()).
				Str("type", string(a.Type)).
				Str("target", a.Target()).
				Msg("alert delivery failed")
		}
	}
}

func (s *AlertService) persist(ctx context.Context) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	snapshot := s.History()
	if err := s.store.Save(ctx, snapshot); err != nil {
		s.logger.Error().Err(err).Int("entries", len(snapshot)).Msg("failed to persist alert history")
	}
}

// History returns a copy of the history, oldest first.
func (s *AlertService) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

func (s *AlertService) Stats() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	day := now.Add(-24 * time.Hour)
	week := now.Add(-7 * 24 * time.Hour)

	st := Statistics{
		Total:      len(s.history),
		ByType:     map[Type]int{},
		BySeverity: map[Severity]int{},
		Recent:     []HistoryEntry{},
	}
	for _, e := range s.history {
		st.ByType[e.Type]++
		st.BySeverity[e.Severity]++
		if e.Timestamp.After(day) {
			st.Last24h++
		}
		if e.Timestamp.After(week) {
			st.Last7d++
		}
	}
	if n := len(s.history); n > 0 {
		last := s.history[n-1].Timestamp
		st.LastAlertAt = &last
		from := max(n-10, 0)
		for i := n - 1; i >= from; i-- {
			st.Recent = append(st.Recent, s.history[i])
		}
	}
	return st
}

// Digest summarises the last 24 hours of accepted alerts.
func (s *AlertService) Digest() Digest {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	d := Digest{
		From:       now.Add(-24 * time.Hour),
		To:         now,
		ByType:     map[Type]int{},
		BySeverity: map[Severity]int{},
		Alerts:     []HistoryEntry{},
	}
	for _, e := range s.history {
		if !e.Timestamp.After(d.From) {
			continue
		}
		d.Total++
		d.ByType[e.Type]++
		d.BySeverity[e.Severity]++
		d.Alerts = append(d.Alerts, e)
	}
	return d
}

// SendDigest builds the daily digest and hands it to every sink.
func (s *AlertService) SendDigest(ctx context.Context) Digest {
	d := s.Digest()
	for _, sink := range s.sinks {
		err := safeSend(func() error { return sink.SendDigest(ctx, d) })
		s.metrics.ObserveDelivery(sink.Name(), err)
		if err != nil {
			s.logger.Error().Err(err).Str("sink", sink.Name()).Msg("digest delivery failed")
		}
	}
	s.logger.Info().Int("alerts", d.Total).Int("sinks", len(s.sinks)).Msg("daily digest sent")
	return d
}

func safeSend(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked: %v", r)
		}
	}()
	return fn()
}
