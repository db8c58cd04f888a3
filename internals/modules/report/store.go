package report

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"project-pulse/pkg/apperror"

	"github.com/rs/zerolog"
)

type Kind string

const (
	KindHealth      Kind = "health"
	KindPerformance Kind = "performance"
	KindResilience  Kind = "resilience"
	KindLoad        Kind = "load"
)

// stampLayout is ISO-8601 in UTC; ':' and '.' are replaced with '-' so names
// are filesystem safe and sort chronologically.
const stampLayout = "2006-01-02T15:04:05.000Z"

// Archiver receives a copy of every saved report.
type Archiver interface {
	Upload(ctx context.Context, name string, data []byte) error
}

// Store keeps one JSON file per report in a directory.
type Store struct {
	dir     string
	archive Archiver
	logger  *zerolog.Logger
	now     func() time.Time
}

type Option func(*Store)

func WithArchive(a Archiver) Option {
	return func(s *Store) { s.archive = a }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(dir string, logger *zerolog.Logger, opts ...Option) *Store {
	s := &Store{dir: dir, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func FileName(kind Kind, at time.Time) string {
	stamp := at.UTC().Format(stampLayout)
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return string(kind) + "-" + stamp + ".json"
}

func parseStamp(kind Kind, name string) (time.Time, bool) {
	prefix := string(kind) + "-"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json")
	// 2006-01-02T15-04-05-000Z: the date keeps its dashes, the time part gets its separators back
	date, clock, ok := strings.Cut(stamp, "T")
	if !ok || len(clock) != len("15-04-05-000Z") {
		return time.Time{}, false
	}
	clock = clock[:2] + ":" + clock[3:5] + ":" + clock[6:8] + "." + clock[9:]
	t, err := time.Parse(stampLayout, date+"T"+clock)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Save writes v as a new report of the given kind and returns its path.
// The directory is created when missing.
func (s *Store) Save(ctx context.Context, kind Kind, v any) (string, error) {
	const op string = "store.report.save"

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", apperror.New(apperror.Internal, op, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", apperror.New(apperror.Storage, op, err)
	}

	name := FileName(kind, s.now())
	path := filepath.Join(s.dir, name)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", apperror.New(apperror.Storage, op, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", apperror.New(apperror.Storage, op, err)
	}

	if s.archive != nil {
		if err := s.archive.Upload(ctx, name, data); err != nil {
			s.logger.Warn().Err(err).Str("report", name).Msg("failed to archive report")
		}
	}

	s.logger.Debug().Str("kind", string(kind)).Str("path", path).Msg("report saved")
	return path, nil
}

// Latest decodes the newest report of kind into out. It reports false, with
// a nil error, when no report exists.
func (s *Store) Latest(kind Kind, out any) (bool, error) {
	const op string = "store.report.latest"

	names, err := s.list(kind)
	if err != nil {
		return false, apperror.New(apperror.Storage, op, err)
	}
	if len(names) == 0 {
		return false, nil
	}

	data, err := os.ReadFile(filepath.Join(s.dir, names[len(names)-1]))
	if err != nil {
		return false, apperror.New(apperror.Storage, op, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, apperror.New(apperror.Storage, op, err).WithMessage("report is not valid JSON")
	}
	return true, nil
}

// Prune deletes reports of every kind older than olderThan and returns how
// many were removed.
func (s *Store) Prune(olderThan time.Duration) (int, error) {
	const op string = "store.report.prune"

	cutoff := s.now().Add(-olderThan)
	removed := 0

	for _, kind := range []Kind{KindHealth, KindPerformance, KindResilience, KindLoad} {
		names, err := s.list(kind)
		if err != nil {
			return removed, apperror.New(apperror.Storage, op, err)
		}
		for _, name := range names {
			at, ok := parseStamp(kind, name)
			if !ok || !at.Before(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return removed, apperror.New(apperror.Storage, op, err)
			}
			removed++
		}
	}

	s.logger.Info().Int("removed", removed).Time("cutoff", cutoff).Msg("reports pruned")
	return removed, nil
}

// list returns report file names of kind in lexicographic (chronological) order.
func (s *Store) list(kind Kind) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := parseStamp(kind, e.Name()); ok {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
