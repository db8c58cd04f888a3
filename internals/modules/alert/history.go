package alert

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"project-pulse/pkg/apperror"
)

// HistoryStore persists the full alert history. Save always rewrites the
// whole list.
type HistoryStore interface {
	Load(ctx context.Context) ([]HistoryEntry, error)
	Save(ctx context.Context, entries []HistoryEntry) error
}

// FileHistory keeps the history as a single JSON array on disk.
type FileHistory struct {
	path string
}

func NewFileHistory(path string) *FileHistory {
	return &FileHistory{path: path}
}

func (f *FileHistory) Load(_ context.Context) ([]HistoryEntry, error) {
	const op string = "store.alert_history.load"

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.New(apperror.Storage, op, err)
	}
	return decodeHistory(op, data)
}

func (f *FileHistory) Save(_ context.Context, entries []HistoryEntry) error {
	const op string = "store.alert_history.save"

	data, err := encodeHistory(entries)
	if err != nil {
		return apperror.New(apperror.Internal, op, err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return apperror.New(apperror.Storage, op, err)
	}

	// write-then-rename so readers never see a half-written file
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperror.New(apperror.Storage, op, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return apperror.New(apperror.Storage, op, err)
	}
	return nil
}

// BlobStore is any key/value backend holding the encoded history as one value.
type BlobStore interface {
	LoadHistory(ctx context.Context) ([]byte, error)
	SaveHistory(ctx context.Context, data []byte) error
}

// BlobHistory adapts a BlobStore (Redis) to HistoryStore.
type BlobHistory struct {
	blob BlobStore
}

func NewBlobHistory(blob BlobStore) *BlobHistory {
	return &BlobHistory{blob: blob}
}

func (b *BlobHistory) Load(ctx context.Context) ([]HistoryEntry, error) {
	const op string = "store.alert_history.load_blob"

	data, err := b.blob.LoadHistory(ctx)
	if err != nil {
		return nil, apperror.New(apperror.Storage, op, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return decodeHistory(op, data)
}

func (b *BlobHistory) Save(ctx context.Context, entries []HistoryEntry) error {
	const op string = "store.alert_history.save_blob"

	data, err := encodeHistory(entries)
	if err != nil {
		return apperror.New(apperror.Internal, op, err)
	}
	if err := b.blob.SaveHistory(ctx, data); err != nil {
		return apperror.New(apperror.Storage, op, err)
	}
	return nil
}

func decodeHistory(op string, data []byte) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, apperror.New(apperror.Storage, op, err).WithMessage("alert history is not valid JSON")
	}
	return entries, nil
}

func encodeHistory(entries []HistoryEntry) ([]byte, error) {
	if entries == nil {
		entries = []HistoryEntry{}
	}
	return json.MarshalIndent(entries, "", "  ")
}

// MemoryHistory keeps the history in process only.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []HistoryEntry
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{}
}

func (m *MemoryHistory) Load(context.Context) ([]HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]HistoryEntry(nil), m.entries...), nil
}

func (m *MemoryHistory) Save(_ context.Context, entries []HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]HistoryEntry(nil), entries...)
	return nil
}
