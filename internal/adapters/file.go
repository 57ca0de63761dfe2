package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/conneroisu/mediakit/internal/errors"
)

var kitIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// FileStore keeps one JSON file per kit in a directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create kit directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// path maps an id to its file, rejecting ids that could escape dir.
func (f *FileStore) path(id string) (string, error) {
	if !kitIDPattern.MatchString(id) {
		return "", errors.NewValidationError(errors.ErrCodeValidationFailed, "invalid kit id",
			errors.Issue{Path: "id", Message: fmt.Sprintf("%q is not a valid kit id", id)})
	}
	return filepath.Join(f.dir, id+".json"), nil
}

func (f *FileStore) Put(ctx context.Context, rec Record) error {
	p, err := f.path(rec.ID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode kit %s: %w", rec.ID, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	tmp, err := os.CreateTemp(f.dir, ".kit-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write kit %s: %w", rec.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), p)
}

func (f *FileStore) Get(ctx context.Context, id string) (Record, error) {
	p, err := f.path(id)
	if err != nil {
		return Record{}, err
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return Record{}, kitNotFound(id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("read kit %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode kit %s: %w", id, err)
	}
	return rec, nil
}

func (f *FileStore) List(ctx context.Context) ([]Summary, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("list kits: %w", err)
	}
	out := []Summary{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		rec, err := f.Get(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		out = append(out, Summary{ID: rec.ID, Version: rec.Version, UpdatedAt: rec.UpdatedAt})
	}
	sortSummaries(out)
	return out, nil
}

func (f *FileStore) Delete(ctx context.Context, id string) error {
	p, err := f.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); os.IsNotExist(err) {
		return kitNotFound(id)
	} else if err != nil {
		return err
	}
	return nil
}

func (f *FileStore) Close() error { return nil }
