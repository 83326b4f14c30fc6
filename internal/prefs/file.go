package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File keeps preferences in a single JSON document on disk. Every write
// replaces the file atomically.
type File struct {
	path string

	mu     sync.RWMutex
	values map[string]json.RawMessage
}

// NewFile opens (or lazily creates) the document at path.
func NewFile(path string) (*File, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve preference file: %w", err)
		}
		path = filepath.Join(dir, "qrscan", "prefs.json")
	}
	f := &File{path: path, values: make(map[string]json.RawMessage)}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

// Path returns the document location.
func (f *File) Path() string { return f.path }

func (f *File) load() error {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read preferences: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &f.values); err != nil {
		return fmt.Errorf("parse preferences %s: %w", f.path, err)
	}
	return nil
}

func (f *File) Get(_ context.Context, key string, dst any) (bool, error) {
	f.mu.RLock()
	raw, ok := f.values[key]
	f.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, decode(key, raw, dst)
}

func (f *File) Set(_ context.Context, values map[string]any) error {
	enc, err := encode(values)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, v := range enc {
		f.values[k] = v
	}
	return f.flush()
}

func (f *File) Remove(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.values, k)
	}
	return f.flush()
}

// flush writes the document; callers hold f.mu.
func (f *File) flush() error {
	data, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return fmt.Errorf("create preference dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".prefs-*.json")
	if err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}
