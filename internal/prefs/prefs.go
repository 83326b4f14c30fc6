// Package prefs stores user preferences as JSON values under string keys.
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Preference keys.
const (
	KeyHistory   = "history"
	KeyAutoStart = "auto-start"
	KeySave      = "save"
	KeyMax       = "max"
	KeyCamera    = "camera"
)

// Store is an asynchronous key/value preference store.
type Store interface {
	// Get decodes the value of key into dst and reports whether it existed.
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Set writes every key in values.
	Set(ctx context.Context, values map[string]any) error
	// Remove deletes keys. Missing keys are ignored.
	Remove(ctx context.Context, keys ...string) error
}

// GetOr returns the value of key, or def when the key is absent.
func GetOr[T any](ctx context.Context, s Store, key string, def T) (T, error) {
	var v T
	ok, err := s.Get(ctx, key, &v)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

func encode(values map[string]any) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode preference %q: %w", k, err)
		}
		out[k] = b
	}
	return out, nil
}

func decode(key string, raw []byte, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode preference %q: %w", key, err)
	}
	return nil
}

// Options selects and configures a backend.
type Options struct {
	Backend string // memory, file or redis
	Path    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}

// Open returns the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", "memory":
		return NewMemory(), nil
	case "file":
		return NewFile(opts.Path)
	case "redis":
		return NewRedis(ctx, RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			Key:      opts.RedisKey,
		})
	default:
		return nil, fmt.Errorf("unknown preference backend %q", opts.Backend)
	}
}
