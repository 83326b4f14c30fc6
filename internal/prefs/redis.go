package prefs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Key is the hash holding all preferences.
	Key string
}

// Redis keeps preferences as fields of one redis hash.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	if opts.Key == "" {
		opts.Key = "qrscan:prefs"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	slog.Debug("Connected to redis preference store", "addr", opts.Addr, "key", opts.Key)
	return &Redis{client: client, key: opts.Key}, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, key string) *Redis {
	if key == "" {
		key = "qrscan:prefs"
	}
	return &Redis{client: client, key: key}
}

func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	val, err := r.client.HGet(ctx, r.key, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get preference %q: %w", key, err)
	}
	return true, decode(key, val, dst)
}

func (r *Redis) Set(ctx context.Context, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	enc, err := encode(values)
	if err != nil {
		return err
	}
	fields := make(map[string]any, len(enc))
	for k, v := range enc {
		fields[k] = string(v)
	}
	if err := r.client.HSet(ctx, r.key, fields).Err(); err != nil {
		return fmt.Errorf("set preferences: %w", err)
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.HDel(ctx, r.key, keys...).Err(); err != nil {
		return fmt.Errorf("remove preferences: %w", err)
	}
	return nil
}

// Close releases the client.
func (r *Redis) Close() error { return r.client.Close() }
