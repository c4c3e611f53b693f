// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"gcode-corrector/pkg/errors"
)

// DefaultPrefix namespaces cache keys in a shared Redis.
const DefaultPrefix = "gcode-corrector:result:"

// Redis stores entries as JSON strings with a TTL.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects to url (redis://[:password@]host:port/db) and checks
// the connection with PING.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.CacheError("connect", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.CacheError("connect", err)
	}
	return NewRedisClient(client, ttl), nil
}

// NewRedisClient wraps an existing client. ttl <= 0 keeps entries until
// Redis evicts them.
func NewRedisClient(client *redis.Client, ttl time.Duration) *Redis {
	if ttl < 0 {
		ttl = 0
	}
	return &Redis{client: client, prefix: DefaultPrefix, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (*Entry, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.CacheError("get", err)
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, errors.CacheError("decode", err)
	}
	return &entry, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.CacheError("encode", err)
	}
	if err := r.client.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		return errors.CacheError("set", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
