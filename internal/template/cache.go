package template

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"scribe.app/engine/internal/block"
)

// CachedSource is a read-through Redis cache in front of another Source.
// Cache failures are logged and the inner source is used directly.
type CachedSource struct {
	inner  Source
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewCachedSource(inner Source, client redis.Cmdable, ttl time.Duration, prefix string) *CachedSource {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedSource{inner: inner, client: client, ttl: ttl, prefix: prefix}
}

func (s *CachedSource) Fetch(ctx context.Context, id Identity) ([]block.Block, error) {
	key := s.prefix + id.Key()

	raw, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var blocks []block.Block
		if jsonErr := json.Unmarshal(raw, &blocks); jsonErr == nil {
			return blocks, nil
		}
		slog.WarnContext(ctx, "discarding unreadable cached template", "key", key)
	case !errors.Is(err, redis.Nil):
		slog.WarnContext(ctx, "template cache read failed", "key", key, "error", err)
	}

	blocks, err := s.inner.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(blocks); err == nil {
		if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
			slog.WarnContext(ctx, "template cache write failed", "key", key, "error", err)
		}
	}
	return blocks, nil
}

// Invalidate drops the cached copy for id, including every complexity tier
// when id has none.
func (s *CachedSource) Invalidate(ctx context.Context, id Identity) error {
	keys := []string{s.prefix + id.Key()}
	if id.Complexity == "" {
		var cursor uint64
		for {
			found, next, err := s.client.Scan(ctx, cursor, s.prefix+id.Slug()+":*", 100).Result()
			if err != nil {
				return err
			}
			keys = append(keys, found...)
			if next == 0 {
				break
			}
			cursor = next
		}
	}
	return s.client.Del(ctx, keys...).Err()
}
