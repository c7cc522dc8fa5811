// Package taxcache puts a Redis read-through cache in front of a
// core.Taxonomy. Term and vocabulary lookups repeat on almost every row of
// an import, so caching them keeps the database out of the hot path.
//
// The cache degrades to the wrapped taxonomy when Redis is unavailable.
package taxcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/prodsync/internal/core"
)

// DefaultTTL is used when New is given a non-positive TTL.
const DefaultTTL = 5 * time.Minute

const keyPrefix = "prodsync:taxonomy:"

// Cache decorates a core.Taxonomy. Only hits are cached; a name that does
// not resolve is asked again on the next lookup so newly created terms are
// found without waiting for the TTL.
type Cache struct {
	next   core.Taxonomy
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ core.Taxonomy = (*Cache)(nil)

// New wraps next. A nil client disables caching.
func New(next core.Taxonomy, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{next: next, client: client, ttl: ttl, logger: logger}
}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Available reports whether lookups go through Redis.
func (c *Cache) Available() bool {
	return c.client != nil
}

func termKey(kind, taxonomy, value string) string {
	return keyPrefix + "term:" + kind + ":" + taxonomy + ":" + value
}

func vocabKey() string {
	return keyPrefix + "vocabularies"
}

// TermByName implements core.Taxonomy. Names match case-insensitively, so
// the key is lower-cased.
func (c *Cache) TermByName(ctx context.Context, taxonomy, name string) (*core.Term, error) {
	key := termKey("name", taxonomy, strings.ToLower(strings.TrimSpace(name)))
	return c.term(ctx, key, func() (*core.Term, error) {
		return c.next.TermByName(ctx, taxonomy, name)
	})
}

// TermBySlug implements core.Taxonomy.
func (c *Cache) TermBySlug(ctx context.Context, taxonomy, slug string) (*core.Term, error) {
	key := termKey("slug", taxonomy, slug)
	return c.term(ctx, key, func() (*core.Term, error) {
		return c.next.TermBySlug(ctx, taxonomy, slug)
	})
}

func (c *Cache) term(ctx context.Context, key string, load func() (*core.Term, error)) (*core.Term, error) {
	var cached core.Term
	if c.get(ctx, key, &cached) {
		return &cached, nil
	}

	term, err := load()
	if err != nil || term == nil {
		return term, err
	}
	c.set(ctx, key, term)
	return term, nil
}

// AttributeVocabularies implements core.Taxonomy.
func (c *Cache) AttributeVocabularies(ctx context.Context) ([]core.AttributeVocabulary, error) {
	var cached []core.AttributeVocabulary
	if c.get(ctx, vocabKey(), &cached) {
		return cached, nil
	}

	vocabs, err := c.next.AttributeVocabularies(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, vocabKey(), vocabs)
	return vocabs, nil
}

// Invalidate drops every cached entry. Call it after terms are renamed or
// removed outside the import path.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c.client == nil {
		return nil
	}

	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// get reports a hit. Redis failures count as misses.
func (c *Cache) get(ctx context.Context, key string, dst any) bool {
	if c.client == nil {
		return false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.logger.Warn("taxonomy cache read failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("taxonomy cache entry unreadable", "key", key, "error", err)
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, v any) {
	if c.client == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("taxonomy cache write failed", "key", key, "error", err)
	}
}
