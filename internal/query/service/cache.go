// Package service wires SearchAlgorithm and a FieldIndices registry into
// an HTTP surface: a Redis-backed result cache with singleflight
// deduplication (cache.go) and the request handler itself (handler.go).
package service

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/fieldsearch/queryengine/internal/query/algorithm"
	"github.com/fieldsearch/queryengine/pkg/config"
	pkgredis "github.com/fieldsearch/queryengine/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "search:"

// QueryCache deduplicates identical in-flight searches via singleflight
// and caches completed results in Redis, keyed by index name, query
// text, $param substitution table, and limit.
type QueryCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func New(client *pkgredis.Client, cfg config.RedisConfig) *QueryCache {
	return &QueryCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, indexName, query string, params map[string][]float64, limit int) (*algorithm.SearchResult, bool) {
	key := c.buildKey(indexName, query, params, limit)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if pkgredis.IsNilError(err) {
			c.misses.Add(1)
			return nil, false
		}
		c.logger.Error("cache get failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	var result algorithm.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "err", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "index", indexName, "query", query, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, indexName, query string, params map[string][]float64, limit int, result *algorithm.SearchResult) {
	key := c.buildKey(indexName, query, params, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns a cached result if present, otherwise computes it
// via computeFn (deduplicating concurrent identical requests) and caches
// the outcome before returning.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	indexName, query string,
	params map[string][]float64,
	limit int,
	computeFn func() (*algorithm.SearchResult, error),
) (*algorithm.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, indexName, query, params, limit); ok {
		return result, true, nil
	}
	key := c.buildKey(indexName, query, params, limit)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.Get(ctx, indexName, query, params, limit); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, indexName, query, params, limit, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*algorithm.SearchResult), false, nil
}

// Invalidate drops every cached search result.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	pattern := keyPrefix + "*"
	deleted, err := c.client.FlushByPattern(ctx, pattern)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) buildKey(indexName, query string, params map[string][]float64, limit int) string {
	paramsJSON, _ := json.Marshal(params)
	raw := fmt.Sprintf("%s|%s|%s|limit=%d", indexName, query, paramsJSON, limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
