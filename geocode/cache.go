package geocode

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"go-parkspot/types"
)

const DefaultCacheTTL = time.Hour

// Cache stores search results by normalized query.
type Cache interface {
	Get(ctx context.Context, query string) ([]types.Place, bool)
	Set(ctx context.Context, query string, places []types.Place)
}

// OpenRedis returns nil when addr is empty so the cache stays optional.
func OpenRedis(addr, pass string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}

// RedisCache keeps results as JSON under geocode:<query>. Redis failures
// count as misses; failed writes are logged at debug.
type RedisCache struct {
	rc  *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewRedisCache(rc *redis.Client, ttl time.Duration, log *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{rc: rc, ttl: ttl, log: log}
}

func cacheKey(query string) string {
	return "geocode:" + normalizeQuery(query)
}

func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

func (c *RedisCache) Get(ctx context.Context, query string) ([]types.Place, bool) {
	s, err := c.rc.Get(ctx, cacheKey(query)).Result()
	if err != nil || s == "" {
		return nil, false
	}
	var places []types.Place
	if err := json.Unmarshal([]byte(s), &places); err != nil {
		return nil, false
	}
	return places, true
}

func (c *RedisCache) Set(ctx context.Context, query string, places []types.Place) {
	b, err := json.Marshal(places)
	if err != nil {
		c.log.Debug("geocode cache encode failed", "query", query, "err", err)
		return
	}
	if err := c.rc.Set(ctx, cacheKey(query), string(b), c.ttl).Err(); err != nil {
		c.log.Debug("geocode cache write failed", "query", query, "err", err)
	}
}
