// Package cache is the optional Redis read-through layer in front of
// internal/store's domain_cache/geo_cache tables (spec.md §4.5 tier2).
// It implements classifier.GeoCacheStore directly, so internal/classifier
// never knows whether its reads are hitting Redis or falling straight
// through to SQLite — grounded on BbangMxn-worker's pkg/cache RedisCache,
// generalized here into a read-through wrapper over an existing store
// rather than a standalone key/value cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sentryd/sentryd/internal/classifier"
	"github.com/sentryd/sentryd/internal/store"
)

// Backing is the subset of internal/store.Store the cache falls back to
// and writes through to — the authoritative copy either way.
type Backing interface {
	GetGeoCache(ip string) (*store.GeoCacheEntry, error)
	PutGeoCache(e store.GeoCacheEntry) error
	GetDomainCache(domain string) (*store.DomainCacheEntry, error)
	PutDomainCache(e store.DomainCacheEntry) error
}

// Cache is a read-through wrapper: reads check Redis first and fall
// back to the SQLite store on a miss or a Redis error, repopulating
// Redis from the fallback; writes go to SQLite then best-effort to
// Redis. A nil *redis.Client turns every operation into a direct
// passthrough to the backing store, so callers can wire this in
// unconditionally and let config.RedisConfig.Address decide whether
// Redis is actually in the loop.
type Cache struct {
	redis   *redis.Client
	backing Backing
	ttl     time.Duration
	logger  *slog.Logger
}

// New builds a Cache. client may be nil, in which case every call is a
// direct passthrough to backing.
func New(client *redis.Client, backing Backing, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{redis: client, backing: backing, ttl: ttl, logger: logger}
}

func geoKey(ip string) string        { return "sentryd:geo:" + ip }
func domainKey(domain string) string { return "sentryd:domain:" + domain }

// GetGeoCache implements classifier.GeoCacheStore.
func (c *Cache) GetGeoCache(ip string) (*classifier.GeoCacheEntry, error) {
	if c.redis != nil {
		var hit store.GeoCacheEntry
		if ok := c.getJSON(geoKey(ip), &hit); ok {
			return geoToClassifier(hit), nil
		}
	}

	entry, err := c.backing.GetGeoCache(ip)
	if err != nil || entry == nil {
		return nil, err
	}
	c.setJSON(geoKey(ip), *entry)
	return geoToClassifier(*entry), nil
}

// PutGeoCache implements classifier.GeoCacheStore.
func (c *Cache) PutGeoCache(e classifier.GeoCacheEntry) error {
	row := store.GeoCacheEntry{
		IP: e.IP, CountryCode: e.CountryCode, CountryName: e.CountryName,
		RiskScore: e.RiskScore, LastAnalysedAt: e.CachedAt,
	}
	if err := c.backing.PutGeoCache(row); err != nil {
		return err
	}
	c.setJSON(geoKey(e.IP), row)
	return nil
}

// GetDomainCache implements classifier.GeoCacheStore.
func (c *Cache) GetDomainCache(domain string) (*classifier.DomainCacheEntry, error) {
	if c.redis != nil {
		var hit store.DomainCacheEntry
		if ok := c.getJSON(domainKey(domain), &hit); ok {
			return domainToClassifier(hit), nil
		}
	}

	entry, err := c.backing.GetDomainCache(domain)
	if err != nil || entry == nil {
		return nil, err
	}
	c.setJSON(domainKey(domain), *entry)
	return domainToClassifier(*entry), nil
}

// PutDomainCache implements classifier.GeoCacheStore.
func (c *Cache) PutDomainCache(e classifier.DomainCacheEntry) error {
	row := store.DomainCacheEntry{
		Domain: e.Domain, CountryCode: e.CountryCode,
		RiskScore: e.RiskScore, LastAnalysedAt: e.CachedAt,
	}
	if err := c.backing.PutDomainCache(row); err != nil {
		return err
	}
	c.setJSON(domainKey(e.Domain), row)
	return nil
}

func (c *Cache) getJSON(key string, dest interface{}) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	data, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis cache read failed, falling back to store", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		c.logger.Warn("redis cache entry corrupt, falling back to store", "key", key, "error", err)
		return false
	}
	return true
}

func (c *Cache) setJSON(key string, value interface{}) {
	if c.redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("redis cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("redis cache write failed", "key", key, "error", err)
	}
}

func geoToClassifier(e store.GeoCacheEntry) *classifier.GeoCacheEntry {
	return &classifier.GeoCacheEntry{
		IP: e.IP, CountryCode: e.CountryCode, CountryName: e.CountryName,
		RiskScore: e.RiskScore, CachedAt: e.LastAnalysedAt,
	}
}

func domainToClassifier(e store.DomainCacheEntry) *classifier.DomainCacheEntry {
	return &classifier.DomainCacheEntry{
		Domain: e.Domain, CountryCode: e.CountryCode,
		RiskScore: e.RiskScore, CachedAt: e.LastAnalysedAt,
	}
}
