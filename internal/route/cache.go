package route

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"flightbooker/pkg/cache"
	"flightbooker/pkg/logger"
)

const versionKey = "route:search:version"

// SearchCache stores search results under the current inventory version.
// Bumping the version orphans every cached entry at once; the old entries
// expire through their TTL.
type SearchCache struct {
	cache  cache.Cache
	ttl    time.Duration
	logger logger.Client
}

func NewSearchCache(c cache.Cache, ttlMinutes int, l logger.Client) *SearchCache {
	return &SearchCache{
		cache:  c,
		ttl:    time.Duration(ttlMinutes) * time.Minute,
		logger: l,
	}
}

func (sc *SearchCache) version(ctx context.Context) int64 {
	raw, err := sc.cache.Get(ctx, versionKey)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			sc.logger.Warn("search_cache_version_unavailable", logger.Err(err))
		}
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// Key builds a deterministic key from the criteria. Sorting is not part of it.
func (sc *SearchCache) Key(ctx context.Context, cr Criteria) string {
	cabin := "any"
	if cr.CabinClass != nil {
		cabin = strconv.Itoa(*cr.CabinClass)
	}
	returnDay := ""
	if cr.IsRoundTrip {
		returnDay = cr.ReturnDay.Format(dateLayout)
	}
	raw := fmt.Sprintf("route:%s:%s:%s:%t:%s:%d:%t:%s",
		cr.DepartureAirportCode,
		cr.ArrivalAirportCode,
		cr.DepartureDay.Format(dateLayout),
		cr.IsRoundTrip,
		returnDay,
		cr.Seats,
		cr.DirectOnly,
		cabin,
	)

	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("route:search:v%d:%x", sc.version(ctx), hash[:16])
}

// Get returns cached results. Any cache failure is treated as a miss.
func (sc *SearchCache) Get(ctx context.Context, key string) ([]SearchResult, bool) {
	cached, err := sc.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			sc.logger.Warn("search_cache_get_failed", logger.Field{Key: "cache_key", Value: key}, logger.Err(err))
		}
		return nil, false
	}

	var results []SearchResult
	if err := json.Unmarshal([]byte(cached), &results); err != nil {
		sc.logger.Error("search_cache_decode_failed", logger.Field{Key: "cache_key", Value: key}, logger.Err(err))
		return nil, false
	}
	return results, true
}

// Store writes results in the background so the caller does not wait on Redis.
func (sc *SearchCache) Store(key string, results []SearchResult) {
	go func() {
		payload, err := json.Marshal(results)
		if err != nil {
			sc.logger.Error("search_cache_encode_failed", logger.Field{Key: "cache_key", Value: key}, logger.Err(err))
			return
		}
		if err := sc.cache.Set(context.Background(), key, string(payload), sc.ttl); err != nil {
			sc.logger.Error("search_cache_set_failed", logger.Field{Key: "cache_key", Value: key}, logger.Err(err))
			return
		}
		sc.logger.Debug("search_cache_stored",
			logger.Field{Key: "cache_key", Value: key},
			logger.Field{Key: "ttl", Value: sc.ttl},
		)
	}()
}

// Invalidate bumps the inventory version after any change to routes, flights or seats.
func (sc *SearchCache) Invalidate(ctx context.Context) {
	v, err := sc.cache.Incr(ctx, versionKey)
	if err != nil {
		sc.logger.Error("search_cache_invalidate_failed", logger.Err(err))
		return
	}
	sc.logger.Debug("search_cache_invalidated", logger.Field{Key: "version", Value: v})
}
