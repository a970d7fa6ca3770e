package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/pcforge/pcforge-backend/pkg/indicador"
	"github.com/pcforge/pcforge-backend/pkg/logger"
	"github.com/pcforge/pcforge-backend/pkg/redis"
)

var ErrRateNotAvailable = errors.New("exchange rate not available")

const dollarRateCacheKey = "indicator:dollar"

// ExternalRateAPI is the upstream indicator source
type ExternalRateAPI interface {
	FetchDollarRate(ctx context.Context) (*indicador.Rate, error)
}

// RateCache stores the latest rate snapshot with a TTL
type RateCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RateService serves the USD exchange rate used to display prices in
// dollars. Reads go through the cache; the upstream API is only hit on
// a miss or a scheduled refresh.
type RateService interface {
	GetDollarRate(ctx context.Context) (*indicador.Rate, error)
	RefreshDollarRate(ctx context.Context) error
}

type rateService struct {
	externalAPI ExternalRateAPI
	cache       RateCache
	cacheTTL    time.Duration
}

func NewRateService(externalAPI ExternalRateAPI, cache RateCache, cacheTTL time.Duration) RateService {
	return &rateService{
		externalAPI: externalAPI,
		cache:       cache,
		cacheTTL:    cacheTTL,
	}
}

func (s *rateService) GetDollarRate(ctx context.Context) (*indicador.Rate, error) {
	cached, found, err := s.cache.Get(ctx, dollarRateCacheKey)
	if err != nil {
		logger.Warn("Rate cache read failed, falling through to API", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if found {
		var rate indicador.Rate
		if err := json.Unmarshal([]byte(cached), &rate); err == nil {
			return &rate, nil
		}
		logger.Warn("Discarding malformed cached rate", map[string]interface{}{
			"value": cached,
		})
	}

	rate, err := s.fetchAndCache(ctx)
	if err != nil {
		return nil, ErrRateNotAvailable
	}
	return rate, nil
}

// RefreshDollarRate forces a fetch from the upstream API, replacing the
// cached snapshot. Used by the scheduler.
func (s *rateService) RefreshDollarRate(ctx context.Context) error {
	_, err := s.fetchAndCache(ctx)
	return err
}

func (s *rateService) fetchAndCache(ctx context.Context) (*indicador.Rate, error) {
	rate, err := s.externalAPI.FetchDollarRate(ctx)
	if err != nil {
		logger.Error("Failed to fetch dollar rate from upstream", err, nil)
		return nil, err
	}

	encoded, err := json.Marshal(rate)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, dollarRateCacheKey, string(encoded), s.cacheTTL); err != nil {
		// Serving the fresh value matters more than caching it.
		logger.Warn("Failed to cache dollar rate", map[string]interface{}{
			"error": err.Error(),
		})
	}

	logger.Info("Dollar rate refreshed", map[string]interface{}{
		"value": rate.Value,
		"date":  rate.Date.Format(time.RFC3339),
	})
	return rate, nil
}

// RedisRateCache is the production RateCache backed by the shared Redis
// client.
type RedisRateCache struct{}

func (RedisRateCache) Get(ctx context.Context, key string) (string, bool, error) {
	return redis.GetCachedString(ctx, key)
}

func (RedisRateCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return redis.CacheString(ctx, key, value, ttl)
}
