package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pcforge/pcforge-backend/pkg/indicador"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRateAPI struct {
	rate  *indicador.Rate
	err   error
	calls int
}

func (f *fakeRateAPI) FetchDollarRate(_ context.Context) (*indicador.Rate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rate, nil
}

type memoryRateCache struct {
	values map[string]string
}

func newMemoryRateCache() *memoryRateCache {
	return &memoryRateCache{values: make(map[string]string)}
}

func (c *memoryRateCache) Get(_ context.Context, key string) (string, bool, error) {
	val, ok := c.values[key]
	return val, ok, nil
}

func (c *memoryRateCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.values[key] = value
	return nil
}

func TestRateService_GetDollarRate_FetchesOnMiss(t *testing.T) {
	api := &fakeRateAPI{rate: &indicador.Rate{Value: 945.2, Date: time.Now()}}
	rateService := NewRateService(api, newMemoryRateCache(), time.Hour)

	rate, err := rateService.GetDollarRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 945.2, rate.Value)
	assert.Equal(t, 1, api.calls)
}

func TestRateService_GetDollarRate_ServesFromCache(t *testing.T) {
	api := &fakeRateAPI{rate: &indicador.Rate{Value: 945.2, Date: time.Now()}}
	rateService := NewRateService(api, newMemoryRateCache(), time.Hour)

	_, err := rateService.GetDollarRate(context.Background())
	require.NoError(t, err)

	// Second read hits the cache, not the upstream
	rate, err := rateService.GetDollarRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 945.2, rate.Value)
	assert.Equal(t, 1, api.calls)
}

func TestRateService_GetDollarRate_UpstreamDown(t *testing.T) {
	api := &fakeRateAPI{err: errors.New("connection refused")}
	rateService := NewRateService(api, newMemoryRateCache(), time.Hour)

	_, err := rateService.GetDollarRate(context.Background())
	assert.ErrorIs(t, err, ErrRateNotAvailable)
}

func TestRateService_RefreshDollarRate_ReplacesCachedValue(t *testing.T) {
	api := &fakeRateAPI{rate: &indicador.Rate{Value: 945.2, Date: time.Now()}}
	cache := newMemoryRateCache()
	rateService := NewRateService(api, cache, time.Hour)

	require.NoError(t, rateService.RefreshDollarRate(context.Background()))

	api.rate = &indicador.Rate{Value: 952.8, Date: time.Now()}
	require.NoError(t, rateService.RefreshDollarRate(context.Background()))

	rate, err := rateService.GetDollarRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 952.8, rate.Value)
}
