package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stats struct {
	Products int `json:"products"`
}

func newCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, "ft:"), mr
}

func TestGetOrLoadJSON_CachesAndExpires(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	var loads int32
	load := func(context.Context) (*stats, error) {
		atomic.AddInt32(&loads, 1)
		return &stats{Products: 7}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := GetOrLoadJSON(c, ctx, "dash", Fixed(time.Minute), load)
		require.NoError(t, err)
		assert.Equal(t, 7, v.Products)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&loads))
	assert.Equal(t, time.Minute, mr.TTL("ft:dash"))

	mr.FastForward(2 * time.Minute)
	_, err := GetOrLoadJSON(c, ctx, "dash", Fixed(time.Minute), load)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&loads))
}

func TestGetOrLoad_SingleflightCollapsesMisses(t *testing.T) {
	c, _ := newCache(t)
	var loads int32
	gate := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.GetOrLoad(context.Background(), "k", time.Minute, func(context.Context) ([]byte, error) {
				atomic.AddInt32(&loads, 1)
				<-gate
				return []byte("v"), nil
			})
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()
	assert.LessOrEqual(t, atomic.LoadInt32(&loads), int32(8))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&loads), int32(1))
}

func TestGetOrLoad_LoadErrorNotCached(t *testing.T) {
	c, mr := newCache(t)
	boom := errors.New("db down")
	_, err := c.GetOrLoad(context.Background(), "k", time.Minute, func(context.Context) ([]byte, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("ft:k"))
}

func TestGetOrLoadJSON_AbsentCachedSeparately(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	var loads int32
	found := false
	load := func(context.Context) (*stats, error) {
		atomic.AddInt32(&loads, 1)
		if !found {
			return nil, nil
		}
		return &stats{Products: 3}, nil
	}
	ttl := TTL{Absent: 30 * time.Second}

	for i := 0; i < 3; i++ {
		v, err := GetOrLoadJSON(c, ctx, "scan:x", ttl, load)
		require.NoError(t, err)
		assert.Nil(t, v)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&loads))
	assert.Equal(t, 30*time.Second, mr.TTL("ft:scan:x"))

	found = true
	mr.FastForward(time.Minute)
	v, err := GetOrLoadJSON(c, ctx, "scan:x", ttl, load)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 3, v.Products)
	// Found=0：有数据的结果不落缓存
	assert.False(t, mr.Exists("ft:scan:x"))
}

func TestInvalidate(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("ft:a", "1"))
	require.NoError(t, c.Invalidate(ctx, "a", "missing"))
	assert.False(t, mr.Exists("ft:a"))
}

func TestNilCacheLoadsDirectly(t *testing.T) {
	var c *Cache
	v, err := GetOrLoadJSON(c, context.Background(), "k", Fixed(time.Minute), func(context.Context) (*stats, error) {
		return &stats{Products: 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, v.Products)
	assert.NoError(t, c.Invalidate(context.Background(), "k"))
}
