package modelstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wyfcoding/randforest/config"
	"github.com/wyfcoding/randforest/metrics"
)

const defaultLifeWindow = 10 * time.Minute

// BlobCache 使用 allegro/bigcache 在进程内缓存编码后的模型数据。
// bigcache 对所有条目使用统一的过期时间。
type BlobCache struct {
	cache  *bigcache.BigCache
	hits   prometheus.Counter
	misses prometheus.Counter
}

// NewBlobCache 按配置创建缓存。m 为 nil 时不采集命中率。
func NewBlobCache(cfg config.BigCacheConfig, m *metrics.Metrics) (*BlobCache, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = defaultLifeWindow
	}
	bc := bigcache.DefaultConfig(life)
	if cfg.Shards > 0 {
		bc.Shards = cfg.Shards
	}
	if cfg.MaxEntrySize > 0 {
		bc.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.CleanWindow > 0 {
		bc.CleanWindow = cfg.CleanWindow
	}
	bc.HardMaxCacheSize = cfg.HardMaxCacheSize
	bc.Verbose = cfg.Verbose

	cache, err := bigcache.New(context.Background(), bc)
	if err != nil {
		return nil, fmt.Errorf("init bigcache: %w", err)
	}

	c := &BlobCache{cache: cache}
	if m != nil {
		lookups := m.NewCounterVec(prometheus.CounterOpts{
			Name: "model_cache_lookups_total",
			Help: "Model blob cache lookups, by result",
		}, []string{"result"})
		c.hits = lookups.WithLabelValues("hit")
		c.misses = lookups.WithLabelValues("miss")
	}
	return c, nil
}

// Get 返回缓存的数据，未命中时 ok 为 false。
func (c *BlobCache) Get(key string) (data []byte, ok bool) {
	data, err := c.cache.Get(key)
	if err != nil {
		if c.misses != nil {
			c.misses.Inc()
		}
		return nil, false
	}
	if c.hits != nil {
		c.hits.Inc()
	}
	return data, true
}

// Set 缓存数据。
func (c *BlobCache) Set(key string, data []byte) error {
	return c.cache.Set(key, data)
}

// Delete 删除缓存项，不存在时不报错。
func (c *BlobCache) Delete(key string) error {
	if err := c.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return err
	}
	return nil
}

// Len 返回缓存项数量。
func (c *BlobCache) Len() int {
	return c.cache.Len()
}

// Close 释放缓存占用的资源。
func (c *BlobCache) Close() error {
	return c.cache.Close()
}
