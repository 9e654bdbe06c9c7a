package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/redis/go-redis/v9"

	"site-report/internal/logger"
	"site-report/internal/metrics"
	"site-report/internal/style"
)

// 色块 Redis 键前缀
const swatchKeyPrefix = "swatch:"

// 文档注释：色块缓存（进程内 LRU + 可选 Redis）
// 背景：先查本地 LRU，再查 Redis，均未命中时栅格化并回填两级缓存；Redis 故障只记录日志，不影响返回。
// 约束：rc 为 nil 时仅使用本地缓存；ttl<=0 时 Redis 条目不过期。
type SwatchCache struct {
	local *LRU
	rc    *redis.Client
	ttl   time.Duration
}

func NewSwatchCache(rc *redis.Client, capacity int, ttl time.Duration) *SwatchCache {
	if ttl < 0 {
		ttl = 0
	}
	return &SwatchCache{local: NewLRU(capacity, ttl), rc: rc, ttl: ttl}
}

// Key：解析后样式的指纹（FNV64a），同一样式在不同要素间共享色块
func Key(st style.Style, size int) string {
	b, _ := json.Marshal(st)
	h := fnv.New64a()
	h.Write([]byte(st.Kind().String()))
	h.Write(b)
	return fmt.Sprintf("%016x-%d", h.Sum64(), size)
}

// Get：返回色块 PNG 字节
func (c *SwatchCache) Get(ctx context.Context, st style.Style, size int) ([]byte, error) {
	if size <= 0 {
		size = SwatchSize
	}
	k := Key(st, size)
	if b, ok := c.local.Get(k); ok {
		metrics.SwatchCacheTotal.WithLabelValues("local").Inc()
		return b, nil
	}
	if c.rc != nil {
		b, err := c.rc.Get(ctx, swatchKeyPrefix+k).Bytes()
		switch {
		case err == nil:
			metrics.SwatchCacheTotal.WithLabelValues("redis").Inc()
			c.local.Set(k, b)
			return b, nil
		case errors.Is(err, redis.Nil):
		default:
			logger.L().Warn("swatch_redis_get_error", "key", k, "error", xerrors.New(err))
		}
	}
	metrics.SwatchCacheTotal.WithLabelValues("miss").Inc()
	b, err := Swatch(st, size)
	if err != nil {
		return nil, err
	}
	c.local.Set(k, b)
	if c.rc != nil {
		if err := c.rc.Set(ctx, swatchKeyPrefix+k, b, c.ttl).Err(); err != nil {
			logger.L().Warn("swatch_redis_set_error", "key", k, "error", xerrors.New(err))
		}
	}
	return b, nil
}
