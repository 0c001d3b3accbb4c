package cache

import (
	"context"
	"encoding/json"
	"time"

	"chipstream/logger"
	"chipstream/model"

	"github.com/redis/go-redis/v9"
)

// catalogKey 是歌曲库缓存在Redis中的键
const catalogKey = "chipstream:catalog"

// catalogTTL 缓存过期时间，写操作会主动失效，这里只是兜底
const catalogTTL = 10 * time.Minute

// CatalogCache caches the serialized catalog in Redis so hot read paths
// (list, search, random) skip the file load. Set and Invalidate must both
// run inside the repository's critical section, otherwise a reader can
// write a stale snapshot back after a writer invalidated it. A nil
// *CatalogCache is valid and disables caching entirely.
type CatalogCache struct {
	rdb *redis.Client
}

// NewCatalogCache 创建歌曲库缓存
func NewCatalogCache(rdb *redis.Client) *CatalogCache {
	if rdb == nil {
		return nil
	}
	return &CatalogCache{rdb: rdb}
}

// Get 获取缓存的歌曲列表，未命中或反序列化失败时返回 false
func (c *CatalogCache) Get(ctx context.Context) ([]*model.Song, bool) {
	if c == nil {
		return nil, false
	}

	data, err := c.rdb.Get(ctx, catalogKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("读取歌曲库缓存失败", logger.ErrorField(err))
		}
		return nil, false
	}

	var songs []*model.Song
	if err := json.Unmarshal(data, &songs); err != nil {
		logger.Warn("歌曲库缓存反序列化失败，忽略缓存", logger.ErrorField(err))
		return nil, false
	}
	return songs, true
}

// Set 写入歌曲列表缓存，失败只记录日志
func (c *CatalogCache) Set(ctx context.Context, songs []*model.Song) {
	if c == nil {
		return
	}

	data, err := json.Marshal(songs)
	if err != nil {
		logger.Warn("歌曲库缓存序列化失败", logger.ErrorField(err))
		return
	}
	if err := c.rdb.Set(ctx, catalogKey, data, catalogTTL).Err(); err != nil {
		logger.Warn("写入歌曲库缓存失败", logger.ErrorField(err))
	}
}

// Invalidate 删除歌曲库缓存，任何写操作之后必须调用
func (c *CatalogCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}

	if err := c.rdb.Del(ctx, catalogKey).Err(); err != nil {
		logger.Warn("失效歌曲库缓存失败", logger.ErrorField(err))
	}
}
