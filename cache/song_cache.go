package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"QueueFM/logger"
	"QueueFM/model"

	"github.com/go-redis/redis/v8"
	"github.com/samber/lo"
)

// SongSource 被缓存的歌曲查询服务
type SongSource interface {
	ResolveSongs(ctx context.Context, ids []string) ([]model.Song, error)
	ResolveSongsForEntity(ctx context.Context, kind model.EntityType, id string) ([]model.Song, error)
}

// SongCache 在 Redis 中缓存按 ID 查询到的歌曲。
// TTL 需要短于音频地址的签名有效期。
type SongCache struct {
	client redis.Cmdable
	source SongSource
	ttl    time.Duration
}

func NewSongCache(client redis.Cmdable, source SongSource, ttl time.Duration) *SongCache {
	return &SongCache{client: client, source: source, ttl: ttl}
}

// GetSongKey 歌曲缓存键
func GetSongKey(id string) string {
	return fmt.Sprintf("queuefm:song:%s", id)
}

// ResolveSongs 先查缓存，未命中的再查询后端并回填
func (c *SongCache) ResolveSongs(ctx context.Context, ids []string) ([]model.Song, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := lo.Map(ids, func(id string, _ int) string { return GetSongKey(id) })
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.Warn("读取歌曲缓存失败，直接查询", logger.ErrorField(err))
		values = make([]interface{}, len(ids))
	}

	found := make(map[string]model.Song, len(ids))
	var missing []string
	for i, id := range ids {
		raw, ok := values[i].(string)
		if !ok {
			missing = append(missing, id)
			continue
		}
		var song model.Song
		if err := json.Unmarshal([]byte(raw), &song); err != nil {
			missing = append(missing, id)
			continue
		}
		found[id] = song
	}

	if len(missing) > 0 {
		songs, err := c.source.ResolveSongs(ctx, lo.Uniq(missing))
		if err != nil {
			return nil, err
		}
		c.store(ctx, songs)
		for _, s := range songs {
			found[s.ID] = s
		}
	}

	out := make([]model.Song, 0, len(found))
	for _, id := range lo.Uniq(ids) {
		if s, ok := found[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// ResolveSongsForEntity 整体查询不缓存列表，只回填其中的歌曲
func (c *SongCache) ResolveSongsForEntity(ctx context.Context, kind model.EntityType, id string) ([]model.Song, error) {
	songs, err := c.source.ResolveSongsForEntity(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, songs)
	return songs, nil
}

func (c *SongCache) store(ctx context.Context, songs []model.Song) {
	if len(songs) == 0 {
		return
	}
	pipe := c.client.Pipeline()
	for _, s := range songs {
		data, err := json.Marshal(s)
		if err != nil {
			continue
		}
		pipe.Set(ctx, GetSongKey(s.ID), data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("写入歌曲缓存失败", logger.ErrorField(err))
	}
}
