package cache

import (
	"context"
	"testing"
	"time"

	"QueueFM/core/persist"
	"QueueFM/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStateStore(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisStateStore(client)
	ctx := context.Background()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, persist.ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", []byte(`{"a":1}`), time.Hour))
	data, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))
	assert.Equal(t, time.Hour, mr.TTL("k"))

	mr.FastForward(time.Hour + time.Second)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, persist.ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, s.Delete(ctx, "k"))
	assert.False(t, mr.Exists("k"))
}

// 快照经 Redis 保存后可以恢复
func TestRedisStateStoreWithManager(t *testing.T) {
	_, client := newTestRedis(t)
	m := persist.NewManager(NewRedisStateStore(client), nil, persist.Options{})
	ctx := context.Background()

	song := model.Song{ID: "1"}
	st := model.AudioState{
		CurrentSong:  &song,
		CurrentIndex: 0,
		Queue:        []model.QueueItem{{Song: song, QueueID: "q1"}},
		Volume:       0.7,
	}
	require.NoError(t, m.Save(ctx, st))

	rec, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", *rec.CurrentSongID)
	assert.Equal(t, 0.7, rec.Volume)
}

func TestCheckRedis(t *testing.T) {
	mr, client := newTestRedis(t)
	require.NoError(t, CheckRedis(context.Background(), client))
	assert.False(t, mr.Exists("queuefm:healthcheck"))

	assert.Error(t, CheckRedis(context.Background(), nil))
}

type countingSource struct {
	songs map[string]model.Song
	calls [][]string
}

func (s *countingSource) ResolveSongs(ctx context.Context, ids []string) ([]model.Song, error) {
	s.calls = append(s.calls, ids)
	var out []model.Song
	for _, id := range ids {
		if song, ok := s.songs[id]; ok {
			out = append(out, song)
		}
	}
	return out, nil
}

func (s *countingSource) ResolveSongsForEntity(ctx context.Context, kind model.EntityType, id string) ([]model.Song, error) {
	return []model.Song{s.songs["a"], s.songs["b"]}, nil
}

func TestSongCache(t *testing.T) {
	mr, client := newTestRedis(t)
	src := &countingSource{songs: map[string]model.Song{
		"a": {ID: "a", Title: "A"},
		"b": {ID: "b", Title: "B"},
		"c": {ID: "c", Title: "C"},
	}}
	c := NewSongCache(client, src, 10*time.Minute)
	ctx := context.Background()

	songs, err := c.ResolveSongs(ctx, []string{"a", "missing"})
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, "A", songs[0].Title)
	assert.True(t, mr.Exists(GetSongKey("a")))
	assert.Equal(t, 10*time.Minute, mr.TTL(GetSongKey("a")))

	songs, err = c.ResolveSongs(ctx, []string{"a", "c"})
	require.NoError(t, err)
	assert.Len(t, songs, 2)
	require.Len(t, src.calls, 2)
	assert.Equal(t, []string{"c"}, src.calls[1])

	_, err = c.ResolveSongsForEntity(ctx, model.EntityAlbum, "7")
	require.NoError(t, err)
	assert.True(t, mr.Exists(GetSongKey("b")))

	songs, err = c.ResolveSongs(ctx, []string{"b"})
	require.NoError(t, err)
	assert.Len(t, songs, 1)
	assert.Len(t, src.calls, 2)
}
