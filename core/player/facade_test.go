package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"QueueFM/core/persist"
	"QueueFM/core/playback"
	"QueueFM/core/queue"
	"QueueFM/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCatalog struct {
	songs    map[string]model.Song
	entities map[string][]string
}

func newMemCatalog() *memCatalog {
	c := &memCatalog{
		songs: map[string]model.Song{},
		entities: map[string][]string{
			"album/7":    {"a1", "a2", "a3"},
			"playlist/9": {"p1", "p2"},
		},
	}
	for _, id := range []string{"a1", "a2", "a3", "p1", "p2", "s1"} {
		c.songs[id] = model.Song{ID: id, Title: id, Duration: 180, AudioURL: "http://audio/" + id}
	}
	return c
}

func (c *memCatalog) ResolveSongs(ctx context.Context, ids []string) ([]model.Song, error) {
	var out []model.Song
	for _, id := range ids {
		if s, ok := c.songs[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *memCatalog) ResolveSongsForEntity(ctx context.Context, kind model.EntityType, id string) ([]model.Song, error) {
	ids, ok := c.entities[string(kind)+"/"+id]
	if !ok {
		return nil, errors.New("not found")
	}
	return c.ResolveSongs(ctx, ids)
}

func newFacade(t *testing.T, kv persist.KVStore) *Facade {
	t.Helper()
	prim := playback.NewNullPrimitive()
	store := queue.NewStore(prim, queue.Options{Volume: 1})
	go store.Run()
	t.Cleanup(func() {
		store.Stop()
		prim.Close()
	})

	cat := newMemCatalog()
	return New(store, cat, persist.NewManager(kv, cat, persist.Options{}))
}

func waitPlaying(t *testing.T, f *Facade, id string) {
	t.Helper()
	require.Eventually(t, func() bool {
		st := f.State()
		return st.Status == model.StatusPlaying && st.CurrentSong != nil && st.CurrentSong.ID == id
	}, 2*time.Second, 5*time.Millisecond)
}

func TestFacade_PlayEntityRecordsSource(t *testing.T) {
	f := newFacade(t, persist.NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, f.PlayEntity(ctx, model.EntityAlbum, "7", 1))
	waitPlaying(t, f, "a2")
	assert.True(t, f.IsSourcePlaying(model.EntityAlbum, "7"))
	assert.False(t, f.IsSourcePlaying(model.EntityPlaylist, "7"))

	err := f.PlayEntity(ctx, "genre", "7", 0)
	assert.ErrorIs(t, err, queue.ErrInvalidOperation)

	err = f.PlayEntity(ctx, model.EntityPlaylist, "404", 0)
	assert.ErrorContains(t, err, "not found")
}

func TestFacade_QueueListNextKeepsOrder(t *testing.T) {
	f := newFacade(t, persist.NewMemoryStore())
	ctx := context.Background()

	song, _ := f.ResolveSongs(ctx, []string{"s1"})
	require.NoError(t, f.PlaySong(ctx, song[0]))
	waitPlaying(t, f, "s1")

	require.NoError(t, f.QueueListNext(ctx, model.EntityPlaylist, "9"))
	require.NoError(t, f.QueueListLast(ctx, model.EntityAlbum, "7"))

	var got []string
	for _, it := range f.State().Queue {
		got = append(got, it.Song.ID)
	}
	assert.Equal(t, []string{"s1", "p1", "p2", "a1", "a2", "a3"}, got)
	assert.True(t, f.State().HasNextSong)
}

func TestFacade_ResolveSongsKeepsRequestOrder(t *testing.T) {
	f := newFacade(t, persist.NewMemoryStore())

	songs, err := f.ResolveSongs(context.Background(), []string{"p2", "missing", "a1"})
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, "p2", songs[0].ID)
	assert.Equal(t, "a1", songs[1].ID)
}

func TestFacade_SaveAndRestore(t *testing.T) {
	kv := persist.NewMemoryStore()
	ctx := context.Background()

	first := newFacade(t, kv)
	require.NoError(t, first.PlayEntity(ctx, model.EntityAlbum, "7", 2))
	waitPlaying(t, first, "a3")
	require.NoError(t, first.SetVolume(ctx, 0.25))
	require.NoError(t, first.SaveState(ctx))

	second := newFacade(t, kv)
	require.True(t, second.RestoreState(ctx))

	st := second.State()
	assert.Equal(t, model.StatusPaused, st.Status)
	assert.False(t, st.IsPlaying)
	require.NotNil(t, st.CurrentSong)
	assert.Equal(t, "a3", st.CurrentSong.ID)
	assert.Len(t, st.Queue, 3)
	assert.Equal(t, 0.25, st.Volume)

	require.NoError(t, second.Resume(ctx))
	waitPlaying(t, second, "a3")

	require.NoError(t, second.ClearPersistedState(ctx))
	third := newFacade(t, kv)
	assert.False(t, third.RestoreState(ctx))
}

func TestFacade_StopClearsQueue(t *testing.T) {
	f := newFacade(t, persist.NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, f.PlayEntity(ctx, model.EntityPlaylist, "9", 0))
	waitPlaying(t, f, "p1")

	require.NoError(t, f.Stop(ctx))
	st := f.State()
	assert.Equal(t, model.StatusEmpty, st.Status)
	assert.Empty(t, st.Queue)
	assert.Nil(t, st.CurrentSong)

	assert.ErrorIs(t, f.Next(ctx), queue.ErrInvalidOperation)
}
