package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"QueueFM/core/playback"
	"QueueFM/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlayer 可控的播放器：可以让指定地址的加载阻塞或失败
type fakePlayer struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	failing map[string]error
	loads   []string
	current string
	playing bool
	volume  float64
	seeks   []float64
	events  chan playback.Event
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{
		gates:   map[string]chan struct{}{},
		failing: map[string]error{},
		events:  make(chan playback.Event, 16),
	}
}

// block 让 url 的加载阻塞，返回释放函数
func (p *fakePlayer) block(url string) func() {
	gate := make(chan struct{})
	p.mu.Lock()
	p.gates[url] = gate
	p.mu.Unlock()
	return func() { close(gate) }
}

func (p *fakePlayer) fail(url string, err error) {
	p.mu.Lock()
	p.failing[url] = err
	p.mu.Unlock()
}

func (p *fakePlayer) Load(ctx context.Context, url string, _ float64) error {
	p.mu.Lock()
	p.loads = append(p.loads, url)
	gate := p.gates[url]
	err := p.failing[url]
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			<-gate
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.current = url
	p.playing = false
	p.mu.Unlock()
	return nil
}

func (p *fakePlayer) Play(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == "" {
		return playback.ErrNothingLoaded
	}
	p.playing = true
	return nil
}

func (p *fakePlayer) Pause() error {
	p.mu.Lock()
	p.playing = false
	p.mu.Unlock()
	return nil
}

func (p *fakePlayer) Seek(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == "" {
		return playback.ErrNothingLoaded
	}
	p.seeks = append(p.seeks, seconds)
	return nil
}

func (p *fakePlayer) SetVolume(level float64) error {
	p.mu.Lock()
	p.volume = level
	p.mu.Unlock()
	return nil
}

func (p *fakePlayer) Events() <-chan playback.Event { return p.events }

func (p *fakePlayer) Close() error { return nil }

func (p *fakePlayer) isPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func startStore(t *testing.T, p *fakePlayer) *Store {
	t.Helper()
	s := NewStore(p, Options{Volume: 1})
	go s.Run()
	t.Cleanup(s.Stop)
	return s
}

func waitFor(t *testing.T, s *Store, cond func(model.AudioState) bool) model.AudioState {
	t.Helper()
	require.Eventually(t, func() bool { return cond(s.State()) }, 2*time.Second, 5*time.Millisecond)
	return s.State()
}

func playingSong(id string) func(model.AudioState) bool {
	return func(st model.AudioState) bool {
		return st.Status == model.StatusPlaying && st.CurrentSong != nil && st.CurrentSong.ID == id
	}
}

func TestStore_PlayList(t *testing.T) {
	p := newFakePlayer()
	s := startStore(t, p)
	ctx := context.Background()

	require.NoError(t, s.Dispatch(ctx, PlayList{Songs: songs("a", "b")}))
	st := waitFor(t, s, playingSong("a"))
	assert.Equal(t, 0, st.CurrentIndex)
	assert.True(t, st.IsPlaying)
	assert.True(t, p.isPlaying())

	require.NoError(t, s.Dispatch(ctx, NextSong{}))
	waitFor(t, s, playingSong("b"))
}

func TestStore_InvalidOperationLeavesStateUntouched(t *testing.T) {
	s := startStore(t, newFakePlayer())
	ctx := context.Background()

	before := s.State()
	err := s.Dispatch(ctx, PlayList{})
	assert.ErrorIs(t, err, ErrInvalidOperation)
	assert.Equal(t, before, s.State())
}

// 快速切歌时，被取代的加载结果必须被丢弃
func TestStore_StaleLoadDiscarded(t *testing.T) {
	p := newFakePlayer()
	release := p.block("http://audio/a.mp3")
	s := startStore(t, p)
	ctx := context.Background()

	require.NoError(t, s.Dispatch(ctx, PlaySong{Song: song("a")}))
	waitFor(t, s, func(st model.AudioState) bool { return st.Status == model.StatusLoading })

	require.NoError(t, s.Dispatch(ctx, PlaySong{Song: song("b")}))
	waitFor(t, s, playingSong("b"))

	release()
	time.Sleep(50 * time.Millisecond)
	st := s.State()
	assert.Equal(t, "b", st.CurrentSong.ID)
	assert.Equal(t, model.StatusPlaying, st.Status)
	assert.Empty(t, st.Error)
}

func TestStore_LoadErrorSurfaces(t *testing.T) {
	p := newFakePlayer()
	p.fail("http://audio/a.mp3", errors.New("decode failed"))
	s := startStore(t, p)

	require.NoError(t, s.Dispatch(context.Background(), PlayList{Songs: songs("a", "b")}))
	st := waitFor(t, s, func(st model.AudioState) bool { return st.Status == model.StatusError })
	assert.Contains(t, st.Error, "decode failed")
	assert.Equal(t, "a", st.CurrentSong.ID)
	assert.False(t, st.IsLoading)
}

func TestStore_EndedAdvances(t *testing.T) {
	p := newFakePlayer()
	s := startStore(t, p)

	require.NoError(t, s.Dispatch(context.Background(), PlayList{Songs: songs("a", "b")}))
	waitFor(t, s, playingSong("a"))

	p.events <- playback.Event{Kind: playback.EventEnded}
	waitFor(t, s, playingSong("b"))

	p.events <- playback.Event{Kind: playback.EventEnded}
	st := waitFor(t, s, func(st model.AudioState) bool { return st.Status == model.StatusEmpty })
	assert.Nil(t, st.CurrentSong)
	assert.Len(t, st.Queue, 2)
	assert.False(t, p.isPlaying())
}

func (p *fakePlayer) loadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.loads)
}

// 单曲循环：播放结束后重新加载同一首，而不是对已结束的资源跳转
func TestStore_RepeatOneReloadsAfterEnded(t *testing.T) {
	p := newFakePlayer()
	s := startStore(t, p)
	ctx := context.Background()

	require.NoError(t, s.Dispatch(ctx, PlaySong{Song: song("a")}))
	waitFor(t, s, playingSong("a"))
	require.NoError(t, s.Dispatch(ctx, SetRepeatMode{Mode: model.RepeatOne}))

	p.events <- playback.Event{Kind: playback.EventEnded}
	require.Eventually(t, func() bool { return p.loadCount() == 2 }, 2*time.Second, 5*time.Millisecond)
	waitFor(t, s, playingSong("a"))

	p.mu.Lock()
	assert.Equal(t, []string{"http://audio/a.mp3", "http://audio/a.mp3"}, p.loads)
	assert.Empty(t, p.seeks)
	p.mu.Unlock()
	assert.True(t, p.isPlaying())
}

// 静音播放器按曲库时长结束，队列无需外部事件也能自动前进
func TestStore_NullPrimitiveAdvancesByDuration(t *testing.T) {
	p := playback.NewNullPrimitive()
	defer p.Close()
	s := NewStore(p, Options{Volume: 1})
	go s.Run()
	t.Cleanup(s.Stop)

	short := songs("a", "b")
	for i := range short {
		short[i].Duration = 0.5
	}
	require.NoError(t, s.Dispatch(context.Background(), PlayList{Songs: short}))
	st := waitFor(t, s, playingSong("a"))
	assert.Equal(t, 0.5, st.Duration)

	require.Eventually(t, func() bool { return playingSong("b")(s.State()) }, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return s.State().Status == model.StatusEmpty }, 5*time.Second, 10*time.Millisecond)
}

func TestStore_EventsProjectProgress(t *testing.T) {
	p := newFakePlayer()
	s := startStore(t, p)

	require.NoError(t, s.Dispatch(context.Background(), PlaySong{Song: song("a")}))
	waitFor(t, s, playingSong("a"))

	p.events <- playback.Event{Kind: playback.EventDuration, Seconds: 180}
	p.events <- playback.Event{Kind: playback.EventProgress, Seconds: 42}
	st := waitFor(t, s, func(st model.AudioState) bool { return st.Progress == 42 })
	assert.Equal(t, 180.0, st.Duration)

	p.events <- playback.Event{Kind: playback.EventError, Err: errors.New("device lost")}
	st = waitFor(t, s, func(st model.AudioState) bool { return st.Status == model.StatusError })
	assert.Contains(t, st.Error, "device lost")
}

func TestStore_SeekAndVolumeConfirmedByPlayer(t *testing.T) {
	p := newFakePlayer()
	s := startStore(t, p)
	ctx := context.Background()

	require.NoError(t, s.Dispatch(ctx, PlaySong{Song: song("a")}))
	waitFor(t, s, playingSong("a"))

	require.NoError(t, s.Dispatch(ctx, Seek{Seconds: 30}))
	assert.Equal(t, 30.0, s.State().Progress)

	require.NoError(t, s.Dispatch(ctx, ChangeVolume{Level: 0.3}))
	assert.Equal(t, 0.3, s.State().Volume)

	p.mu.Lock()
	assert.Equal(t, []float64{30}, p.seeks)
	assert.Equal(t, 0.3, p.volume)
	p.mu.Unlock()
}

func TestStore_PauseResume(t *testing.T) {
	p := newFakePlayer()
	s := startStore(t, p)
	ctx := context.Background()

	require.NoError(t, s.Dispatch(ctx, PlaySong{Song: song("a")}))
	waitFor(t, s, playingSong("a"))

	require.NoError(t, s.Dispatch(ctx, Pause{}))
	assert.Equal(t, model.StatusPaused, s.State().Status)
	assert.False(t, p.isPlaying())

	require.NoError(t, s.Dispatch(ctx, Resume{}))
	waitFor(t, s, playingSong("a"))
	assert.True(t, p.isPlaying())
}

func TestStore_SubscribeGetsLatest(t *testing.T) {
	s := startStore(t, newFakePlayer())
	ctx := context.Background()

	ch, cancel := s.Subscribe()
	defer cancel()

	first := <-ch
	assert.Equal(t, model.StatusEmpty, first.Status)

	require.NoError(t, s.Dispatch(ctx, QueueLast{Song: song("x")}))
	require.NoError(t, s.Dispatch(ctx, QueueLast{Song: song("y")}))

	latest := <-ch
	assert.Len(t, latest.Queue, 2)
}

func TestStore_StopClosesSubscribers(t *testing.T) {
	s := NewStore(newFakePlayer(), Options{})
	go s.Run()

	ch, _ := s.Subscribe()
	<-ch
	s.Stop()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, s.Dispatch(context.Background(), NextSong{}), ErrStoreClosed)
}
