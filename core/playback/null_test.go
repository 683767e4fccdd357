package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestNullPrimitive_PlayRequiresLoad(t *testing.T) {
	p := NewNullPrimitive()
	defer p.Close()

	err := p.Play(context.Background())
	assert.ErrorIs(t, err, ErrNothingLoaded)
	assert.ErrorIs(t, p.Seek(3), ErrNothingLoaded)
}

func TestNullPrimitive_PositionFollowsClock(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p := NewNullPrimitive()
	p.mu.Lock()
	p.now = clock.now
	p.mu.Unlock()
	defer p.Close()

	require.NoError(t, p.Load(context.Background(), "http://audio/a.mp3", 0))
	require.NoError(t, p.Play(context.Background()))

	clock.advance(4 * time.Second)
	require.NoError(t, p.Pause())

	p.mu.Lock()
	assert.InDelta(t, 4.0, p.positionLocked(), 0.001)
	p.mu.Unlock()

	clock.advance(10 * time.Second)
	require.NoError(t, p.Seek(1.5))
	require.NoError(t, p.Play(context.Background()))
	clock.advance(2 * time.Second)

	p.mu.Lock()
	assert.InDelta(t, 3.5, p.positionLocked(), 0.001)
	p.mu.Unlock()
}

func TestNullPrimitive_CancelledLoad(t *testing.T) {
	p := NewNullPrimitive()
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Load(ctx, "http://audio/a.mp3", 0), context.Canceled)
	assert.ErrorIs(t, p.Play(context.Background()), ErrNothingLoaded)
}

func TestNullPrimitive_CancelledLoadKeepsCurrent(t *testing.T) {
	p := NewNullPrimitive()
	defer p.Close()

	require.NoError(t, p.Load(context.Background(), "http://audio/a.mp3", 30))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Load(ctx, "http://audio/b.mp3", 60), context.Canceled)

	p.mu.Lock()
	assert.Equal(t, "http://audio/a.mp3", p.url)
	assert.Equal(t, 30.0, p.duration)
	p.mu.Unlock()
}

// nextEvent 读取下一个非进度事件
func nextEvent(t *testing.T, p *NullPrimitive) Event {
	t.Helper()
	for {
		select {
		case ev := <-p.Events():
			if ev.Kind != EventProgress {
				return ev
			}
		case <-time.After(time.Second):
			t.Fatal("等待播放器事件超时")
			return Event{}
		}
	}
}

func TestNullPrimitive_ReportsDurationAndEnds(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p := NewNullPrimitive()
	p.mu.Lock()
	p.now = clock.now
	p.mu.Unlock()
	defer p.Close()

	require.NoError(t, p.Load(context.Background(), "http://audio/a.mp3", 5))
	ev := nextEvent(t, p)
	assert.Equal(t, EventDuration, ev.Kind)
	assert.Equal(t, 5.0, ev.Seconds)

	require.NoError(t, p.Play(context.Background()))
	clock.advance(3 * time.Second)
	p.tick()
	p.mu.Lock()
	assert.True(t, p.playing)
	p.mu.Unlock()

	clock.advance(3 * time.Second)
	p.tick()
	assert.Equal(t, EventEnded, nextEvent(t, p).Kind)

	p.mu.Lock()
	assert.False(t, p.playing)
	assert.Equal(t, 5.0, p.positionLocked())
	p.mu.Unlock()

	// 结束只上报一次
	clock.advance(3 * time.Second)
	p.tick()
	select {
	case ev := <-p.Events():
		if ev.Kind != EventProgress {
			t.Fatalf("结束后收到多余事件: %s", ev.Kind)
		}
	default:
	}
}

func TestNullPrimitive_UnknownDurationNeverEnds(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p := NewNullPrimitive()
	p.mu.Lock()
	p.now = clock.now
	p.mu.Unlock()
	defer p.Close()

	require.NoError(t, p.Load(context.Background(), "http://audio/a.mp3", 0))
	require.NoError(t, p.Play(context.Background()))
	clock.advance(time.Hour)
	p.tick()

	ev := <-p.Events()
	assert.Equal(t, EventProgress, ev.Kind)
	p.mu.Lock()
	assert.True(t, p.playing)
	p.mu.Unlock()
}

func TestNullPrimitive_VolumeClamped(t *testing.T) {
	p := NewNullPrimitive()
	defer p.Close()

	require.NoError(t, p.SetVolume(3))
	p.mu.Lock()
	assert.Equal(t, 1.0, p.level)
	p.mu.Unlock()

	require.NoError(t, p.SetVolume(-1))
	p.mu.Lock()
	assert.Equal(t, 0.0, p.level)
	p.mu.Unlock()
}
