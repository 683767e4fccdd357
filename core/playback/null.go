package playback

import (
	"context"
	"sync"
	"time"
)

// NullPrimitive 不输出声音的播放器，只按墙钟推进播放位置。
// 用于未启用音频输出的部署（例如纯控制服务）以及无 cgo 的构建。
type NullPrimitive struct {
	mu sync.Mutex

	url       string
	duration  float64 // 曲库时长，0 表示未知，此时不会自动结束
	playing   bool
	offset    float64   // 暂停时的位置
	startedAt time.Time // 开始播放的时刻
	level     float64

	events chan Event
	done   chan struct{}
	once   sync.Once
	now    func() time.Time
}

// NewNullPrimitive 创建静音播放器
func NewNullPrimitive() *NullPrimitive {
	p := &NullPrimitive{
		level:  1,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
		now:    time.Now,
	}
	go p.reportProgress()
	return p
}

// Load 替换当前资源，已知时长时立即上报
func (p *NullPrimitive) Load(ctx context.Context, url string, duration float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	p.url = url
	p.duration = duration
	p.playing = false
	p.offset = 0
	if duration > 0 {
		p.emit(Event{Kind: EventDuration, Seconds: duration})
	}
	return nil
}

func (p *NullPrimitive) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.url == "" {
		return ErrNothingLoaded
	}
	if !p.playing {
		p.playing = true
		p.startedAt = p.now()
	}
	return nil
}

func (p *NullPrimitive) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing {
		p.offset = p.positionLocked()
		p.playing = false
	}
	return nil
}

func (p *NullPrimitive) Seek(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.url == "" {
		return ErrNothingLoaded
	}
	if seconds < 0 {
		seconds = 0
	}
	p.offset = seconds
	p.startedAt = p.now()
	return nil
}

func (p *NullPrimitive) SetVolume(level float64) error {
	p.mu.Lock()
	p.level = clampVolume(level)
	p.mu.Unlock()
	return nil
}

func (p *NullPrimitive) Events() <-chan Event {
	return p.events
}

func (p *NullPrimitive) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

func (p *NullPrimitive) positionLocked() float64 {
	if !p.playing {
		return p.offset
	}
	return p.offset + p.now().Sub(p.startedAt).Seconds()
}

func (p *NullPrimitive) reportProgress() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

// tick 上报一次进度，到达时长后停在末尾并上报结束
func (p *NullPrimitive) tick() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing {
		return
	}
	pos := p.positionLocked()
	if p.duration > 0 && pos >= p.duration {
		p.playing = false
		p.offset = p.duration
		p.emit(Event{Kind: EventProgress, Seconds: p.duration})
		p.emit(Event{Kind: EventEnded})
		return
	}
	p.emit(Event{Kind: EventProgress, Seconds: pos})
}

// emit 非阻塞发送，调用方持有锁
func (p *NullPrimitive) emit(ev Event) {
	select {
	case p.events <- ev:
	default:
	}
}
