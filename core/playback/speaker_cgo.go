//go:build (linux && cgo) || windows || darwin

package playback

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"QueueFM/logger"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

const progressInterval = 250 * time.Millisecond

// SpeakerPrimitive 通过 beep 将 MP3 输出到本机扬声器
type SpeakerPrimitive struct {
	mu sync.Mutex

	httpClient  *http.Client
	initialized bool
	sampleRate  beep.SampleRate

	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	level    float64
	seq      uint64 // 每次加载递增，用于忽略旧资源的结束回调

	events chan Event
	done   chan struct{}
	closed bool
}

// NewSpeakerPrimitive 创建扬声器播放器并启动进度上报
func NewSpeakerPrimitive(httpClient *http.Client) (*SpeakerPrimitive, error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	p := &SpeakerPrimitive{
		httpClient: httpClient,
		sampleRate: beep.SampleRate(44100),
		level:      1,
		events:     make(chan Event, 64),
		done:       make(chan struct{}),
	}
	go p.reportProgress()
	return p, nil
}

// initSpeaker 首次加载时初始化扬声器（需持有锁）
func (p *SpeakerPrimitive) initSpeaker() error {
	if p.initialized {
		return nil
	}
	if err := speaker.Init(p.sampleRate, p.sampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	p.initialized = true
	return nil
}

// Load 下载并解码音频，成功后替换当前资源，处于暂停状态。时长以解码结果为准
func (p *SpeakerPrimitive) Load(ctx context.Context, url string, _ float64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch audio: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}

	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return fmt.Errorf("decode audio: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// 加载期间被取代的请求不能替换当前资源
	if err := ctx.Err(); err != nil {
		streamer.Close()
		return err
	}
	if p.closed {
		streamer.Close()
		return ErrNothingLoaded
	}
	if err := p.initSpeaker(); err != nil {
		streamer.Close()
		return err
	}

	p.stopLocked()
	p.seq++
	seq := p.seq

	p.streamer = streamer
	p.format = format
	resampled := beep.Resample(4, format.SampleRate, p.sampleRate, streamer)
	p.ctrl = &beep.Ctrl{Streamer: resampled, Paused: true}
	p.volume = &effects.Volume{Streamer: p.ctrl, Base: 2}
	p.applyVolumeLocked()

	speaker.Play(beep.Seq(p.volume, beep.Callback(func() {
		// 回调运行在扬声器的锁内，另起 goroutine 避免死锁
		go p.finished(seq)
	})))

	p.emit(Event{Kind: EventDuration, Seconds: format.SampleRate.D(streamer.Len()).Seconds()})
	return nil
}

func (p *SpeakerPrimitive) finished(seq uint64) {
	p.mu.Lock()
	stale := seq != p.seq
	p.mu.Unlock()
	if !stale {
		p.emit(Event{Kind: EventEnded})
	}
}

// Play 从当前位置开始播放
func (p *SpeakerPrimitive) Play(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if p.ctrl == nil {
		return ErrNothingLoaded
	}
	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

// Pause 暂停播放
func (p *SpeakerPrimitive) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctrl != nil {
		speaker.Lock()
		p.ctrl.Paused = true
		speaker.Unlock()
	}
	return nil
}

// Seek 跳转到指定秒数
func (p *SpeakerPrimitive) Seek(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streamer == nil {
		return ErrNothingLoaded
	}

	speaker.Lock()
	defer speaker.Unlock()

	samples := p.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	if last := p.streamer.Len() - 1; samples > last {
		samples = last
	}
	if samples < 0 {
		samples = 0
	}
	if err := p.streamer.Seek(samples); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	return nil
}

// SetVolume 设置音量，0 为静音
func (p *SpeakerPrimitive) SetVolume(level float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.level = clampVolume(level)
	p.applyVolumeLocked()
	return nil
}

// applyVolumeLocked 线性音量换算为以 2 为底的增益
func (p *SpeakerPrimitive) applyVolumeLocked() {
	if p.volume == nil {
		return
	}
	if p.initialized {
		speaker.Lock()
		defer speaker.Unlock()
	}
	if p.level <= 0 {
		p.volume.Silent = true
		return
	}
	p.volume.Silent = false
	p.volume.Volume = math.Log2(p.level)
}

// Events 返回事件通道
func (p *SpeakerPrimitive) Events() <-chan Event {
	return p.events
}

// Close 释放资源并停止进度上报
func (p *SpeakerPrimitive) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)
	p.stopLocked()
	return nil
}

// stopLocked 停止并释放当前资源（需持有锁）
func (p *SpeakerPrimitive) stopLocked() {
	if p.ctrl != nil {
		speaker.Lock()
		p.ctrl.Paused = true
		speaker.Unlock()
	}
	if p.streamer != nil {
		if err := p.streamer.Close(); err != nil {
			logger.Warn("关闭音频流失败", logger.ErrorField(err))
		}
		p.streamer = nil
	}
	if p.initialized {
		speaker.Clear()
	}
	p.ctrl = nil
	p.volume = nil
}

func (p *SpeakerPrimitive) reportProgress() {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			if pos, ok := p.position(); ok {
				p.emit(Event{Kind: EventProgress, Seconds: pos})
			}
		}
	}
}

// position 返回播放中资源的位置，暂停或未加载时 ok 为 false
func (p *SpeakerPrimitive) position() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streamer == nil || p.ctrl == nil {
		return 0, false
	}
	speaker.Lock()
	defer speaker.Unlock()
	if p.ctrl.Paused {
		return 0, false
	}
	return p.format.SampleRate.D(p.streamer.Position()).Seconds(), true
}

// emit 非阻塞发送，通道满时丢弃进度事件
func (p *SpeakerPrimitive) emit(ev Event) {
	select {
	case p.events <- ev:
	default:
		if ev.Kind != EventProgress {
			logger.Warn("播放器事件通道已满", logger.String("kind", string(ev.Kind)))
		}
	}
}
