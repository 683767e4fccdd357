// Package playback 封装唯一的音频解码/输出资源。
//
// 队列只通过 Primitive 接口驱动播放；实现通过 Events 通道异步上报
// 播放进度、时长、播放结束与错误。
package playback

import (
	"context"
	"errors"
)

// EventKind 播放器事件类型
type EventKind string

const (
	EventProgress EventKind = "progress" // Seconds 为当前位置
	EventDuration EventKind = "duration" // Seconds 为总时长
	EventEnded    EventKind = "ended"
	EventError    EventKind = "error"
)

// Event 播放器上报的事件
type Event struct {
	Kind    EventKind
	Seconds float64
	Err     error
}

// ErrAudioUnavailable 当前构建不支持本机音频输出
var ErrAudioUnavailable = errors.New("audio output not available in this build")

// ErrNothingLoaded 尚未加载任何资源
var ErrNothingLoaded = errors.New("no audio resource loaded")

// Primitive 单一音频资源。Load 和 Play 可能阻塞，调用方应在独立的
// goroutine 中执行；ctx 被取消时实现应尽快放弃加载且不得替换当前资源。
// duration 是曲库记录的时长（秒），0 表示未知，能自行解码时长的实现可以忽略它。
type Primitive interface {
	Load(ctx context.Context, url string, duration float64) error
	Play(ctx context.Context) error
	Pause() error
	Seek(seconds float64) error
	SetVolume(level float64) error
	Events() <-chan Event
	Close() error
}

// clampVolume 将音量限制在 [0,1]
func clampVolume(level float64) float64 {
	if level < 0 {
		return 0
	}
	if level > 1 {
		return 1
	}
	return level
}
