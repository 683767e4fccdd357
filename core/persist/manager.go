// Package persist 把播放队列快照保存到 KVStore，并在启动时恢复。
//
// 只保存歌曲 ID，恢复时通过 SongResolver 重新查询歌曲信息；
// 已不存在的歌曲被丢弃，当前播放位置移到最近的存活歌曲。
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"QueueFM/core/queue"
	"QueueFM/logger"
	"QueueFM/model"

	"github.com/samber/lo"
	"golang.org/x/time/rate"
)

const (
	// DefaultKey 快照在 KVStore 中的键
	DefaultKey = "queuefm:audio_state"
	// CacheExpiration 快照有效期
	CacheExpiration = 24 * time.Hour
	// DefaultCheckpointInterval 两次自动保存的最小间隔
	DefaultCheckpointInterval = 5 * time.Second
)

var (
	// ErrExpired 快照超过有效期
	ErrExpired = errors.New("persisted state expired")
	// ErrMalformed 快照无法解析
	ErrMalformed = errors.New("persisted state malformed")
)

// SongResolver 根据歌曲 ID 查询歌曲，允许只返回其中一部分
type SongResolver interface {
	ResolveSongs(ctx context.Context, ids []string) ([]model.Song, error)
}

// Dispatcher 接收恢复出的状态
type Dispatcher interface {
	Dispatch(ctx context.Context, op queue.Operation) error
}

// Options Manager 配置
type Options struct {
	Key                string
	TTL                time.Duration
	CheckpointInterval time.Duration
	Now                func() time.Time
}

// Manager 负责快照的保存、恢复与清除
type Manager struct {
	kv       KVStore
	resolver SongResolver
	key      string
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
	limiter  *rate.Limiter

	mu      sync.Mutex
	saved   string // 最近一次保存内容的指纹
	pending *model.AudioState
	timer   *time.Timer
}

// NewManager 创建持久化管理器
func NewManager(kv KVStore, resolver SongResolver, opts Options) *Manager {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.TTL <= 0 {
		opts.TTL = CacheExpiration
	}
	if opts.CheckpointInterval <= 0 {
		opts.CheckpointInterval = DefaultCheckpointInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		kv:       kv,
		resolver: resolver,
		key:      opts.Key,
		ttl:      opts.TTL,
		interval: opts.CheckpointInterval,
		now:      opts.Now,
		limiter:  rate.NewLimiter(rate.Every(opts.CheckpointInterval), 1),
	}
}

// record 状态快照的持久化投影
func (m *Manager) record(st model.AudioState) model.PersistedAudioState {
	rec := model.PersistedAudioState{
		CurrentIndex: st.CurrentIndex,
		Queue: lo.Map(st.Queue, func(it model.QueueItem, _ int) model.PersistedQueueEntry {
			return model.PersistedQueueEntry{SongID: it.Song.ID, IsQueued: it.IsQueued}
		}),
		Volume:    st.Volume,
		Timestamp: m.now().UnixMilli(),
	}
	if st.CurrentSong != nil {
		id := st.CurrentSong.ID
		rec.CurrentSongID = &id
	}
	return rec
}

// fingerprint 忽略时间戳，用于判断内容是否变化
func fingerprint(rec model.PersistedAudioState) string {
	rec.Timestamp = 0
	data, _ := json.Marshal(rec)
	return string(data)
}

// Save 立即保存快照；队列为空时删除已有快照
func (m *Manager) Save(ctx context.Context, st model.AudioState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = nil
	return m.saveLocked(ctx, st)
}

func (m *Manager) saveLocked(ctx context.Context, st model.AudioState) error {
	rec := m.record(st)
	fp := fingerprint(rec)

	if len(rec.Queue) == 0 {
		if err := m.kv.Delete(ctx, m.key); err != nil {
			return fmt.Errorf("failed to delete audio state: %w", err)
		}
		m.saved = fp
		return nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal audio state: %w", err)
	}
	if err := m.kv.Set(ctx, m.key, data, m.ttl); err != nil {
		return fmt.Errorf("failed to save audio state: %w", err)
	}
	m.saved = fp

	logger.Debug("播放状态已保存",
		logger.Int("queue", len(rec.Queue)),
		logger.Int("currentIndex", rec.CurrentIndex))
	return nil
}

// Load 读取快照。不存在返回 ErrNotFound，过期返回 ErrExpired，
// 无法解析返回 ErrMalformed。
func (m *Manager) Load(ctx context.Context) (*model.PersistedAudioState, error) {
	data, err := m.kv.Get(ctx, m.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read audio state: %w", err)
	}

	var rec model.PersistedAudioState
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if rec.Timestamp <= 0 || rec.CurrentIndex < -1 {
		return nil, fmt.Errorf("%w: bad header", ErrMalformed)
	}
	if age := m.now().Sub(time.UnixMilli(rec.Timestamp)); age > m.ttl {
		return nil, fmt.Errorf("%w: saved %s ago", ErrExpired, age.Truncate(time.Second))
	}
	return &rec, nil
}

// Restore 恢复上次的队列，成功返回 true。
// 任何失败都视为没有可恢复的状态，只记录日志。
func (m *Manager) Restore(ctx context.Context, d Dispatcher) bool {
	rec, err := m.Load(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		return false
	case errors.Is(err, ErrExpired), errors.Is(err, ErrMalformed):
		logger.Info("丢弃无效的播放状态", logger.ErrorField(err))
		m.discard(ctx)
		return false
	case err != nil:
		logger.Warn("读取播放状态失败", logger.ErrorField(err))
		return false
	}

	ids := lo.Uniq(lo.Map(rec.Queue, func(e model.PersistedQueueEntry, _ int) string { return e.SongID }))
	songs, err := m.resolver.ResolveSongs(ctx, ids)
	if err != nil {
		logger.Warn("恢复播放状态时查询歌曲失败", logger.ErrorField(err))
		return false
	}

	op, ok := rebuild(rec, songs)
	if !ok {
		logger.Info("播放状态中的歌曲均已不可用")
		m.discard(ctx)
		return false
	}
	if err := d.Dispatch(ctx, op); err != nil {
		logger.Warn("应用恢复的播放状态失败", logger.ErrorField(err))
		return false
	}

	logger.Info("播放状态已恢复",
		logger.Int("queue", len(op.Entries)),
		logger.Int("dropped", len(rec.Queue)-len(op.Entries)),
		logger.Int("currentIndex", op.CurrentIndex))
	return true
}

// rebuild 用查询到的歌曲重建队列并重新定位当前项
func rebuild(rec *model.PersistedAudioState, songs []model.Song) (queue.RestoreState, bool) {
	byID := lo.KeyBy(songs, func(s model.Song) string { return s.ID })

	current := rec.CurrentIndex
	if rec.CurrentSongID != nil {
		id := *rec.CurrentSongID
		if current < 0 || current >= len(rec.Queue) || rec.Queue[current].SongID != id {
			if _, idx, found := lo.FindIndexOf(rec.Queue, func(e model.PersistedQueueEntry) bool { return e.SongID == id }); found {
				current = idx
			}
		}
	}
	if current < 0 || current >= len(rec.Queue) {
		current = 0
	}

	var entries []queue.RestoredEntry
	after, before := -1, -1
	for i, e := range rec.Queue {
		song, ok := byID[e.SongID]
		if !ok {
			continue
		}
		if i >= current && after < 0 {
			after = len(entries)
		}
		if i < current {
			before = len(entries)
		}
		entries = append(entries, queue.RestoredEntry{Song: song, IsQueued: e.IsQueued})
	}
	if len(entries) == 0 {
		return queue.RestoreState{}, false
	}

	idx := after
	if idx < 0 {
		idx = before
	}
	return queue.RestoreState{Entries: entries, CurrentIndex: idx, Volume: rec.Volume}, true
}

func (m *Manager) discard(ctx context.Context) {
	if err := m.kv.Delete(ctx, m.key); err != nil {
		logger.Warn("删除播放状态失败", logger.ErrorField(err))
	}
}

// Clear 删除快照并取消待保存的检查点
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending = nil
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.saved = ""
	if err := m.kv.Delete(ctx, m.key); err != nil {
		return fmt.Errorf("failed to clear audio state: %w", err)
	}
	return nil
}

// Checkpoint 在持久化内容变化时保存，按检查点间隔限流；
// 被限流的最后一次变化会在间隔结束后补存。
func (m *Manager) Checkpoint(st model.AudioState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fingerprint(m.record(st)) == m.saved {
		m.pending = nil
		return
	}
	m.pending = &st
	if m.limiter.Allow() {
		m.savePendingLocked()
		return
	}
	if m.timer == nil {
		m.timer = time.AfterFunc(m.interval, m.trailing)
	}
}

func (m *Manager) trailing() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timer = nil
	m.savePendingLocked()
}

func (m *Manager) savePendingLocked() {
	if m.pending == nil {
		return
	}
	st := *m.pending
	m.pending = nil

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.saveLocked(ctx, st); err != nil {
		logger.Warn("自动保存播放状态失败", logger.ErrorField(err))
	}
}

// Watch 消费状态流并做检查点，直到 ctx 结束或通道关闭
func (m *Manager) Watch(ctx context.Context, states <-chan model.AudioState) {
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			m.Checkpoint(st)
		}
	}
}

// Flush 立即保存尚未写入的检查点，用于退出前
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.pending == nil {
		return nil
	}
	st := *m.pending
	m.pending = nil
	return m.saveLocked(ctx, st)
}
