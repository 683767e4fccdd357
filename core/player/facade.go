// Package player 对外的播放控制入口。
//
// Facade 把调用方的意图转换为队列操作提交给 queue.Store，
// 并提供只读的状态快照与订阅；整体播放专辑/歌单时通过 Catalog 查询歌曲。
package player

import (
	"context"
	"fmt"

	"QueueFM/core/persist"
	"QueueFM/core/queue"
	"QueueFM/model"

	"github.com/samber/lo"
)

// Catalog 歌曲查询服务
type Catalog interface {
	ResolveSongs(ctx context.Context, ids []string) ([]model.Song, error)
	ResolveSongsForEntity(ctx context.Context, kind model.EntityType, id string) ([]model.Song, error)
}

// ClearOptions 清空队列时的保留选项
type ClearOptions struct {
	PreserveQueued      bool `json:"preserveQueued"`
	PreserveCurrentSong bool `json:"preserveCurrentSong"`
}

// Facade 播放控制入口
type Facade struct {
	store   *queue.Store
	catalog Catalog
	persist *persist.Manager
}

// New 创建 Facade，store 需要已经在运行
func New(store *queue.Store, catalog Catalog, pm *persist.Manager) *Facade {
	return &Facade{store: store, catalog: catalog, persist: pm}
}

func (f *Facade) dispatch(ctx context.Context, op queue.Operation) error {
	return f.store.Dispatch(ctx, op)
}

// State 当前播放状态
func (f *Facade) State() model.AudioState {
	return f.store.State()
}

// Subscribe 订阅播放状态变化
func (f *Facade) Subscribe() (<-chan model.AudioState, func()) {
	return f.store.Subscribe()
}

// IsSourcePlaying 某个专辑/歌单是否正在播放
func (f *Facade) IsSourcePlaying(kind model.EntityType, id string) bool {
	return f.store.State().IsSourcePlaying(kind, id)
}

// ResolveSongs 按 ID 查询歌曲，保持请求顺序并跳过不存在的歌曲
func (f *Facade) ResolveSongs(ctx context.Context, ids []string) ([]model.Song, error) {
	songs, err := f.catalog.ResolveSongs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve songs: %w", err)
	}
	byID := lo.KeyBy(songs, func(s model.Song) string { return s.ID })
	return lo.FilterMap(ids, func(id string, _ int) (model.Song, bool) {
		s, ok := byID[id]
		return s, ok
	}), nil
}

func (f *Facade) resolveEntity(ctx context.Context, kind model.EntityType, id string) ([]model.Song, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown entity type %q", queue.ErrInvalidOperation, kind)
	}
	songs, err := f.catalog.ResolveSongsForEntity(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s %s: %w", kind, id, err)
	}
	return songs, nil
}

// PlaySong 播放单首歌曲，替换当前队列
func (f *Facade) PlaySong(ctx context.Context, song model.Song) error {
	return f.dispatch(ctx, queue.PlaySong{Song: song})
}

// PlaySongs 播放歌曲列表，从 startIndex 开始
func (f *Facade) PlaySongs(ctx context.Context, songs []model.Song, startIndex int) error {
	return f.dispatch(ctx, queue.PlayList{Songs: songs, StartIndex: startIndex})
}

// PlayEntity 整体播放专辑、歌单或歌手，并记录播放来源
func (f *Facade) PlayEntity(ctx context.Context, kind model.EntityType, id string, startIndex int) error {
	songs, err := f.resolveEntity(ctx, kind, id)
	if err != nil {
		return err
	}
	return f.dispatch(ctx, queue.PlayList{
		Songs:      songs,
		StartIndex: startIndex,
		SourceID:   id,
		SourceType: kind,
	})
}

func (f *Facade) Pause(ctx context.Context) error {
	return f.dispatch(ctx, queue.Pause{})
}

func (f *Facade) Resume(ctx context.Context) error {
	return f.dispatch(ctx, queue.Resume{})
}

func (f *Facade) Next(ctx context.Context) error {
	return f.dispatch(ctx, queue.NextSong{})
}

func (f *Facade) Previous(ctx context.Context) error {
	return f.dispatch(ctx, queue.PreviousSong{})
}

func (f *Facade) Seek(ctx context.Context, seconds float64) error {
	return f.dispatch(ctx, queue.Seek{Seconds: seconds})
}

// SetVolume 请求播放器调整音量，成功后反映到状态
func (f *Facade) SetVolume(ctx context.Context, level float64) error {
	return f.dispatch(ctx, queue.ChangeVolume{Level: level})
}

func (f *Facade) QueueNext(ctx context.Context, song model.Song) error {
	return f.dispatch(ctx, queue.QueueNext{Song: song})
}

func (f *Facade) QueueLast(ctx context.Context, song model.Song) error {
	return f.dispatch(ctx, queue.QueueLast{Song: song})
}

// QueueSongsNext 按列表顺序插入到"下一首播放"
func (f *Facade) QueueSongsNext(ctx context.Context, songs []model.Song) error {
	return f.dispatch(ctx, queue.QueueListNext{Songs: songs})
}

// QueueSongsLast 按列表顺序插入到"最后播放"
func (f *Facade) QueueSongsLast(ctx context.Context, songs []model.Song) error {
	return f.dispatch(ctx, queue.QueueListLast{Songs: songs})
}

// QueueListNext 把专辑/歌单的全部歌曲插入到"下一首播放"
func (f *Facade) QueueListNext(ctx context.Context, kind model.EntityType, id string) error {
	songs, err := f.resolveEntity(ctx, kind, id)
	if err != nil {
		return err
	}
	return f.QueueSongsNext(ctx, songs)
}

// QueueListLast 把专辑/歌单的全部歌曲插入到"最后播放"
func (f *Facade) QueueListLast(ctx context.Context, kind model.EntityType, id string) error {
	songs, err := f.resolveEntity(ctx, kind, id)
	if err != nil {
		return err
	}
	return f.QueueSongsLast(ctx, songs)
}

func (f *Facade) ClearQueue(ctx context.Context, opts ClearOptions) error {
	return f.dispatch(ctx, queue.ClearQueue{
		PreserveQueued:      opts.PreserveQueued,
		PreserveCurrentSong: opts.PreserveCurrentSong,
	})
}

func (f *Facade) ReplaceQueue(ctx context.Context, songs []model.Song, preserveQueued bool) error {
	return f.dispatch(ctx, queue.ReplaceQueue{Songs: songs, PreserveQueued: preserveQueued})
}

// Stop 停止播放并清空队列
func (f *Facade) Stop(ctx context.Context) error {
	return f.dispatch(ctx, queue.ClearQueue{})
}

func (f *Facade) RemoveFromQueue(ctx context.Context, queueID string) error {
	return f.dispatch(ctx, queue.RemoveItem{QueueID: queueID})
}

func (f *Facade) ToggleShuffleQueue(ctx context.Context) error {
	return f.dispatch(ctx, queue.ToggleShuffle{})
}

func (f *Facade) MoveQueueItem(ctx context.Context, from, to int) error {
	return f.dispatch(ctx, queue.MoveQueueItem{From: from, To: to})
}

func (f *Facade) SetRepeatMode(ctx context.Context, mode model.RepeatMode) error {
	return f.dispatch(ctx, queue.SetRepeatMode{Mode: mode})
}

func (f *Facade) ToggleRepeatMode(ctx context.Context) error {
	return f.dispatch(ctx, queue.ToggleRepeatMode{})
}

// JumpTo 播放队列中的指定位置
func (f *Facade) JumpTo(ctx context.Context, index int) error {
	return f.dispatch(ctx, queue.JumpTo{Index: index})
}

// SaveState 立即保存当前状态
func (f *Facade) SaveState(ctx context.Context) error {
	return f.persist.Save(ctx, f.store.State())
}

// ClearPersistedState 删除已保存的状态
func (f *Facade) ClearPersistedState(ctx context.Context) error {
	return f.persist.Clear(ctx)
}

// RestoreState 恢复上次保存的队列，恢复后处于暂停状态
func (f *Facade) RestoreState(ctx context.Context) bool {
	return f.persist.Restore(ctx, f.store)
}
