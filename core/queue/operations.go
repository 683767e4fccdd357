package queue

import "QueueFM/model"

// Operation 队列操作消息，所有状态变更都通过 Store.Dispatch 提交
type Operation interface {
	opName() string
}

// PlaySong 用单首歌曲替换队列并播放
type PlaySong struct {
	Song           model.Song
	PreserveQueued bool
}

// PlayList 用歌曲列表替换队列，从 StartIndex 开始播放
type PlayList struct {
	Songs          []model.Song
	StartIndex     int
	SourceID       string
	SourceType     model.EntityType
	PreserveQueued bool
}

// QueueNext 插入到当前歌曲之后、其他"下一首播放"项之后
type QueueNext struct{ Song model.Song }

// QueueLast 插入到最后一个临时项之后
type QueueLast struct{ Song model.Song }

// QueueListNext 按列表顺序批量"下一首播放"
type QueueListNext struct{ Songs []model.Song }

// QueueListLast 按列表顺序批量"最后播放"
type QueueListLast struct{ Songs []model.Song }

// NextSong 下一首，受循环模式影响
type NextSong struct{}

// PreviousSong 上一首；播放超过阈值时回到开头
type PreviousSong struct{}

// JumpTo 播放队列中指定位置
type JumpTo struct{ Index int }

// RemoveItem 移除队列项
type RemoveItem struct{ QueueID string }

// ToggleShuffle 打乱/还原待播部分
type ToggleShuffle struct{}

// MoveQueueItem 移动队列项
type MoveQueueItem struct{ From, To int }

// ClearQueue 清空队列，可保留临时项和当前歌曲
type ClearQueue struct {
	PreserveQueued      bool
	PreserveCurrentSong bool
}

// ReplaceQueue 用新列表替换队列，可保留临时项
type ReplaceQueue struct {
	Songs          []model.Song
	PreserveQueued bool
}

// SetRepeatMode 设置循环模式
type SetRepeatMode struct{ Mode model.RepeatMode }

// ToggleRepeatMode none -> all -> one -> none
type ToggleRepeatMode struct{}

// Pause 暂停
type Pause struct{}

// Resume 继续播放；未加载时先加载
type Resume struct{}

// Seek 请求播放器跳转，位置由播放器确认后更新
type Seek struct{ Seconds float64 }

// ChangeVolume 请求播放器调整音量，音量由播放器确认后更新
type ChangeVolume struct{ Level float64 }

// 以下为播放器事件驱动的状态投影，不由界面直接提交

// SetVolume 音量投影
type SetVolume struct{ Level float64 }

// SetProgress 播放进度投影
type SetProgress struct{ Seconds float64 }

// SetDuration 时长投影
type SetDuration struct{ Seconds float64 }

// SetLoading 缓冲状态投影
type SetLoading struct{ Loading bool }

// SetError 播放器错误
type SetError struct{ Err error }

// RestoredEntry 恢复时的一项
type RestoredEntry struct {
	Song     model.Song
	IsQueued bool
}

// RestoreState 启动时由持久化模块整体替换状态，不自动播放
type RestoreState struct {
	Entries      []RestoredEntry
	CurrentIndex int
	Volume       float64
}

// 以下为 Store 内部使用的异步结果

type loadSettled struct{ err error }

type playSettled struct{ err error }

type trackEnded struct{}

func (PlaySong) opName() string         { return "PLAY_SONG" }
func (PlayList) opName() string         { return "PLAY_LIST" }
func (QueueNext) opName() string        { return "QUEUE_NEXT" }
func (QueueLast) opName() string        { return "QUEUE_LAST" }
func (QueueListNext) opName() string    { return "QUEUE_LIST_NEXT" }
func (QueueListLast) opName() string    { return "QUEUE_LIST_LAST" }
func (NextSong) opName() string         { return "NEXT_SONG" }
func (PreviousSong) opName() string     { return "PREVIOUS_SONG" }
func (JumpTo) opName() string           { return "JUMP_TO" }
func (RemoveItem) opName() string       { return "REMOVE_ITEM" }
func (ToggleShuffle) opName() string    { return "TOGGLE_SHUFFLE_QUEUE" }
func (MoveQueueItem) opName() string    { return "MOVE_QUEUE_ITEM" }
func (ClearQueue) opName() string       { return "CLEAR_QUEUE" }
func (ReplaceQueue) opName() string     { return "REPLACE_QUEUE" }
func (SetRepeatMode) opName() string    { return "SET_REPEAT_MODE" }
func (ToggleRepeatMode) opName() string { return "TOGGLE_REPEAT_MODE" }
func (Pause) opName() string            { return "PAUSE" }
func (Resume) opName() string           { return "RESUME" }
func (Seek) opName() string             { return "SEEK" }
func (ChangeVolume) opName() string     { return "CHANGE_VOLUME" }
func (SetVolume) opName() string        { return "SET_VOLUME" }
func (SetProgress) opName() string      { return "SET_PROGRESS" }
func (SetDuration) opName() string      { return "SET_DURATION" }
func (SetLoading) opName() string       { return "SET_LOADING" }
func (SetError) opName() string         { return "SET_ERROR" }
func (RestoreState) opName() string     { return "RESTORE_STATE" }
func (loadSettled) opName() string      { return "LOAD_SETTLED" }
func (playSettled) opName() string      { return "PLAY_SETTLED" }
func (trackEnded) opName() string       { return "TRACK_ENDED" }

// Name 返回操作名，用于日志
func Name(op Operation) string {
	return op.opName()
}
