package model

// RepeatMode 循环模式
type RepeatMode string

const (
	RepeatNone RepeatMode = "none"
	RepeatAll  RepeatMode = "all"
	RepeatOne  RepeatMode = "one"
)

// Next 按 none -> all -> one -> none 循环
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatNone:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatNone
	}
}

// Valid reports whether m is a known repeat mode.
func (m RepeatMode) Valid() bool {
	return m == RepeatNone || m == RepeatAll || m == RepeatOne
}

// PlaybackStatus 播放状态机的状态
type PlaybackStatus string

const (
	StatusEmpty   PlaybackStatus = "empty"
	StatusLoading PlaybackStatus = "loading"
	StatusPlaying PlaybackStatus = "playing"
	StatusPaused  PlaybackStatus = "paused"
	StatusEnded   PlaybackStatus = "ended"
	StatusError   PlaybackStatus = "error"
)

// 插入方式
const (
	QueueTypeNext = "next"
	QueueTypeLast = "last"
)

// QueueItem 队列中的一项，同一首歌可以出现多次，以 QueueID 区分
type QueueItem struct {
	Song             Song       `json:"song"`
	QueueID          string     `json:"queueId"`
	IsQueued         bool       `json:"isQueued"`            // 通过"下一首播放/最后播放"临时插入
	QueueType        string     `json:"queueType,omitempty"` // next, last
	RelativePosition int        `json:"relativePosition"`    // 插入时相对当前播放项的位置
	OriginalIndex    int        `json:"originalIndex"`       // 打乱前的位置，-1 表示未记录
	AddedSeq         int64      `json:"addedSeq"`            // 插入序号，用于淘汰最早的临时项
	SourceID         string     `json:"sourceId,omitempty"`
	SourceType       EntityType `json:"sourceType,omitempty"`
}

// AudioState 对外可见的播放状态快照
type AudioState struct {
	Status          PlaybackStatus `json:"status"`
	IsPlaying       bool           `json:"isPlaying"`
	CurrentSong     *Song          `json:"currentSong"`
	CurrentQueueID  string         `json:"currentQueueId,omitempty"`
	CurrentIndex    int            `json:"currentIndex"`
	Queue           []QueueItem    `json:"queue"`
	Progress        float64        `json:"progress"`
	Duration        float64        `json:"duration"`
	Volume          float64        `json:"volume"`
	IsLoading       bool           `json:"isLoading"`
	Error           string         `json:"error,omitempty"`
	RepeatMode      RepeatMode     `json:"repeatMode"`
	IsShuffled      bool           `json:"isShuffled"`
	SourceID        string         `json:"sourceId,omitempty"`
	SourceType      EntityType     `json:"sourceType,omitempty"`
	HasNextSong     bool           `json:"hasNextSong"`
	HasPreviousSong bool           `json:"hasPreviousSong"`
}

// IsSourcePlaying 判断某个专辑/歌单是否正是当前播放来源
func (s AudioState) IsSourcePlaying(kind EntityType, id string) bool {
	return s.CurrentSong != nil && s.SourceType == kind && s.SourceID == id
}

// PersistedQueueEntry 持久化时只保存歌曲ID
type PersistedQueueEntry struct {
	SongID   string `json:"songId"`
	IsQueued bool   `json:"isQueued"`
}

// PersistedAudioState 持久化快照
type PersistedAudioState struct {
	CurrentSongID *string               `json:"currentSongId"`
	CurrentIndex  int                   `json:"currentIndex"`
	Queue         []PersistedQueueEntry `json:"queue"`
	Volume        float64               `json:"volume"`
	Timestamp     int64                 `json:"timestamp"` // Unix 毫秒
}
