package queue

import (
	"QueueFM/model"
)

const (
	// MaxQueueSize 队列总长度上限
	MaxQueueSize = 1000
	// MaxQueuedSongs 临时插入项上限，超出时淘汰最早插入的一项
	MaxQueuedSongs = 50
	// PreviousSongThreshold 播放超过该秒数时"上一首"改为回到开头
	PreviousSongThreshold = 3.0
)

// state 队列的内部可变状态，只由事件循环读写
type state struct {
	status       model.PlaybackStatus
	queue        []model.QueueItem
	currentIndex int
	progress     float64
	duration     float64
	volume       float64
	isLoading    bool
	errMsg       string
	repeat       model.RepeatMode
	shuffled     bool
	sourceID     string
	sourceType   model.EntityType

	loaded   bool  // 播放器中已加载当前歌曲
	autoplay bool  // 加载完成后是否继续播放
	seq      int64 // 临时项插入序号
}

func newState(volume float64) *state {
	return &state{
		status:       model.StatusEmpty,
		currentIndex: -1,
		volume:       clamp(volume, 0, 1),
		repeat:       model.RepeatNone,
	}
}

// clone 深拷贝队列，reducer 在副本上修改，失败时原状态不受影响
func (s *state) clone() *state {
	c := *s
	c.queue = make([]model.QueueItem, len(s.queue))
	copy(c.queue, s.queue)
	return &c
}

func (s *state) current() *model.QueueItem {
	if s.currentIndex < 0 || s.currentIndex >= len(s.queue) {
		return nil
	}
	return &s.queue[s.currentIndex]
}

func (s *state) hasNext() bool {
	if s.current() == nil {
		return false
	}
	return s.currentIndex < len(s.queue)-1 || s.repeat != model.RepeatNone
}

func (s *state) hasPrevious() bool {
	if s.current() == nil {
		return false
	}
	return s.currentIndex > 0 || (s.repeat == model.RepeatAll && len(s.queue) > 1)
}

func (s *state) queuedCount() int {
	n := 0
	for _, it := range s.queue {
		if it.IsQueued {
			n++
		}
	}
	return n
}

func (s *state) indexOf(queueID string) int {
	for i, it := range s.queue {
		if it.QueueID == queueID {
			return i
		}
	}
	return -1
}

// snapshot 生成对外只读快照
func (s *state) snapshot() model.AudioState {
	out := model.AudioState{
		Status:          s.status,
		IsPlaying:       s.status == model.StatusPlaying,
		CurrentIndex:    -1,
		Queue:           make([]model.QueueItem, len(s.queue)),
		Progress:        s.progress,
		Duration:        s.duration,
		Volume:          s.volume,
		IsLoading:       s.isLoading,
		Error:           s.errMsg,
		RepeatMode:      s.repeat,
		IsShuffled:      s.shuffled,
		SourceID:        s.sourceID,
		SourceType:      s.sourceType,
		HasNextSong:     s.hasNext(),
		HasPreviousSong: s.hasPrevious(),
	}
	copy(out.Queue, s.queue)
	if cur := s.current(); cur != nil {
		song := cur.Song
		out.CurrentSong = &song
		out.CurrentQueueID = cur.QueueID
		out.CurrentIndex = s.currentIndex
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
