package queue

import (
	"errors"
	"math/rand"

	"QueueFM/core/shuffle"
	"QueueFM/model"

	"github.com/samber/lo"
)

type effectKind int

const (
	effectLoad   effectKind = iota // 加载当前歌曲，开启新的一代
	effectPlay                     // 播放已加载的资源
	effectPause                    // 暂停
	effectSeek                     // 跳转，成功后更新进度
	effectVolume                   // 调整音量，成功后更新音量
	effectStop                     // 作废进行中的加载并暂停
)

// effect reducer 产生的副作用，由 Store 在事件循环中执行
type effect struct {
	kind    effectKind
	url     string
	seconds float64
}

// reducer 纯状态转换：在状态副本上应用操作并返回需要执行的副作用。
// 返回错误时副本被丢弃。
type reducer struct {
	newID func() string
	rng   *rand.Rand
}

func (r *reducer) apply(s *state, op Operation) ([]effect, error) {
	switch o := op.(type) {
	case PlaySong:
		return r.playList(s, []model.Song{o.Song}, 0, "", "", o.PreserveQueued)
	case PlayList:
		return r.playList(s, o.Songs, o.StartIndex, o.SourceID, o.SourceType, o.PreserveQueued)
	case QueueNext:
		return nil, r.insertAdhoc(s, []model.Song{o.Song}, model.QueueTypeNext)
	case QueueListNext:
		return nil, r.insertAdhoc(s, o.Songs, model.QueueTypeNext)
	case QueueLast:
		return nil, r.insertAdhoc(s, []model.Song{o.Song}, model.QueueTypeLast)
	case QueueListLast:
		return nil, r.insertAdhoc(s, o.Songs, model.QueueTypeLast)
	case NextSong:
		return r.next(s)
	case PreviousSong:
		return r.previous(s)
	case JumpTo:
		if o.Index < 0 || o.Index >= len(s.queue) {
			return nil, invalidf("jump index %d out of range [0,%d)", o.Index, len(s.queue))
		}
		s.currentIndex = o.Index
		return r.startPlayback(s, true), nil
	case RemoveItem:
		return r.remove(s, o.QueueID)
	case ToggleShuffle:
		r.toggleShuffle(s)
		return nil, nil
	case MoveQueueItem:
		return nil, r.move(s, o.From, o.To)
	case ClearQueue:
		return r.clear(s, o.PreserveQueued, o.PreserveCurrentSong), nil
	case ReplaceQueue:
		return r.replace(s, o.Songs, o.PreserveQueued), nil
	case SetRepeatMode:
		if !o.Mode.Valid() {
			return nil, invalidf("unknown repeat mode %q", o.Mode)
		}
		s.repeat = o.Mode
		return nil, nil
	case ToggleRepeatMode:
		s.repeat = s.repeat.Next()
		return nil, nil
	case Pause:
		return r.pause(s), nil
	case Resume:
		return r.resume(s)
	case Seek:
		return r.seek(s, o.Seconds)
	case ChangeVolume:
		return []effect{{kind: effectVolume, seconds: clamp(o.Level, 0, 1)}}, nil
	case SetVolume:
		s.volume = clamp(o.Level, 0, 1)
		return nil, nil
	case SetProgress:
		s.progress = r.clampProgress(s, o.Seconds)
		return nil, nil
	case SetDuration:
		if o.Seconds > 0 {
			s.duration = o.Seconds
			s.progress = r.clampProgress(s, s.progress)
		}
		return nil, nil
	case SetLoading:
		s.isLoading = o.Loading
		return nil, nil
	case SetError:
		r.fail(s, o.Err)
		return nil, nil
	case RestoreState:
		return r.restore(s, o)
	case loadSettled:
		return r.loadSettled(s, o.err), nil
	case playSettled:
		return r.playSettled(s, o.err), nil
	case trackEnded:
		return r.trackEnded(s)
	default:
		return nil, invalidf("unsupported operation %T", op)
	}
}

func (r *reducer) newItems(songs []model.Song, sourceID string, sourceType model.EntityType) []model.QueueItem {
	return lo.Map(songs, func(song model.Song, _ int) model.QueueItem {
		return model.QueueItem{
			Song:          song,
			QueueID:       r.newID(),
			OriginalIndex: -1,
			SourceID:      sourceID,
			SourceType:    sourceType,
		}
	})
}

// startPlayback 加载当前项；autoplay 为 false 时加载后停在暂停状态
func (r *reducer) startPlayback(s *state, autoplay bool) []effect {
	cur := s.current()
	s.status = model.StatusLoading
	s.isLoading = true
	s.errMsg = ""
	s.progress = 0
	s.duration = cur.Song.Duration
	s.loaded = false
	s.autoplay = autoplay
	return []effect{{kind: effectLoad, url: cur.Song.AudioURL, seconds: cur.Song.Duration}}
}

// stop 清除当前项，队列内容由调用方决定
func (r *reducer) stop(s *state) []effect {
	s.status = model.StatusEmpty
	s.currentIndex = -1
	s.isLoading = false
	s.errMsg = ""
	s.progress = 0
	s.duration = 0
	s.loaded = false
	s.autoplay = false
	return []effect{{kind: effectStop}}
}

func (r *reducer) fail(s *state, err error) {
	if err == nil {
		err = errors.New("playback error")
	}
	s.status = model.StatusError
	s.errMsg = err.Error()
	s.isLoading = false
	s.loaded = false
	s.autoplay = false
}

func (r *reducer) clampProgress(s *state, seconds float64) float64 {
	if seconds < 0 {
		return 0
	}
	if s.duration > 0 && seconds > s.duration {
		return s.duration
	}
	return seconds
}

// upcomingQueued 当前项之后的临时项
func (r *reducer) upcomingQueued(s *state) []model.QueueItem {
	return lo.Filter(s.queue, func(it model.QueueItem, i int) bool {
		return i > s.currentIndex && it.IsQueued
	})
}

// window 超过 MaxQueueSize 时截取包含 start 的一段，尽量从头开始
func window(n, start int) (offset, end int) {
	if n <= MaxQueueSize {
		return 0, n
	}
	if start >= MaxQueueSize {
		offset = min(start, n-MaxQueueSize)
	}
	return offset, offset + MaxQueueSize
}

// withPreserved 把保留的临时项放在 start 之后
func withPreserved(items []model.QueueItem, start int, preserved []model.QueueItem) []model.QueueItem {
	out := make([]model.QueueItem, 0, len(items)+len(preserved))
	out = append(out, items[:start+1]...)
	out = append(out, preserved...)
	out = append(out, items[start+1:]...)
	return out
}

func (r *reducer) playList(s *state, songs []model.Song, start int, sourceID string, sourceType model.EntityType, preserveQueued bool) ([]effect, error) {
	if len(songs) == 0 {
		return nil, invalidf("empty song list")
	}
	if start < 0 || start >= len(songs) {
		return nil, invalidf("start index %d out of range [0,%d)", start, len(songs))
	}
	offset, end := window(len(songs), start)
	songs, start = songs[offset:end], start-offset

	var preserved []model.QueueItem
	if preserveQueued {
		preserved = r.upcomingQueued(s)
	}

	s.queue = withPreserved(r.newItems(songs, sourceID, sourceType), start, preserved)
	s.currentIndex = start
	s.sourceID = sourceID
	s.sourceType = sourceType
	if s.shuffled {
		s.queue = shuffle.Shuffle(s.queue, s.currentIndex, r.rng)
	}
	r.enforceCaps(s)
	return r.startPlayback(s, true), nil
}

// insertAdhoc 插入临时项。
// next: 当前项之后、已有的连续"下一首播放"项之后（先插入的先播放）；
// last: 当前项之后最后一个临时项之后，没有临时项时追加到末尾。
func (r *reducer) insertAdhoc(s *state, songs []model.Song, queueType string) error {
	if len(songs) == 0 {
		return invalidf("empty song list")
	}

	pos := s.currentIndex + 1
	switch queueType {
	case model.QueueTypeNext:
		for pos < len(s.queue) && s.queue[pos].IsQueued && s.queue[pos].QueueType == model.QueueTypeNext {
			pos++
		}
	default:
		pos = len(s.queue)
		for i := len(s.queue) - 1; i > s.currentIndex; i-- {
			if s.queue[i].IsQueued {
				pos = i + 1
				break
			}
		}
	}

	items := r.newItems(songs, "", "")
	for k := range items {
		s.seq++
		items[k].IsQueued = true
		items[k].QueueType = queueType
		items[k].AddedSeq = s.seq
		items[k].RelativePosition = pos + k - s.currentIndex
	}

	out := make([]model.QueueItem, 0, len(s.queue)+len(items))
	out = append(out, s.queue[:pos]...)
	out = append(out, items...)
	out = append(out, s.queue[pos:]...)
	s.queue = out

	r.enforceCaps(s)
	return nil
}

// enforceCaps 临时项超限时淘汰最早插入的；总长度超限时先丢弃末尾的自然顺序项
func (r *reducer) enforceCaps(s *state) {
	for s.queuedCount() > MaxQueuedSongs {
		idx := r.oldestQueued(s)
		if idx < 0 {
			break
		}
		r.removeAt(s, idx)
	}
	for len(s.queue) > MaxQueueSize {
		idx := -1
		for i := len(s.queue) - 1; i > s.currentIndex; i-- {
			if !s.queue[i].IsQueued {
				idx = i
				break
			}
		}
		if idx < 0 {
			idx = r.oldestQueued(s)
		}
		if idx < 0 {
			break
		}
		r.removeAt(s, idx)
	}
}

func (r *reducer) oldestQueued(s *state) int {
	idx := -1
	for i, it := range s.queue {
		if !it.IsQueued || i == s.currentIndex {
			continue
		}
		if idx < 0 || it.AddedSeq < s.queue[idx].AddedSeq {
			idx = i
		}
	}
	return idx
}

// removeAt 移除非当前项并修正 currentIndex
func (r *reducer) removeAt(s *state, idx int) {
	s.queue = append(s.queue[:idx], s.queue[idx+1:]...)
	if idx < s.currentIndex {
		s.currentIndex--
	}
}

func (r *reducer) next(s *state) ([]effect, error) {
	if len(s.queue) == 0 {
		return nil, invalidf("queue is empty")
	}
	if s.current() == nil {
		s.currentIndex = 0
		return r.startPlayback(s, true), nil
	}
	if s.currentIndex < len(s.queue)-1 {
		s.currentIndex++
		return r.startPlayback(s, true), nil
	}

	switch s.repeat {
	case model.RepeatAll:
		s.currentIndex = 0
		return r.startPlayback(s, true), nil
	case model.RepeatOne:
		return r.replay(s), nil
	default:
		return r.stop(s), nil
	}
}

// replay 从头重播当前项。播放结束后的资源已被播放器释放，需要重新加载
func (r *reducer) replay(s *state) []effect {
	if !s.loaded || s.status == model.StatusEnded {
		return r.startPlayback(s, true)
	}
	if s.status != model.StatusPlaying {
		s.status = model.StatusPaused
	}
	s.autoplay = true
	return []effect{{kind: effectSeek, seconds: 0}, {kind: effectPlay}}
}

// restart 回到当前项开头，不改变播放/暂停状态
func (r *reducer) restart(s *state) []effect {
	if !s.loaded {
		s.progress = 0
		return nil
	}
	return []effect{{kind: effectSeek, seconds: 0}}
}

func (r *reducer) previous(s *state) ([]effect, error) {
	if s.current() == nil {
		return nil, invalidf("nothing is playing")
	}
	if s.progress >= PreviousSongThreshold {
		return r.restart(s), nil
	}
	if s.currentIndex > 0 {
		s.currentIndex--
		return r.startPlayback(s, true), nil
	}
	if s.repeat == model.RepeatAll && len(s.queue) > 1 {
		s.currentIndex = len(s.queue) - 1
		return r.startPlayback(s, true), nil
	}
	return r.restart(s), nil
}

func (r *reducer) trackEnded(s *state) ([]effect, error) {
	if s.status != model.StatusPlaying {
		return nil, nil
	}
	s.status = model.StatusEnded
	if s.repeat == model.RepeatOne {
		return r.replay(s), nil
	}
	return r.next(s)
}

// remove 移除队列项；移除当前项时先切到下一首
func (r *reducer) remove(s *state, queueID string) ([]effect, error) {
	idx := s.indexOf(queueID)
	if idx < 0 {
		return nil, invalidf("queue item %q not found", queueID)
	}
	if idx != s.currentIndex {
		r.removeAt(s, idx)
		return nil, nil
	}

	if len(s.queue) == 1 {
		s.queue = s.queue[:0]
		s.sourceID, s.sourceType = "", ""
		return r.stop(s), nil
	}

	s.queue = append(s.queue[:idx], s.queue[idx+1:]...)
	switch {
	case idx < len(s.queue):
		// 下一项移到了 idx
	case s.repeat == model.RepeatAll:
		s.currentIndex = 0
	default:
		return r.stop(s), nil
	}
	return r.startPlayback(s, true), nil
}

func (r *reducer) toggleShuffle(s *state) {
	if s.shuffled {
		s.queue = shuffle.Unshuffle(s.queue, s.currentIndex)
	} else {
		s.queue = shuffle.Shuffle(s.queue, s.currentIndex, r.rng)
	}
	s.shuffled = !s.shuffled
}

func (r *reducer) move(s *state, from, to int) error {
	n := len(s.queue)
	if from < 0 || from >= n || to < 0 || to >= n {
		return invalidf("move %d -> %d out of range [0,%d)", from, to, n)
	}
	if from == s.currentIndex {
		return invalidf("cannot move the playing item")
	}
	if from == to {
		return nil
	}

	var curID string
	if cur := s.current(); cur != nil {
		curID = cur.QueueID
	}

	item := s.queue[from]
	rest := append(s.queue[:from:from], s.queue[from+1:]...)
	out := make([]model.QueueItem, 0, n)
	out = append(out, rest[:to]...)
	out = append(out, item)
	out = append(out, rest[to:]...)
	s.queue = out

	if curID != "" {
		s.currentIndex = s.indexOf(curID)
	}
	return nil
}

func (r *reducer) clear(s *state, preserveQueued, preserveCurrent bool) []effect {
	cur := s.current()

	var keep []model.QueueItem
	if preserveCurrent && cur != nil {
		keep = append(keep, *cur)
	}
	if preserveQueued {
		keep = append(keep, r.upcomingQueued(s)...)
	}
	s.queue = keep

	if preserveCurrent && cur != nil {
		s.currentIndex = 0
		return nil
	}
	s.sourceID, s.sourceType = "", ""
	return r.stop(s)
}

func (r *reducer) replace(s *state, songs []model.Song, preserveQueued bool) []effect {
	if len(songs) == 0 {
		return r.clear(s, preserveQueued, false)
	}
	if len(songs) > MaxQueueSize {
		songs = songs[:MaxQueueSize]
	}
	autoplay := s.status == model.StatusPlaying || (s.status == model.StatusLoading && s.autoplay)

	var preserved []model.QueueItem
	if preserveQueued {
		preserved = r.upcomingQueued(s)
	}

	s.queue = withPreserved(r.newItems(songs, "", ""), 0, preserved)
	s.currentIndex = 0
	s.sourceID, s.sourceType = "", ""
	if s.shuffled {
		s.queue = shuffle.Shuffle(s.queue, s.currentIndex, r.rng)
	}
	r.enforceCaps(s)
	return r.startPlayback(s, autoplay)
}

func (r *reducer) pause(s *state) []effect {
	switch s.status {
	case model.StatusPlaying:
		s.status = model.StatusPaused
		s.autoplay = false
		return []effect{{kind: effectPause}}
	case model.StatusLoading, model.StatusPaused:
		s.autoplay = false
	}
	return nil
}

func (r *reducer) resume(s *state) ([]effect, error) {
	switch s.status {
	case model.StatusPlaying:
		return nil, nil
	case model.StatusLoading:
		s.autoplay = true
		return nil, nil
	case model.StatusPaused:
		if s.loaded {
			s.autoplay = true
			return []effect{{kind: effectPlay}}, nil
		}
		return r.startPlayback(s, true), nil
	case model.StatusError:
		if s.current() == nil {
			return nil, invalidf("nothing to resume")
		}
		return r.startPlayback(s, true), nil
	default:
		if len(s.queue) == 0 {
			return nil, invalidf("queue is empty")
		}
		if s.current() == nil {
			s.currentIndex = 0
		}
		return r.startPlayback(s, true), nil
	}
}

func (r *reducer) seek(s *state, seconds float64) ([]effect, error) {
	if s.current() == nil {
		return nil, invalidf("nothing is playing")
	}
	if !s.loaded {
		return nil, invalidf("current song is not loaded")
	}
	return []effect{{kind: effectSeek, seconds: r.clampProgress(s, seconds)}}, nil
}

func (r *reducer) restore(s *state, o RestoreState) ([]effect, error) {
	if len(o.Entries) == 0 {
		return nil, invalidf("nothing to restore")
	}
	if o.CurrentIndex < 0 || o.CurrentIndex >= len(o.Entries) {
		return nil, invalidf("restore index %d out of range [0,%d)", o.CurrentIndex, len(o.Entries))
	}

	offset, end := window(len(o.Entries), o.CurrentIndex)
	entries, current := o.Entries[offset:end], o.CurrentIndex-offset

	items := make([]model.QueueItem, len(entries))
	for i, e := range entries {
		items[i] = model.QueueItem{
			Song:          e.Song,
			QueueID:       r.newID(),
			OriginalIndex: -1,
		}
		if e.IsQueued {
			s.seq++
			items[i].IsQueued = true
			items[i].QueueType = model.QueueTypeLast
			items[i].AddedSeq = s.seq
			items[i].RelativePosition = i - current
		}
	}

	s.queue = items
	s.currentIndex = current
	s.status = model.StatusPaused
	s.isLoading = false
	s.errMsg = ""
	s.progress = 0
	s.duration = items[current].Song.Duration
	s.shuffled = false
	s.sourceID, s.sourceType = "", ""
	s.loaded = false
	s.autoplay = false
	r.enforceCaps(s)

	// 恢复后保持暂停，等待 Resume 再加载
	return []effect{{kind: effectStop}, {kind: effectVolume, seconds: clamp(o.Volume, 0, 1)}}, nil
}

func (r *reducer) loadSettled(s *state, err error) []effect {
	if s.status != model.StatusLoading {
		return nil
	}
	if err != nil {
		r.fail(s, &LoadError{URL: s.current().Song.AudioURL, Err: err})
		return nil
	}
	s.loaded = true
	if s.autoplay {
		return []effect{{kind: effectPlay}}
	}
	s.status = model.StatusPaused
	s.isLoading = false
	return nil
}

func (r *reducer) playSettled(s *state, err error) []effect {
	switch s.status {
	case model.StatusLoading, model.StatusPaused, model.StatusPlaying:
	default:
		return nil
	}
	if err != nil {
		r.fail(s, &LoadError{URL: s.current().Song.AudioURL, Err: err})
		return nil
	}
	s.isLoading = false
	if !s.autoplay {
		s.status = model.StatusPaused
		return []effect{{kind: effectPause}}
	}
	s.status = model.StatusPlaying
	return nil
}
