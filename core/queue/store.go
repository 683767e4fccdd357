package queue

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"QueueFM/core/playback"
	"QueueFM/logger"
	"QueueFM/model"

	"github.com/google/uuid"
)

// Options Store 构造参数
type Options struct {
	Volume float64       // 初始音量
	Rand   *rand.Rand    // 随机播放使用的随机源，nil 时按时间播种
	NewID  func() string // 队列项 ID 生成器，nil 时使用 uuid
}

type request struct {
	op    Operation
	reply chan error
}

// result 异步加载/播放的结果，gen 用于丢弃过期结果
type result struct {
	gen uint64
	op  Operation
}

// Store 播放队列。
// 所有状态变更在 Run 的事件循环中串行执行，外部只能通过 Dispatch 提交操作、
// 通过 State/Subscribe 读取快照。
type Store struct {
	player  playback.Primitive
	reducer *reducer
	st      *state

	// gen 每次开始新的加载或停止时递增，只接受当前一代的异步结果
	gen        uint64
	cancelLoad context.CancelFunc
	ctx        context.Context
	cancel     context.CancelFunc

	requests chan request
	results  chan result
	done     chan struct{}
	stopOnce sync.Once

	snapMu sync.RWMutex
	snap   model.AudioState

	subMu   sync.Mutex
	subs    map[int]chan model.AudioState
	nextSub int
}

// NewStore 创建队列，调用方需要启动 Run
func NewStore(player playback.Primitive, opts Options) *Store {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		player:   player,
		reducer:  &reducer{newID: newID, rng: rng},
		st:       newState(opts.Volume),
		ctx:      ctx,
		cancel:   cancel,
		requests: make(chan request),
		results:  make(chan result, 16),
		done:     make(chan struct{}),
		subs:     make(map[int]chan model.AudioState),
	}
	s.snap = s.st.snapshot()
	return s
}

// Run 事件循环，阻塞直到 Stop
func (s *Store) Run() {
	events := s.player.Events()
	for {
		select {
		case req := <-s.requests:
			req.reply <- s.apply(req.op)

		case res := <-s.results:
			if res.gen != s.gen {
				logger.Debug("丢弃过期的播放结果",
					logger.String("op", Name(res.op)),
					logger.Uint64("gen", res.gen),
					logger.Uint64("current", s.gen))
				continue
			}
			_ = s.apply(res.op)

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.handleEvent(ev)

		case <-s.done:
			s.cleanup()
			return
		}
	}
}

// Stop 停止事件循环
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// Dispatch 提交操作并等待其被应用。
// 非法操作返回 ErrInvalidOperation 包装的错误，状态不变。
func (s *Store) Dispatch(ctx context.Context, op Operation) error {
	req := request{op: op, reply: make(chan error, 1)}
	select {
	case s.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrStoreClosed
	}

	select {
	case err := <-req.reply:
		return err
	case <-s.done:
		select {
		case err := <-req.reply:
			return err
		default:
			return ErrStoreClosed
		}
	}
}

// State 当前快照
func (s *Store) State() model.AudioState {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

// Subscribe 订阅状态变化。慢消费者只会收到最新的快照。
// 返回的函数用于取消订阅；Store 停止时通道被关闭。
func (s *Store) Subscribe() (<-chan model.AudioState, func()) {
	ch := make(chan model.AudioState, 1)

	s.subMu.Lock()
	if s.subs == nil {
		s.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.State()
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// apply 应用操作、执行副作用并发布快照
func (s *Store) apply(op Operation) error {
	if err := s.transition(op); err != nil {
		logger.Debug("队列操作被拒绝",
			logger.String("op", Name(op)),
			logger.ErrorField(err))
		return err
	}
	s.publish()
	return nil
}

func (s *Store) transition(op Operation) error {
	next := s.st.clone()
	effects, err := s.reducer.apply(next, op)
	if err != nil {
		return err
	}
	s.st = next
	for _, eff := range effects {
		s.execute(eff)
	}
	return nil
}

func (s *Store) execute(eff effect) {
	switch eff.kind {
	case effectLoad:
		s.invalidate()
		ctx, cancel := context.WithCancel(s.ctx)
		s.cancelLoad = cancel
		gen := s.gen
		if cur := s.st.current(); cur != nil {
			logger.Info("开始加载歌曲",
				logger.String("songId", cur.Song.ID),
				logger.String("queueId", cur.QueueID),
				logger.Uint64("gen", gen))
		}
		go func() {
			err := s.player.Load(ctx, eff.url, eff.seconds)
			s.post(result{gen: gen, op: loadSettled{err: err}})
		}()

	case effectPlay:
		gen := s.gen
		go func() {
			err := s.player.Play(s.ctx)
			s.post(result{gen: gen, op: playSettled{err: err}})
		}()

	case effectPause:
		if err := s.player.Pause(); err != nil {
			logger.Warn("暂停失败", logger.ErrorField(err))
		}

	case effectSeek:
		if err := s.player.Seek(eff.seconds); err != nil {
			logger.Warn("跳转失败", logger.Float64("seconds", eff.seconds), logger.ErrorField(err))
			return
		}
		_ = s.transition(SetProgress{Seconds: eff.seconds})

	case effectVolume:
		if err := s.player.SetVolume(eff.seconds); err != nil {
			logger.Warn("设置音量失败", logger.Float64("level", eff.seconds), logger.ErrorField(err))
			return
		}
		_ = s.transition(SetVolume{Level: eff.seconds})

	case effectStop:
		s.invalidate()
		if err := s.player.Pause(); err != nil {
			logger.Warn("停止播放失败", logger.ErrorField(err))
		}
	}
}

// invalidate 开启新的一代并取消进行中的加载
func (s *Store) invalidate() {
	s.gen++
	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
}

func (s *Store) post(res result) {
	select {
	case s.results <- res:
	case <-s.done:
	}
}

// handleEvent 把播放器事件映射为状态投影
func (s *Store) handleEvent(ev playback.Event) {
	status := s.st.status
	var op Operation
	switch ev.Kind {
	case playback.EventProgress:
		if status != model.StatusPlaying && status != model.StatusPaused {
			return
		}
		op = SetProgress{Seconds: ev.Seconds}
	case playback.EventDuration:
		if status == model.StatusEmpty || status == model.StatusError {
			return
		}
		op = SetDuration{Seconds: ev.Seconds}
	case playback.EventEnded:
		op = trackEnded{}
	case playback.EventError:
		if status == model.StatusEmpty || s.st.current() == nil {
			return
		}
		logger.Warn("播放器错误",
			logger.String("songId", s.st.current().Song.ID),
			logger.ErrorField(ev.Err))
		op = SetError{Err: &LoadError{URL: s.st.current().Song.AudioURL, Err: ev.Err}}
		s.invalidate()
	default:
		return
	}
	_ = s.apply(op)
}

func (s *Store) publish() {
	snap := s.st.snapshot()

	s.snapMu.Lock()
	s.snap = snap
	s.snapMu.Unlock()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// 丢弃未读取的旧快照
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (s *Store) cleanup() {
	s.invalidate()
	s.cancel()

	s.subMu.Lock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.subs = nil
	s.subMu.Unlock()

	logger.Info("播放队列已停止")
}
