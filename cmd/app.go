package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"QueueFM/cache"
	"QueueFM/config"
	"QueueFM/core/catalog"
	"QueueFM/core/persist"
	"QueueFM/core/playback"
	"QueueFM/core/player"
	"QueueFM/core/queue"
	"QueueFM/db"
	"QueueFM/logger"
	"QueueFM/repository"
	"QueueFM/storage"
)

// app 组装好的播放服务依赖
type app struct {
	cfg     *config.Config
	player  playback.Primitive
	store   *queue.Store
	persist *persist.Manager
	facade  *player.Facade
	closers []func() error
}

func initLogger(cfg *config.Config) {
	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   true,
	})
}

func (a *app) ensureRedis() error {
	if cache.RedisClient != nil {
		return nil
	}
	if err := cache.ConnectRedis(a.cfg); err != nil {
		cache.RedisClient = nil
		return err
	}
	a.closers = append(a.closers, cache.CloseRedis)
	logger.Info("Redis 连接成功",
		logger.String("host", a.cfg.RedisHost),
		logger.Int("db", a.cfg.RedisDB))
	return nil
}

func (a *app) ensureDB() error {
	if db.GormDB != nil {
		return nil
	}
	if err := db.ConnectGormDB(a.cfg); err != nil {
		return err
	}
	a.closers = append(a.closers, db.CloseGormDB)
	return db.AutoMigrate(db.GormDB)
}

// newStateStore 按配置选择快照存储
func (a *app) newStateStore() (persist.KVStore, error) {
	switch a.cfg.StateStore {
	case config.StateStoreRedis:
		if err := a.ensureRedis(); err != nil {
			return nil, err
		}
		return cache.NewRedisStateStore(cache.RedisClient), nil
	case config.StateStoreMySQL:
		if err := a.ensureDB(); err != nil {
			return nil, err
		}
		return repository.NewGormStateStore(db.GormDB), nil
	case config.StateStoreMemory:
		logger.Warn("使用内存存储播放状态，重启后无法恢复")
		return persist.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown state store %q", a.cfg.StateStore)
	}
}

func (a *app) newSigner() (storage.URLSigner, error) {
	if a.cfg.MinioEndpoint == "" {
		return storage.NewStaticURLSigner(a.cfg.StaticBaseURL), nil
	}
	client, err := storage.NewMinioClient(a.cfg)
	if err != nil {
		return nil, err
	}
	return storage.NewMinioURLSigner(client, a.cfg.MinioBucket, a.cfg.AudioURLExpiry), nil
}

// newCatalog 按配置选择歌曲来源，Redis 可用时在外层加缓存
func (a *app) newCatalog() (cache.SongSource, error) {
	var source cache.SongSource
	switch a.cfg.SongSource {
	case config.SongSourceMySQL:
		if err := a.ensureDB(); err != nil {
			return nil, err
		}
		signer, err := a.newSigner()
		if err != nil {
			return nil, err
		}
		source = repository.NewGormSongRepository(db.GormDB, signer)
	case config.SongSourceHTTP:
		client := catalog.NewClient(a.cfg.CatalogAPIURL)
		if a.cfg.CatalogTimeout > 0 {
			client.SetTimeout(a.cfg.CatalogTimeout)
		}
		source = client
	default:
		return nil, fmt.Errorf("unknown song source %q", a.cfg.SongSource)
	}

	if a.cfg.SongCacheTTL <= 0 {
		return source, nil
	}
	if err := a.ensureRedis(); err != nil {
		logger.Warn("Redis 不可用，歌曲查询不走缓存", logger.ErrorField(err))
		return source, nil
	}
	return cache.NewSongCache(cache.RedisClient, source, a.cfg.SongCacheTTL), nil
}

func newPrimitive(cfg *config.Config) playback.Primitive {
	if !cfg.AudioEnabled {
		return playback.NewNullPrimitive()
	}
	p, err := playback.NewSpeakerPrimitive(&http.Client{Timeout: 60 * time.Second})
	if err != nil {
		logger.Warn("无法启用音频输出，改用静音播放器", logger.ErrorField(err))
		return playback.NewNullPrimitive()
	}
	return p
}

// newApp 创建所有依赖，队列尚未启动
func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	kv, err := a.newStateStore()
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to init state store: %w", err)
	}
	songs, err := a.newCatalog()
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to init song source: %w", err)
	}

	a.player = newPrimitive(cfg)
	a.store = queue.NewStore(a.player, queue.Options{Volume: cfg.DefaultVolume})
	a.persist = persist.NewManager(kv, songs, persist.Options{
		Key:                cfg.StateKey,
		CheckpointInterval: cfg.CheckpointInterval,
	})
	a.facade = player.New(a.store, songs, a.persist)
	return a, nil
}

// newStateManager 只用于读写快照的命令，不启动播放
func newStateManager(cfg *config.Config) (*persist.Manager, func(), error) {
	a := &app{cfg: cfg}
	kv, err := a.newStateStore()
	if err != nil {
		a.close()
		return nil, nil, err
	}
	return persist.NewManager(kv, nil, persist.Options{Key: cfg.StateKey}), a.close, nil
}

// shutdown 写入最后的检查点后停止队列
func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.persist.Flush(ctx); err != nil {
		logger.Error("退出前保存播放状态失败", logger.ErrorField(err))
	}
	a.store.Stop()
	if err := a.player.Close(); err != nil {
		logger.Warn("关闭播放器失败", logger.ErrorField(err))
	}
	a.close()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("释放资源失败", logger.ErrorField(err))
		}
	}
	a.closers = nil
}
