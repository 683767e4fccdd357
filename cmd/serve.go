package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"QueueFM/config"
	"QueueFM/logger"
	"QueueFM/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动播放服务",
	Long:  `启动播放队列与 HTTP 服务，恢复上次保存的队列，并在退出前写入最后的检查点。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg := config.Load()
	initLogger(cfg)
	defer logger.Sync()

	a, err := newApp(cfg)
	if err != nil {
		logger.Error("初始化失败", logger.ErrorField(err))
		return err
	}
	go a.store.Run()
	defer a.shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.facade.RestoreState(ctx) {
		st := a.facade.State()
		logger.Info("已恢复上次的播放队列",
			logger.Int("queue", len(st.Queue)),
			logger.Int("index", st.CurrentIndex))
	}

	states, unsubscribe := a.facade.Subscribe()
	defer unsubscribe()
	go a.persist.Watch(ctx, states)

	logger.Info("QueueFM 启动",
		logger.String("stateStore", cfg.StateStore),
		logger.String("songSource", cfg.SongSource),
		logger.Bool("audio", cfg.AudioEnabled))

	return server.New(cfg, a.facade).Start(ctx)
}
