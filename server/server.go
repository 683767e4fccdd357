package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"QueueFM/config"
	"QueueFM/core/player"
	"QueueFM/logger"

	"github.com/gorilla/mux"
)

// Server 播放控制 HTTP 服务
type Server struct {
	httpServer *http.Server
}

// New 创建 HTTP 服务，路由全部挂在 /api/player 下
func New(cfg *config.Config, p *player.Facade) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      NewRouter(NewPlayerHandler(p)),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// NewRouter 注册播放控制路由
func NewRouter(h *PlayerHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	api := router.PathPrefix("/api/player").Subrouter()
	api.HandleFunc("/state", h.GetState).Methods(http.MethodGet)
	api.HandleFunc("/ws", h.StateStream).Methods(http.MethodGet)

	api.HandleFunc("/play", h.Play).Methods(http.MethodPost)
	api.HandleFunc("/pause", h.Pause).Methods(http.MethodPost)
	api.HandleFunc("/resume", h.Resume).Methods(http.MethodPost)
	api.HandleFunc("/next", h.Next).Methods(http.MethodPost)
	api.HandleFunc("/previous", h.Previous).Methods(http.MethodPost)
	api.HandleFunc("/seek", h.Seek).Methods(http.MethodPost)
	api.HandleFunc("/volume", h.SetVolume).Methods(http.MethodPost)
	api.HandleFunc("/stop", h.Stop).Methods(http.MethodPost)
	api.HandleFunc("/shuffle", h.ToggleShuffle).Methods(http.MethodPost)
	api.HandleFunc("/repeat", h.SetRepeat).Methods(http.MethodPost)

	// 队列
	api.HandleFunc("/queue/next", h.QueueNext).Methods(http.MethodPost)
	api.HandleFunc("/queue/last", h.QueueLast).Methods(http.MethodPost)
	api.HandleFunc("/queue/clear", h.ClearQueue).Methods(http.MethodPost)
	api.HandleFunc("/queue/replace", h.ReplaceQueue).Methods(http.MethodPost)
	api.HandleFunc("/queue/move", h.MoveQueueItem).Methods(http.MethodPost)
	api.HandleFunc("/queue/jump", h.JumpTo).Methods(http.MethodPost)
	api.HandleFunc("/queue/{queueId}", h.RemoveFromQueue).Methods(http.MethodDelete)

	// 持久化
	api.HandleFunc("/state/save", h.SaveState).Methods(http.MethodPost)
	api.HandleFunc("/state/restore", h.RestoreState).Methods(http.MethodPost)
	api.HandleFunc("/state", h.ClearState).Methods(http.MethodDelete)

	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start 开始监听，直到 ctx 结束后优雅关闭
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP 服务启动", logger.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("正在关闭 HTTP 服务")
	return s.httpServer.Shutdown(shutdownCtx)
}
