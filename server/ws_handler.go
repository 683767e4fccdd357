package server

import (
	"net/http"
	"time"

	"QueueFM/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StateStream 通过 WebSocket 推送播放状态，连接建立后先发送当前快照。
// 客户端较慢时只保证收到最新的状态。
func (h *PlayerHandler) StateStream(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket 升级失败", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	states, unsubscribe := h.player.Subscribe()
	defer unsubscribe()

	logger.Info("状态订阅连接建立", logger.String("remote", r.RemoteAddr))

	// 读协程只处理 pong 和关闭帧
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Warn("状态订阅连接异常关闭", logger.ErrorField(err))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case st, ok := <-states:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 队列已停止
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "player stopped"))
				return
			}
			if err := conn.WriteJSON(st); err != nil {
				logger.Debug("推送状态失败", logger.ErrorField(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			logger.Info("状态订阅连接关闭", logger.String("remote", r.RemoteAddr))
			return
		}
	}
}
