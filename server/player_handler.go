package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"QueueFM/core/player"
	"QueueFM/core/queue"
	"QueueFM/logger"
	"QueueFM/model"

	"github.com/gorilla/mux"
)

// PlayerHandler 把 HTTP 请求转换为 Facade 调用
type PlayerHandler struct {
	player *player.Facade
}

// NewPlayerHandler 创建播放控制处理器
func NewPlayerHandler(p *player.Facade) *PlayerHandler {
	return &PlayerHandler{player: p}
}

// songsRequest 指定一组歌曲：songIds，或者 entityType + entityId
type songsRequest struct {
	SongIDs    []string         `json:"songIds"`
	EntityType model.EntityType `json:"entityType"`
	EntityID   string           `json:"entityId"`
}

func (r songsRequest) isEntity() bool {
	return r.EntityType != "" && r.EntityID != ""
}

type playRequest struct {
	songsRequest
	StartIndex int `json:"startIndex"`
}

type replaceRequest struct {
	SongIDs        []string `json:"songIds"`
	PreserveQueued bool     `json:"preserveQueued"`
}

type moveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type repeatRequest struct {
	Mode model.RepeatMode `json:"mode"` // 为空时切换到下一个模式
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("写入响应失败", logger.ErrorField(err))
	}
}

func (h *PlayerHandler) writeState(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    h.player.State(),
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": msg,
	})
}

// respond 根据错误类型选择状态码，成功时返回最新状态
func (h *PlayerHandler) respond(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		h.writeState(w)
		return
	}
	switch {
	case errors.Is(err, queue.ErrInvalidOperation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, queue.ErrStoreClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Error("播放控制请求失败",
			logger.String("path", r.URL.Path),
			logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *PlayerHandler) GetState(w http.ResponseWriter, r *http.Request) {
	h.writeState(w)
}

// Play 播放一组歌曲或整个专辑/歌单
func (h *PlayerHandler) Play(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	if req.isEntity() {
		h.respond(w, r, h.player.PlayEntity(ctx, req.EntityType, req.EntityID, req.StartIndex))
		return
	}
	songs, err := h.player.ResolveSongs(ctx, req.SongIDs)
	if err != nil {
		h.respond(w, r, err)
		return
	}
	logger.Info("收到播放请求",
		logger.Int("requested", len(req.SongIDs)),
		logger.Int("resolved", len(songs)),
		logger.Int("startIndex", req.StartIndex))
	h.respond(w, r, h.player.PlaySongs(ctx, songs, req.StartIndex))
}

func (h *PlayerHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.player.Pause(r.Context()))
}

func (h *PlayerHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.player.Resume(r.Context()))
}

func (h *PlayerHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.player.Next(r.Context()))
}

func (h *PlayerHandler) Previous(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.player.Previous(r.Context()))
}

func (h *PlayerHandler) Seek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds float64 `json:"seconds"`
	}
	if !decode(w, r, &req) {
		return
	}
	h.respond(w, r, h.player.Seek(r.Context(), req.Seconds))
}

func (h *PlayerHandler) SetVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Level float64 `json:"level"`
	}
	if !decode(w, r, &req) {
		return
	}
	h.respond(w, r, h.player.SetVolume(r.Context(), req.Level))
}

// Stop 停止播放并清空队列
func (h *PlayerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.player.Stop(r.Context()))
}

func (h *PlayerHandler) ToggleShuffle(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.player.ToggleShuffleQueue(r.Context()))
}

func (h *PlayerHandler) SetRepeat(w http.ResponseWriter, r *http.Request) {
	var req repeatRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	if req.Mode == "" {
		h.respond(w, r, h.player.ToggleRepeatMode(r.Context()))
		return
	}
	h.respond(w, r, h.player.SetRepeatMode(r.Context(), req.Mode))
}

func (h *PlayerHandler) QueueNext(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, true)
}

func (h *PlayerHandler) QueueLast(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, false)
}

func (h *PlayerHandler) enqueue(w http.ResponseWriter, r *http.Request, next bool) {
	var req songsRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	if req.isEntity() {
		if next {
			h.respond(w, r, h.player.QueueListNext(ctx, req.EntityType, req.EntityID))
		} else {
			h.respond(w, r, h.player.QueueListLast(ctx, req.EntityType, req.EntityID))
		}
		return
	}

	songs, err := h.player.ResolveSongs(ctx, req.SongIDs)
	if err != nil {
		h.respond(w, r, err)
		return
	}
	if len(songs) == 0 {
		writeError(w, http.StatusBadRequest, "no playable songs")
		return
	}
	if next {
		h.respond(w, r, h.player.QueueSongsNext(ctx, songs))
	} else {
		h.respond(w, r, h.player.QueueSongsLast(ctx, songs))
	}
}

func (h *PlayerHandler) ClearQueue(w http.ResponseWriter, r *http.Request) {
	var opts player.ClearOptions
	if r.ContentLength != 0 && !decode(w, r, &opts) {
		return
	}
	h.respond(w, r, h.player.ClearQueue(r.Context(), opts))
}

func (h *PlayerHandler) ReplaceQueue(w http.ResponseWriter, r *http.Request) {
	var req replaceRequest
	if !decode(w, r, &req) {
		return
	}
	songs, err := h.player.ResolveSongs(r.Context(), req.SongIDs)
	if err != nil {
		h.respond(w, r, err)
		return
	}
	h.respond(w, r, h.player.ReplaceQueue(r.Context(), songs, req.PreserveQueued))
}

func (h *PlayerHandler) MoveQueueItem(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decode(w, r, &req) {
		return
	}
	h.respond(w, r, h.player.MoveQueueItem(r.Context(), req.From, req.To))
}

func (h *PlayerHandler) JumpTo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if !decode(w, r, &req) {
		return
	}
	h.respond(w, r, h.player.JumpTo(r.Context(), req.Index))
}

func (h *PlayerHandler) RemoveFromQueue(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.player.RemoveFromQueue(r.Context(), mux.Vars(r)["queueId"]))
}

func (h *PlayerHandler) SaveState(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.player.SaveState(r.Context()))
}

func (h *PlayerHandler) ClearState(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.player.ClearPersistedState(r.Context()))
}

// RestoreState 恢复上次保存的队列，没有可恢复的记录时 restored 为 false
func (h *PlayerHandler) RestoreState(w http.ResponseWriter, r *http.Request) {
	restored := h.player.RestoreState(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"restored": restored,
		"data":     h.player.State(),
	})
}
