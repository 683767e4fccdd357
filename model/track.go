package model

import (
	"strconv"
	"time"
)

// Track 曲库中的一首歌曲（数据库表）
type Track struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Title        string    `json:"title" gorm:"size:255;not null"`
	Artist       string    `json:"artist" gorm:"size:255;index"`
	Album        string    `json:"album" gorm:"size:255"`
	FilePath     string    `json:"-" gorm:"size:512"` // MinIO 对象路径，不直接对外暴露
	CoverArtPath string    `json:"coverArtPath" gorm:"size:512"`
	Duration     float32   `json:"duration"`               // 秒
	State        int8      `json:"state" gorm:"default:1"` // 0=软删除，1=正常
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (Track) TableName() string {
	return "tracks"
}

// TrackStateNormal 正常状态；软删除或下架的歌曲不会被解析为可播放歌曲
const TrackStateNormal int8 = 1

// ToSong 转换为播放队列使用的 Song
func (t *Track) ToSong(audioURL, coverURL string) Song {
	return Song{
		ID:       strconv.FormatInt(t.ID, 10),
		Title:    t.Title,
		Artist:   t.Artist,
		Album:    t.Album,
		Duration: float64(t.Duration),
		AudioURL: audioURL,
		CoverURL: coverURL,
	}
}
