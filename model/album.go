package model

import "time"

// Album 表示一张专辑
type Album struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Artist      string    `json:"artist" gorm:"size:255;index"`
	Name        string    `json:"name" gorm:"size:255;not null"`
	CoverPath   string    `json:"coverPath" gorm:"size:512"`
	ReleaseTime time.Time `json:"releaseTime"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (Album) TableName() string {
	return "albums"
}

// AlbumTrack 表示专辑中的一首歌曲
type AlbumTrack struct {
	ID       int64 `json:"id" gorm:"primaryKey;autoIncrement"`
	AlbumID  int64 `json:"albumId" gorm:"index;not null"`
	TrackID  int64 `json:"trackId" gorm:"not null"`
	Position int   `json:"position"`
}

// TableName 指定表名
func (AlbumTrack) TableName() string {
	return "album_tracks"
}

// Playlist 用户歌单
type Playlist struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    int64     `json:"userId" gorm:"index"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (Playlist) TableName() string {
	return "playlists"
}

// PlaylistTrack 歌单中的一首歌曲
type PlaylistTrack struct {
	ID         int64 `json:"id" gorm:"primaryKey;autoIncrement"`
	PlaylistID int64 `json:"playlistId" gorm:"index;not null"`
	TrackID    int64 `json:"trackId" gorm:"not null"`
	Position   int   `json:"position"`
}

// TableName 指定表名
func (PlaylistTrack) TableName() string {
	return "playlist_tracks"
}
