package model

// Song 可播放的歌曲元数据，由歌曲查询服务提供，播放队列内部不修改
type Song struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist,omitempty"`
	Album    string  `json:"album,omitempty"`
	Duration float64 `json:"duration"` // 秒
	AudioURL string  `json:"audioUrl"`
	CoverURL string  `json:"coverUrl,omitempty"`
}

// EntityType 可整体播放的实体类型
type EntityType string

const (
	EntityAlbum    EntityType = "album"
	EntityPlaylist EntityType = "playlist"
	EntityArtist   EntityType = "artist"
)

// Valid reports whether t is one of the known entity kinds.
func (t EntityType) Valid() bool {
	switch t {
	case EntityAlbum, EntityPlaylist, EntityArtist:
		return true
	}
	return false
}
