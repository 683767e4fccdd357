package repository

import (
	"context"
	"fmt"
	"strconv"

	"QueueFM/logger"
	"QueueFM/model"
	"QueueFM/storage"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// SongRepository 从曲库查询可播放的歌曲
type SongRepository interface {
	ResolveSongs(ctx context.Context, ids []string) ([]model.Song, error)
	ResolveSongsForEntity(ctx context.Context, kind model.EntityType, id string) ([]model.Song, error)
}

// gormSongRepository GORM 实现
type gormSongRepository struct {
	db     *gorm.DB
	signer storage.URLSigner
}

// NewGormSongRepository 创建 GORM 歌曲仓库，signer 负责生成音频和封面地址
func NewGormSongRepository(db *gorm.DB, signer storage.URLSigner) SongRepository {
	return &gormSongRepository{db: db, signer: signer}
}

// ResolveSongs 按 ID 查询，非数字 ID 与已下架歌曲被忽略
func (r *gormSongRepository) ResolveSongs(ctx context.Context, ids []string) ([]model.Song, error) {
	trackIDs := lo.FilterMap(ids, func(id string, _ int) (int64, bool) {
		n, err := strconv.ParseInt(id, 10, 64)
		return n, err == nil
	})
	if len(trackIDs) == 0 {
		return nil, nil
	}

	var tracks []model.Track
	err := r.db.WithContext(ctx).
		Where("id IN ? AND state = ?", lo.Uniq(trackIDs), model.TrackStateNormal).
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	return r.toSongs(ctx, tracks), nil
}

// ResolveSongsForEntity 查询专辑、歌单（按曲目顺序）或歌手（按名称）的歌曲
func (r *gormSongRepository) ResolveSongsForEntity(ctx context.Context, kind model.EntityType, id string) ([]model.Song, error) {
	q := r.db.WithContext(ctx).Model(&model.Track{}).Where("tracks.state = ?", model.TrackStateNormal)

	switch kind {
	case model.EntityAlbum:
		q = q.Joins("JOIN album_tracks ON album_tracks.track_id = tracks.id").
			Where("album_tracks.album_id = ?", id).
			Order("album_tracks.position, tracks.id")
	case model.EntityPlaylist:
		q = q.Joins("JOIN playlist_tracks ON playlist_tracks.track_id = tracks.id").
			Where("playlist_tracks.playlist_id = ?", id).
			Order("playlist_tracks.position, tracks.id")
	case model.EntityArtist:
		q = q.Where("tracks.artist = ?", id).Order("tracks.album, tracks.id")
	default:
		return nil, fmt.Errorf("unknown entity type %q", kind)
	}

	var tracks []model.Track
	if err := q.Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s %s: %w", kind, id, err)
	}
	return r.toSongs(ctx, tracks), nil
}

func (r *gormSongRepository) toSongs(ctx context.Context, tracks []model.Track) []model.Song {
	songs := make([]model.Song, 0, len(tracks))
	for i := range tracks {
		t := &tracks[i]
		audioURL, err := r.signer.SignURL(ctx, t.FilePath)
		if err != nil || audioURL == "" {
			logger.Warn("歌曲音频地址不可用",
				logger.Int64("trackId", t.ID),
				logger.ErrorField(err))
			continue
		}
		coverURL, err := r.signer.SignURL(ctx, t.CoverArtPath)
		if err != nil {
			coverURL = ""
		}
		songs = append(songs, t.ToSong(audioURL, coverURL))
	}
	return songs
}
