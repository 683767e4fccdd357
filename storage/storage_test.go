package storage

import (
	"context"
	"net/url"
	"testing"
	"time"

	"QueueFM/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticURLSigner(t *testing.T) {
	s := NewStaticURLSigner("http://cdn.local/static/")
	ctx := context.Background()

	u, err := s.SignURL(ctx, "/audio/周杰伦/晴天.mp3")
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.local/static/audio/"+url.PathEscape("周杰伦")+"/"+url.PathEscape("晴天.mp3"), u)

	u, err = s.SignURL(ctx, "https://other.host/a.mp3")
	require.NoError(t, err)
	assert.Equal(t, "https://other.host/a.mp3", u)

	u, err = s.SignURL(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, u)
}

func TestMinioURLSignerPresignsOffline(t *testing.T) {
	client, err := NewMinioClient(&config.Config{
		MinioEndpoint:  "127.0.0.1:9000",
		MinioAccessKey: "access",
		MinioSecretKey: "secret-key-123",
		MinioRegion:    "us-east-1",
	})
	require.NoError(t, err)

	s := NewMinioURLSigner(client, "music", 10*time.Minute)
	raw, err := s.SignURL(context.Background(), "/tracks/1.mp3")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", u.Host)
	assert.Equal(t, "/music/tracks/1.mp3", u.Path)
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestNewMinioClientRequiresEndpoint(t *testing.T) {
	_, err := NewMinioClient(&config.Config{})
	assert.Error(t, err)
}

func TestIsAudioKeyAndFormatSize(t *testing.T) {
	assert.True(t, IsAudioKey("a/b/song.MP3"))
	assert.True(t, IsAudioKey("x.flac"))
	assert.False(t, IsAudioKey("cover.jpg"))
	assert.False(t, IsAudioKey("noext"))

	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.5 KB", FormatSize(1536))
	assert.Equal(t, "3.0 MB", FormatSize(3*1024*1024))
}
