// Package catalog 通过 HTTP 调用歌曲查询后端。
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"QueueFM/logger"
	"QueueFM/model"

	"github.com/samber/lo"
)

// maxIDsPerRequest 单次批量查询的歌曲数量上限
const maxIDsPerRequest = 100

// Client 歌曲查询后端客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建新的API客户端
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
	}
}

// SetTimeout 设置请求超时时间
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

type songsResponse struct {
	Code int          `json:"code"`
	Msg  string       `json:"msg,omitempty"`
	Data []model.Song `json:"data"`
}

// ResolveSongs 批量查询歌曲，后端不认识的 ID 不会出现在结果中
func (c *Client) ResolveSongs(ctx context.Context, ids []string) ([]model.Song, error) {
	var out []model.Song
	for _, chunk := range lo.Chunk(ids, maxIDsPerRequest) {
		q := url.Values{"ids": {strings.Join(chunk, ",")}}
		songs, err := c.getSongs(ctx, "/songs?"+q.Encode())
		if err != nil {
			return nil, err
		}
		out = append(out, songs...)
	}
	return out, nil
}

// ResolveSongsForEntity 查询专辑、歌单或歌手的全部歌曲
func (c *Client) ResolveSongsForEntity(ctx context.Context, kind model.EntityType, id string) ([]model.Song, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown entity type %q", kind)
	}
	return c.getSongs(ctx, fmt.Sprintf("/%ss/%s/songs", kind, url.PathEscape(id)))
}

func (c *Client) getSongs(ctx context.Context, path string) ([]model.Song, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.Warn("歌曲查询后端返回错误状态码",
			logger.String("path", path),
			logger.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("catalog returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result songsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}
	if result.Code != http.StatusOK {
		return nil, fmt.Errorf("catalog error: %s (code: %d)", result.Msg, result.Code)
	}
	return result.Data, nil
}
