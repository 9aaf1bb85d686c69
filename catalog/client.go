// Package catalog is the player side of the catalog API: an HTTP client,
// a change feed subscriber and a search debouncer.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"Melodix/model"
)

// ErrEmptyQuery is returned by Search for a blank query.
var ErrEmptyQuery = errors.New("empty search query")

// APIError is a non-success envelope returned by the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("catalog api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("catalog api: %d %s", e.Status, e.Message)
}

// Client talks to the catalog API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for baseURL, e.g. "http://localhost:8000".
// token is sent as a bearer token when non-empty.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type songsResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Songs   []*model.Song `json:"songs"`
}

type albumsResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Albums  []*model.Album `json:"albums"`
}

// ListSongs fetches the whole catalog in playlist order.
func (c *Client) ListSongs(ctx context.Context) ([]*model.Song, error) {
	var resp songsResponse
	if err := c.get(ctx, "/api/song/list", &resp); err != nil {
		return nil, err
	}
	return withURLs(resp.Songs), nil
}

// Search returns songs whose name or description contains query.
func (c *Client) Search(ctx context.Context, query string) ([]*model.Song, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	var resp songsResponse
	if err := c.get(ctx, "/api/song/search/"+url.PathEscape(query), &resp); err != nil {
		return nil, err
	}
	return withURLs(resp.Songs), nil
}

// ListAlbums fetches the albums, newest first.
func (c *Client) ListAlbums(ctx context.Context) ([]*model.Album, error) {
	var resp albumsResponse
	if err := c.get(ctx, "/api/album/list", &resp); err != nil {
		return nil, err
	}
	return resp.Albums, nil
}

// AlbumSongs fetches the songs filed under the album with id.
func (c *Client) AlbumSongs(ctx context.Context, id string) ([]*model.Song, error) {
	var resp songsResponse
	if err := c.get(ctx, "/api/album/"+url.PathEscape(id)+"/songs", &resp); err != nil {
		return nil, err
	}
	return withURLs(resp.Songs), nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var env struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&env)
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// withURLs fills URL from File for rows that predate the url column.
func withURLs(songs []*model.Song) []*model.Song {
	for _, s := range songs {
		s.EnsureURL()
	}
	return songs
}
