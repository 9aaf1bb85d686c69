package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Melodix/core/feed"
	"Melodix/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/song/list", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"success":true,"songs":[
			{"_id":"1","name":"One","file":"http://m/1.mp3","duration":"3:05"},
			{"_id":"2","name":"Two","file":"http://m/2.mp3","url":"http://cdn/2.mp3","duration":"0:07"}]}`))
	})
	mux.HandleFunc("/api/song/search/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/song/search/rock roll" {
			w.Write([]byte(`{"success":true,"songs":[{"_id":"3","name":"Rock and roll","file":"f"}]}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"message":"Search query is required"}`))
	})
	mux.HandleFunc("/api/album/list", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"albums":[{"_id":"a","name":"Colours","bgColour":"#fff"}]}`))
	})
	mux.HandleFunc("/api/album/a/songs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"album":{"_id":"a"},"songs":[{"_id":"1","name":"One","file":"x"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_ListSongs(t *testing.T) {
	srv := newAPI(t)
	c := NewClient(srv.URL+"/", "tok")

	songs, err := c.ListSongs(context.Background())
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, "http://m/1.mp3", songs[0].URL, "url falls back to file")
	assert.Equal(t, "http://cdn/2.mp3", songs[1].URL)
}

func TestClient_Search(t *testing.T) {
	srv := newAPI(t)
	c := NewClient(srv.URL, "")

	songs, err := c.Search(context.Background(), " rock roll ")
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, "f", songs[0].URL)

	_, err = c.Search(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = c.Search(context.Background(), "other")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Search query is required", apiErr.Message)
}

func TestClient_Albums(t *testing.T) {
	srv := newAPI(t)
	c := NewClient(srv.URL, "")

	albums, err := c.ListAlbums(context.Background())
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, "#fff", albums[0].BgColour)

	songs, err := c.AlbumSongs(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, songs, 1)
}

func TestFeedURL(t *testing.T) {
	u, err := FeedURL("http://localhost:8000")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8000/api/feed", u)

	u, err = FeedURL("https://example.com/base/")
	require.NoError(t, err)
	assert.Equal(t, "wss://example.com/base/api/feed", u)

	_, err = FeedURL("ftp://x")
	assert.Error(t, err)
}

func TestFollow_ReceivesEvents(t *testing.T) {
	hub := feed.NewHub()
	go hub.Run()
	defer hub.Stop()

	mux := http.NewServeMux()
	mux.Handle("/api/feed", hub)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	url, err := FeedURL(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan feed.Event, 1)
	go Follow(ctx, url, func(ev feed.Event) { events <- ev })

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	hub.Publish(feed.Event{Type: feed.SongRemoved, ID: "9"})

	select {
	case ev := <-events:
		assert.Equal(t, feed.SongRemoved, ev.Type)
		assert.Equal(t, "9", ev.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestDebouncer_OnlyLatestQueryIsSent(t *testing.T) {
	var mu sync.Mutex
	var sent []string

	results := make(chan SearchResult, 4)
	d := NewDebouncer(30*time.Millisecond, func(ctx context.Context, q string) ([]*model.Song, error) {
		mu.Lock()
		sent = append(sent, q)
		mu.Unlock()
		return []*model.Song{{Name: q}}, nil
	}, func(r SearchResult) { results <- r })
	defer d.Stop()

	d.Input("r")
	d.Input("ro")
	d.Input("roc")
	d.Input("rock")

	select {
	case r := <-results:
		assert.Equal(t, "rock", r.Query)
		require.NoError(t, r.Err)
		assert.Equal(t, "rock", r.Songs[0].Name)
	case <-time.After(2 * time.Second):
		t.Fatal("no result")
	}

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"rock"}, sent)
	mu.Unlock()
}

func TestDebouncer_NewInputCancelsInFlight(t *testing.T) {
	started := make(chan string, 2)
	var cancelled atomic.Int32

	results := make(chan SearchResult, 4)
	d := NewDebouncer(10*time.Millisecond, func(ctx context.Context, q string) ([]*model.Song, error) {
		started <- q
		if q == "slow" {
			<-ctx.Done()
			cancelled.Add(1)
			return nil, ctx.Err()
		}
		return nil, nil
	}, func(r SearchResult) { results <- r })
	defer d.Stop()

	d.Input("slow")
	require.Equal(t, "slow", <-started)

	d.Input("fast")
	require.Equal(t, "fast", <-started)

	select {
	case r := <-results:
		assert.Equal(t, "fast", r.Query)
	case <-time.After(2 * time.Second):
		t.Fatal("no result")
	}
	assert.Eventually(t, func() bool { return cancelled.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, results, "the cancelled search delivers nothing")
}

func TestDebouncer_BlankInputCancelsPending(t *testing.T) {
	calls := atomic.Int32{}
	d := NewDebouncer(20*time.Millisecond, func(ctx context.Context, q string) ([]*model.Song, error) {
		calls.Add(1)
		return nil, errors.New("unexpected")
	}, func(SearchResult) {})

	d.Input("abc")
	d.Input("  ")
	time.Sleep(80 * time.Millisecond)
	d.Stop()

	assert.Zero(t, calls.Load())
}

func TestDebouncer_StopIgnoresLaterInput(t *testing.T) {
	calls := atomic.Int32{}
	d := NewDebouncer(5*time.Millisecond, func(ctx context.Context, q string) ([]*model.Song, error) {
		calls.Add(1)
		return nil, nil
	}, func(SearchResult) {})
	d.Stop()

	d.Input("abc")
	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, calls.Load())
}
