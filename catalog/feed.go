package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"Melodix/core/feed"
	"Melodix/logger"

	"github.com/gorilla/websocket"
)

// FeedURL derives the websocket feed address from the API base URL.
func FeedURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", baseURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/feed"
	return u.String(), nil
}

// Follow subscribes to the catalog feed at url and calls onEvent for every
// message. It reconnects with backoff until ctx is done.
func Follow(ctx context.Context, url string, onEvent func(feed.Event)) {
	backoff := time.Second
	for {
		err := followOnce(ctx, url, onEvent)
		if ctx.Err() != nil {
			return
		}
		logger.Debug("catalog feed disconnected", logger.ErrorField(err), logger.Duration("retry", backoff))

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func followOnce(ctx context.Context, url string, onEvent func(feed.Event)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock ReadMessage when ctx ends.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return errors.New("closed by server")
			}
			return err
		}

		var ev feed.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			logger.Warn("invalid feed message", logger.ErrorField(err))
			continue
		}
		onEvent(ev)
	}
}
