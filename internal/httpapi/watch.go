package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/robochess/pkg/chessdto"
)

// FeedStream is an open subscription to a feed server.
type FeedStream struct {
	conn *websocket.Conn
}

// FeedURL builds the websocket URL of the feed for base ("ws://host:8081"), optionally filtered
// to one game.
func FeedURL(base, gameID string) string {
	u := strings.TrimRight(base, "/")
	if !strings.HasSuffix(u, FeedPath) {
		u += FeedPath
	}
	if id := strings.TrimSpace(gameID); id != "" {
		u += "?game=" + url.QueryEscape(id)
	}
	return u
}

// DialFeed opens a stream. Notifications published after it returns are delivered.
func DialFeed(ctx context.Context, base, gameID string) (*FeedStream, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, FeedURL(base, gameID), &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return nil, fmt.Errorf("dial feed: %w", err)
	}
	return &FeedStream{conn: conn}, nil
}

// Next blocks for the next notification. It returns io.EOF once the server ends the stream.
func (f *FeedStream) Next(ctx context.Context) (chessdto.Notification, error) {
	var n chessdto.Notification
	if err := wsjson.Read(ctx, f.conn, &n); err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return n, io.EOF
		}
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		return n, fmt.Errorf("read feed: %w", err)
	}
	return n, nil
}

func (f *FeedStream) Close() error {
	return f.conn.Close(websocket.StatusNormalClosure, "bye")
}

// Watch calls fn for every notification until ctx is done, the server ends the stream or fn
// fails. A stream ended by the server returns nil.
func Watch(ctx context.Context, base, gameID string, fn func(chessdto.Notification) error) error {
	stream, err := DialFeed(ctx, base, gameID)
	if err != nil {
		return err
	}
	defer func() { _ = stream.Close() }()
	for {
		n, err := stream.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(n); err != nil {
			return err
		}
	}
}
