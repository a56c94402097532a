package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/robochess/internal/feed"
	"github.com/park285/robochess/internal/obslog"
	"github.com/park285/robochess/pkg/chessdto"
)

// FeedPath is where the websocket change feed is served.
const FeedPath = "/feed"

// Subscriber is the source of change notifications.
type Subscriber interface {
	Subscribe() (<-chan feed.Notification, func())
}

// FeedServer streams change notifications to websocket clients. It runs on net/http next to
// the fasthttp API because the websocket library upgrades net/http connections.
type FeedServer struct {
	source       Subscriber
	logger       *zap.Logger
	pingInterval time.Duration
	writeTimeout time.Duration
	srv          *http.Server

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	streams sync.WaitGroup
}

type FeedOption func(*FeedServer)

func WithFeedLogger(l *zap.Logger) FeedOption { return func(s *FeedServer) { s.logger = l } }

func WithPingInterval(d time.Duration) FeedOption {
	return func(s *FeedServer) {
		if d > 0 {
			s.pingInterval = d
		}
	}
}

func NewFeedServer(source Subscriber, opts ...FeedOption) *FeedServer {
	s := &FeedServer{source: source, pingInterval: 30 * time.Second, writeTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = obslog.L()
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	return s
}

func (s *FeedServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(FeedPath, s.ServeWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// ListenAndServe blocks until Shutdown.
func (s *FeedServer) ListenAndServe(addr string) error {
	s.srv.Addr = addr
	s.logger.Info("feed_listen", zap.String("addr", addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown refuses new streams, closes the open ones and waits for their handlers.
func (s *FeedServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	err := s.srv.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.streams.Wait()
		close(done)
	}()
	select {
	case <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeWS upgrades the request and forwards notifications until the client leaves or the feed
// closes. ?game=<id> limits the stream to one game.
func (s *FeedServer) ServeWS(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		http.Error(w, "feed closed", http.StatusServiceUnavailable)
		return
	}
	s.streams.Add(1)
	s.mu.Unlock()
	defer s.streams.Done()

	gameID := strings.TrimSpace(r.URL.Query().Get("game"))

	// Subscribe before the handshake completes so nothing published after Dial returns is missed.
	ch, unsubscribe := s.source.Subscribe()
	defer unsubscribe()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{CompressionMode: websocket.CompressionNoContextTakeover})
	if err != nil {
		s.logger.Warn("feed_accept_error", zap.Error(err))
		return
	}
	s.logger.Debug("feed_stream_open", zap.String("game_id", gameID), zap.String("remote", r.RemoteAddr))

	ctx := conn.CloseRead(s.ctx)
	ping := time.NewTicker(s.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusGoingAway, "server shutdown")
			return
		case n, ok := <-ch:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "feed closed")
				return
			}
			if gameID != "" && n.ModelID != gameID {
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
			err := wsjson.Write(wctx, conn, notificationDTO(n))
			cancel()
			if err != nil {
				s.logger.Debug("feed_write_error", zap.Error(err))
				_ = conn.Close(websocket.StatusInternalError, "write failed")
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				_ = conn.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

func notificationDTO(n feed.Notification) chessdto.Notification {
	return chessdto.Notification{Seq: n.Seq, Kind: string(n.Kind), GameID: n.ModelID, State: n.State, At: n.At}
}
