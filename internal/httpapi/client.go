package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/robochess/pkg/chessdto"
)

// Client talks to a chess server. Requests that the server marks retryable are retried with backoff.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	actor   string

	defaultTimeout time.Duration
	retryMax       int
}

type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) ClientOption {
	return func(c *Client) { c.retryMax = max }
}

// WithActor sets the player id sent in X-User-Id.
func WithActor(id string) ClientOption {
	return func(c *Client) { c.actor = strings.TrimSpace(id) }
}

// WithHTTPClient replaces the underlying fasthttp client, e.g. to dial an in-memory listener.
func WithHTTPClient(h *fasthttp.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit sends one command as the client's actor.
func (c *Client) Submit(ctx context.Context, req chessdto.CommandRequest) (*chessdto.CommandResponse, error) {
	var resp chessdto.CommandResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/commands", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Game(ctx context.Context, id string) (*chessdto.GameState, error) {
	var st chessdto.GameState
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/games/"+url.PathEscape(id), nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) Games(ctx context.Context) ([]chessdto.GameState, error) {
	var resp chessdto.GamesResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/games", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Games, nil
}

func (c *Client) LegalMoves(ctx context.Context, id string) ([]string, error) {
	var resp chessdto.MovesResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/games/"+url.PathEscape(id)+"/moves", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Moves, nil
}

func (c *Client) Preview(ctx context.Context, id, move string) (*chessdto.GameState, error) {
	var st chessdto.GameState
	path := "/games/" + url.PathEscape(id) + "/preview?move=" + url.QueryEscape(move)
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) CreatePlayer(ctx context.Context, name string) (*chessdto.Player, error) {
	var p chessdto.Player
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/players", chessdto.CreatePlayerRequest{Name: name}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Players(ctx context.Context) ([]chessdto.Player, error) {
	var resp chessdto.PlayersResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/players", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Players, nil
}

func (c *Client) History(ctx context.Context, playerID string, limit int) ([]chessdto.ArchivedGame, error) {
	var resp chessdto.HistoryResponse
	path := "/players/" + url.PathEscape(playerID) + "/games"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Games, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if c.actor != "" {
		req.Header.Set(HeaderActor, c.actor)
	}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else {
			status := resp.StatusCode()
			if status >= 200 && status < 300 {
				if out != nil && len(resp.Body()) > 0 {
					if err := json.Unmarshal(resp.Body(), out); err != nil {
						return fmt.Errorf("decode response: %w", err)
					}
				}
				return nil
			}
			de := decodeError(status, resp.Body())
			if !de.Retryable && !shouldRetryStatus(status) {
				return de
			}
			lastErr = de
		}
		if attempt == attempts {
			break
		}
		if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
			return lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func decodeError(status int, body []byte) chessdto.DomainError {
	var de chessdto.DomainError
	if err := json.Unmarshal(body, &de); err != nil || de.Code == "" {
		return chessdto.DomainError{Code: "http_" + strconv.Itoa(status), Message: truncate(string(body), 512)}
	}
	return de
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
