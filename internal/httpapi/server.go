// Package httpapi exposes the game engine and the player registry as a JSON API over fasthttp.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/robochess/internal/archive"
	"github.com/park285/robochess/internal/chess"
	"github.com/park285/robochess/internal/game"
	"github.com/park285/robochess/internal/obslog"
	"github.com/park285/robochess/internal/player"
	"github.com/park285/robochess/pkg/chessdto"
)

// HeaderActor carries the id of the player issuing a command.
const HeaderActor = "X-User-Id"

const (
	defaultHistoryLimit = 10
	requestTimeout      = 8 * time.Second
)

// Engine is the part of game.Engine served over HTTP.
type Engine interface {
	Submit(ctx context.Context, cmd game.Command) (game.Snapshot, error)
	Game(ctx context.Context, id string) (game.Snapshot, error)
	Games(ctx context.Context) ([]game.Game, error)
	LegalMoves(ctx context.Context, id string) (chess.MoveSet, error)
	PreviewMove(ctx context.Context, id, move string) (game.Snapshot, error)
	TurnBudget() time.Duration
}

// Players is the player registry.
type Players interface {
	Create(ctx context.Context, name string) (player.Player, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (player.Player, error)
	List(ctx context.Context) ([]player.Player, error)
}

// History reads the finished-game archive.
type History interface {
	Recent(ctx context.Context, playerID string, limit int) ([]archive.Result, error)
}

type Server struct {
	engine  Engine
	players Players
	history History
	logger  *zap.Logger
	srv     *fasthttp.Server
}

type Option func(*Server)

func WithPlayers(p Players) Option { return func(s *Server) { s.players = p } }

func WithHistory(h History) Option { return func(s *Server) { s.history = h } }

func WithLogger(l *zap.Logger) Option { return func(s *Server) { s.logger = l } }

func New(engine Engine, opts ...Option) *Server {
	s := &Server{engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = obslog.L()
	}
	s.srv = &fasthttp.Server{
		Handler:      s.Handler(),
		Name:         "robochess",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("http_listen", zap.String("addr", addr))
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.ShutdownWithContext(ctx) }

// Handler routes requests. Paths are split on "/" and matched by segment.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(rc *fasthttp.RequestCtx) {
		start := time.Now()
		s.route(rc)
		s.logger.Debug("http_request",
			zap.ByteString("method", rc.Method()),
			zap.ByteString("path", rc.Path()),
			zap.Int("status", rc.Response.StatusCode()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

func (s *Server) route(rc *fasthttp.RequestCtx) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	parts := strings.Split(strings.Trim(string(rc.Path()), "/"), "/")
	method := string(rc.Method())
	switch {
	case len(parts) == 1 && parts[0] == "healthz" && method == fasthttp.MethodGet:
		writeJSON(rc, fasthttp.StatusOK, map[string]string{"status": "ok"})
	case len(parts) == 1 && parts[0] == "commands" && method == fasthttp.MethodPost:
		s.handleCommand(ctx, rc)
	case len(parts) == 1 && parts[0] == "games" && method == fasthttp.MethodGet:
		s.handleGames(ctx, rc)
	case len(parts) == 2 && parts[0] == "games" && method == fasthttp.MethodGet:
		s.handleGame(ctx, rc, parts[1])
	case len(parts) == 3 && parts[0] == "games" && parts[2] == "moves" && method == fasthttp.MethodGet:
		s.handleLegalMoves(ctx, rc, parts[1])
	case len(parts) == 3 && parts[0] == "games" && parts[2] == "preview" && method == fasthttp.MethodGet:
		s.handlePreview(ctx, rc, parts[1])
	case parts[0] == "players" && s.players != nil:
		s.routePlayers(ctx, rc, method, parts[1:])
	default:
		writeError(rc, fasthttp.StatusNotFound, chessdto.DomainError{Code: "not_found", Message: "no such route"})
	}
}

func (s *Server) routePlayers(ctx context.Context, rc *fasthttp.RequestCtx, method string, rest []string) {
	switch {
	case len(rest) == 0 && method == fasthttp.MethodPost:
		s.handleCreatePlayer(ctx, rc)
	case len(rest) == 0 && method == fasthttp.MethodGet:
		s.handlePlayers(ctx, rc)
	case len(rest) == 1 && method == fasthttp.MethodGet:
		s.handlePlayer(ctx, rc, rest[0])
	case len(rest) == 1 && method == fasthttp.MethodDelete:
		s.handleDeletePlayer(ctx, rc, rest[0])
	case len(rest) == 2 && rest[1] == "games" && method == fasthttp.MethodGet && s.history != nil:
		s.handleHistory(ctx, rc, rest[0])
	default:
		writeError(rc, fasthttp.StatusNotFound, chessdto.DomainError{Code: "not_found", Message: "no such route"})
	}
}

func (s *Server) handleCommand(ctx context.Context, rc *fasthttp.RequestCtx) {
	var req chessdto.CommandRequest
	if err := json.Unmarshal(rc.PostBody(), &req); err != nil {
		writeError(rc, fasthttp.StatusBadRequest, chessdto.DomainError{Code: game.CodeMalformedParams, Message: "invalid JSON body"})
		return
	}
	ev, err := game.ParseEvent(strings.TrimSpace(req.Event))
	if err != nil {
		writeError(rc, fasthttp.StatusUnprocessableEntity, chessdto.DomainError{Code: game.CodeMalformedParams, Message: err.Error()})
		return
	}
	cmd := game.Command{
		Event:  ev,
		GameID: req.GameID,
		Actor:  string(rc.Request.Header.Peek(HeaderActor)),
		Params: game.Params{
			WhitePlayer: req.Params.WhitePlayer,
			BlackPlayer: req.Params.BlackPlayer,
			Move:        req.Params.Move,
			Piece:       req.Params.Piece,
		},
	}
	snap, err := s.engine.Submit(ctx, cmd)
	if err != nil {
		s.fail(rc, err)
		return
	}
	resp := chessdto.CommandResponse{Deleted: snap.Deleted}
	if !snap.Deleted {
		st := gameState(snap, s.engine.TurnBudget())
		resp.Game = &st
	}
	writeJSON(rc, fasthttp.StatusOK, resp)
}

func (s *Server) handleGames(ctx context.Context, rc *fasthttp.RequestCtx) {
	games, err := s.engine.Games(ctx)
	if err != nil {
		s.fail(rc, err)
		return
	}
	out := chessdto.GamesResponse{Games: make([]chessdto.GameState, 0, len(games))}
	for _, g := range games {
		snap, err := s.engine.Game(ctx, g.ID)
		if err != nil {
			// expired or deleted between the list and the read
			continue
		}
		out.Games = append(out.Games, gameState(snap, s.engine.TurnBudget()))
	}
	writeJSON(rc, fasthttp.StatusOK, out)
}

func (s *Server) handleGame(ctx context.Context, rc *fasthttp.RequestCtx, id string) {
	snap, err := s.engine.Game(ctx, id)
	if err != nil {
		s.fail(rc, err)
		return
	}
	writeJSON(rc, fasthttp.StatusOK, gameState(snap, s.engine.TurnBudget()))
}

func (s *Server) handleLegalMoves(ctx context.Context, rc *fasthttp.RequestCtx, id string) {
	set, err := s.engine.LegalMoves(ctx, id)
	if err != nil {
		s.fail(rc, err)
		return
	}
	moves := set.Sorted()
	out := chessdto.MovesResponse{GameID: id, Moves: make([]string, len(moves))}
	for i, m := range moves {
		out.Moves[i] = m.Text()
	}
	writeJSON(rc, fasthttp.StatusOK, out)
}

func (s *Server) handlePreview(ctx context.Context, rc *fasthttp.RequestCtx, id string) {
	move := string(rc.QueryArgs().Peek("move"))
	snap, err := s.engine.PreviewMove(ctx, id, move)
	if err != nil {
		s.fail(rc, err)
		return
	}
	writeJSON(rc, fasthttp.StatusOK, gameState(snap, s.engine.TurnBudget()))
}

func (s *Server) handleCreatePlayer(ctx context.Context, rc *fasthttp.RequestCtx) {
	var req chessdto.CreatePlayerRequest
	if err := json.Unmarshal(rc.PostBody(), &req); err != nil {
		writeError(rc, fasthttp.StatusBadRequest, chessdto.DomainError{Code: game.CodeMalformedParams, Message: "invalid JSON body"})
		return
	}
	p, err := s.players.Create(ctx, req.Name)
	if err != nil {
		s.fail(rc, err)
		return
	}
	writeJSON(rc, fasthttp.StatusCreated, playerDTO(p))
}

func (s *Server) handlePlayers(ctx context.Context, rc *fasthttp.RequestCtx) {
	list, err := s.players.List(ctx)
	if err != nil {
		s.fail(rc, err)
		return
	}
	out := chessdto.PlayersResponse{Players: make([]chessdto.Player, len(list))}
	for i, p := range list {
		out.Players[i] = playerDTO(p)
	}
	writeJSON(rc, fasthttp.StatusOK, out)
}

func (s *Server) handlePlayer(ctx context.Context, rc *fasthttp.RequestCtx, id string) {
	p, err := s.players.Get(ctx, id)
	if err != nil {
		s.fail(rc, err)
		return
	}
	writeJSON(rc, fasthttp.StatusOK, playerDTO(p))
}

func (s *Server) handleDeletePlayer(ctx context.Context, rc *fasthttp.RequestCtx, id string) {
	if err := s.players.Delete(ctx, id); err != nil {
		s.fail(rc, err)
		return
	}
	rc.SetStatusCode(fasthttp.StatusNoContent)
}

func (s *Server) handleHistory(ctx context.Context, rc *fasthttp.RequestCtx, playerID string) {
	limit := defaultHistoryLimit
	if raw := rc.QueryArgs().Peek("limit"); len(raw) > 0 {
		n, err := strconv.Atoi(string(raw))
		if err != nil || n <= 0 {
			writeError(rc, fasthttp.StatusUnprocessableEntity, chessdto.DomainError{Code: game.CodeMalformedParams, Message: fmt.Sprintf("invalid limit %q", raw)})
			return
		}
		limit = n
	}
	results, err := s.history.Recent(ctx, playerID, limit)
	if err != nil {
		s.fail(rc, err)
		return
	}
	out := chessdto.HistoryResponse{Games: make([]chessdto.ArchivedGame, len(results))}
	for i, r := range results {
		out.Games[i] = archivedGame(r)
	}
	writeJSON(rc, fasthttp.StatusOK, out)
}

// fail maps err onto a status code and a DomainError body.
func (s *Server) fail(rc *fasthttp.RequestCtx, err error) {
	if ve, ok := game.AsValidation(err); ok {
		writeError(rc, fasthttp.StatusUnprocessableEntity, chessdto.DomainError{Code: ve.Code, Message: ve.Reason})
		return
	}
	switch {
	case errors.Is(err, game.ErrGameNotFound), errors.Is(err, player.ErrPlayerNotFound):
		writeError(rc, fasthttp.StatusNotFound, chessdto.DomainError{Code: "not_found", Message: err.Error()})
	case errors.Is(err, game.ErrConcurrentUpdate):
		writeError(rc, fasthttp.StatusConflict, chessdto.DomainError{Code: "conflict", Message: err.Error(), Retryable: true})
	case errors.Is(err, player.ErrInvalidName):
		writeError(rc, fasthttp.StatusUnprocessableEntity, chessdto.DomainError{Code: "invalid_name", Message: err.Error()})
	case errors.Is(err, player.ErrDuplicateName):
		writeError(rc, fasthttp.StatusConflict, chessdto.DomainError{Code: "duplicate_name", Message: err.Error()})
	case errors.Is(err, game.ErrEngineClosed):
		writeError(rc, fasthttp.StatusServiceUnavailable, chessdto.DomainError{Code: "unavailable", Message: err.Error(), Retryable: true})
	default:
		s.logger.Error("http_internal_error", zap.ByteString("path", rc.Path()), zap.Error(err))
		writeError(rc, fasthttp.StatusInternalServerError, chessdto.DomainError{Code: "internal", Message: "internal error"})
	}
}

func writeJSON(rc *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		rc.Error("encode response", fasthttp.StatusInternalServerError)
		return
	}
	rc.SetStatusCode(status)
	rc.SetContentType("application/json")
	rc.SetBody(body)
}

func writeError(rc *fasthttp.RequestCtx, status int, e chessdto.DomainError) {
	writeJSON(rc, status, e)
}
