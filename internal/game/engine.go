// Package game runs the chess game lifecycle: validated commands, automatic transitions,
// per-color clocks with flag fall, rating commands and change notifications.
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/park285/robochess/internal/chess"
	"github.com/park285/robochess/internal/clock"
	"github.com/park285/robochess/internal/feed"
	"github.com/park285/robochess/internal/obslog"
)

// DefaultTurnBudget is the think time available to each color for a whole game.
const DefaultTurnBudget = time.Minute

type Engine struct {
	store   Store
	clock   clock.Clock
	feed    *feed.Feed
	budget  time.Duration
	ratings RatingSink
	players PlayerDirectory
	archive Archiver
	logger  *zap.Logger
	tracer  trace.Tracer
	newID   func() string

	locks keyedMutex

	mu       sync.Mutex
	timers   map[string]deadlineTimer
	closed   bool
	inflight sync.WaitGroup
}

type deadlineTimer struct {
	timer   clock.Timer
	version int64
}

type Option func(*Engine)

func WithClock(c clock.Clock) Option { return func(e *Engine) { e.clock = c } }

func WithFeed(f *feed.Feed) Option { return func(e *Engine) { e.feed = f } }

func WithTurnBudget(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.budget = d
		}
	}
}

func WithRatingSink(s RatingSink) Option { return func(e *Engine) { e.ratings = s } }

func WithPlayerDirectory(d PlayerDirectory) Option { return func(e *Engine) { e.players = d } }

func WithArchiver(a Archiver) Option { return func(e *Engine) { e.archive = a } }

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.logger = l } }

func WithTracer(t trace.Tracer) Option { return func(e *Engine) { e.tracer = t } }

// WithIDGenerator replaces the uuid based game id source.
func WithIDGenerator(f func() string) Option { return func(e *Engine) { e.newID = f } }

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		clock:  clock.Real{},
		budget: DefaultTurnBudget,
		newID:  uuid.NewString,
		timers: make(map[string]deadlineTimer),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.feed == nil {
		e.feed = feed.New()
	}
	if e.logger == nil {
		e.logger = obslog.L()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer("github.com/park285/robochess/internal/game")
	}
	return e
}

// Subscribe returns the ordered change feed of this engine.
func (e *Engine) Subscribe() (<-chan feed.Notification, func()) { return e.feed.Subscribe() }

func (e *Engine) TurnBudget() time.Duration { return e.budget }

// Start re-arms flag-fall deadlines for every stored game that is in a turn state.
func (e *Engine) Start(ctx context.Context) error {
	games, err := e.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list games: %w", err)
	}
	armed := 0
	for _, g := range games {
		if g.State.IsTurn() {
			e.armDeadline(g)
			armed++
		}
	}
	e.logger.Info("engine_start", zap.Int("games", len(games)), zap.Int("deadlines", armed))
	return nil
}

// Close cancels pending deadlines, waits for flag falls already in progress and closes the
// notification feed.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	for id, t := range e.timers {
		t.timer.Stop()
		delete(e.timers, id)
	}
	e.mu.Unlock()
	e.inflight.Wait()
	e.feed.Close()
}

// Submit validates and applies one command. It is the only way games change.
func (e *Engine) Submit(ctx context.Context, cmd Command) (Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "game.Submit", trace.WithAttributes(
		attribute.String("game.event", cmd.Event.String()),
		attribute.String("game.id", cmd.GameID),
	))
	defer span.End()

	snap, err := e.submit(ctx, cmd)
	if err != nil {
		if ve, ok := AsValidation(err); ok {
			span.SetAttributes(attribute.String("game.rejection", ve.Code))
			e.logger.Info("game_command_rejected",
				zap.String("game_id", cmd.GameID),
				zap.String("event", cmd.Event.String()),
				zap.String("actor", cmd.Actor),
				zap.String("code", ve.Code),
				zap.String("reason", ve.Reason),
			)
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return Snapshot{}, err
	}
	span.SetAttributes(attribute.String("game.state", snap.Game.State.String()))
	return snap, nil
}

func (e *Engine) submit(ctx context.Context, cmd Command) (Snapshot, error) {
	if e.isClosed() {
		return Snapshot{}, ErrEngineClosed
	}
	cmd.Actor = strings.TrimSpace(cmd.Actor)
	cmd.GameID = strings.TrimSpace(cmd.GameID)
	if cmd.Actor == "" {
		return Snapshot{}, reject(CodeNotLoggedIn, "an authenticated actor is required")
	}
	if cmd.Event == CreateGame && cmd.GameID == "" {
		return e.create(ctx, cmd)
	}
	if cmd.GameID == "" {
		return Snapshot{}, reject(CodeMalformedParams, "%s requires a game id", cmd.Event)
	}

	unlock := e.locks.Lock(cmd.GameID)
	defer unlock()

	cur, err := e.store.Get(ctx, cmd.GameID)
	if err != nil {
		return Snapshot{}, err
	}
	out, err := apply(cur, cmd, e.clock.Now())
	if err != nil {
		return Snapshot{}, err
	}
	if out.deleted {
		return e.remove(ctx, cur, cmd)
	}
	return e.commit(ctx, cur, out.game, cmd.Event.String(), cmd.Actor)
}

func (e *Engine) create(ctx context.Context, cmd Command) (Snapshot, error) {
	white := strings.TrimSpace(cmd.Params.WhitePlayer)
	black := strings.TrimSpace(cmd.Params.BlackPlayer)
	if white == "" || black == "" {
		return Snapshot{}, reject(CodeMalformedParams, "white_player and black_player are required")
	}
	if e.players != nil {
		for _, id := range []string{white, black} {
			ok, err := e.players.Exists(ctx, id)
			if err != nil {
				return Snapshot{}, fmt.Errorf("lookup player %s: %w", id, err)
			}
			if !ok {
				return Snapshot{}, reject(CodeUnknownPlayer, "player %s does not exist", id)
			}
		}
	}
	if white == black {
		return Snapshot{}, reject(CodeSamePlayers, "white and black must be different players")
	}
	if cmd.Actor != white {
		return Snapshot{}, reject(CodeMustPlayWhite, "the creator must play white")
	}

	now := e.clock.Now()
	g := Game{
		ID:             e.newID(),
		WhitePlayer:    white,
		BlackPlayer:    black,
		Moves:          []chess.Move{},
		State:          WaitingForInvitedPlayer,
		StateEnteredAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        1,
	}

	unlock := e.locks.Lock(g.ID)
	defer unlock()
	if err := e.store.Create(ctx, g); err != nil {
		return Snapshot{}, fmt.Errorf("create game: %w", err)
	}
	e.logger.Info("game_create",
		zap.String("game_id", g.ID),
		zap.String("white_id", g.WhitePlayer),
		zap.String("black_id", g.BlackPlayer),
	)
	e.feed.Publish(feed.Notification{Kind: feed.Created, ModelID: g.ID, State: g.State.String(), At: now})
	return snapshotOf(g), nil
}

func (e *Engine) remove(ctx context.Context, cur Game, cmd Command) (Snapshot, error) {
	if err := e.store.Delete(ctx, cur.ID); err != nil {
		return Snapshot{}, fmt.Errorf("delete game: %w", err)
	}
	e.cancelDeadline(cur.ID)
	e.logger.Info("game_invite_declined",
		zap.String("game_id", cur.ID),
		zap.String("notify", cur.WhitePlayer),
		zap.String("actor", cmd.Actor),
	)
	e.feed.Publish(feed.Notification{Kind: feed.Deleted, ModelID: cur.ID, State: cur.State.String(), At: e.clock.Now()})
	return Snapshot{Game: cur, Board: cur.Board(), Deleted: true}, nil
}

// commit persists next and performs the side effects of the transition. Callers hold the game lock.
func (e *Engine) commit(ctx context.Context, cur, next Game, cause, actor string) (Snapshot, error) {
	now := e.clock.Now()
	next.Version = cur.Version + 1
	next.UpdatedAt = now
	if err := e.store.Save(ctx, next, cur.Version); err != nil {
		if errors.Is(err, ErrConcurrentUpdate) || errors.Is(err, ErrGameNotFound) {
			return Snapshot{}, err
		}
		return Snapshot{}, fmt.Errorf("save game: %w", err)
	}

	if next.State.IsTurn() {
		e.armDeadline(next)
	} else {
		e.cancelDeadline(next.ID)
	}

	fields := []zap.Field{
		zap.String("game_id", next.ID),
		zap.String("event", cause),
		zap.String("actor", actor),
		zap.String("from_state", cur.State.String()),
		zap.String("state", next.State.String()),
	}
	if len(next.Moves) > len(cur.Moves) {
		fields = append(fields, zap.String("move", next.Moves[len(next.Moves)-1].String()))
	}
	e.logger.Info("game_transition", fields...)
	e.feed.Publish(feed.Notification{Kind: feed.Transitioned, ModelID: next.ID, State: next.State.String(), At: now})

	if next.State.IsTerminal() && !cur.State.IsTerminal() {
		e.finish(ctx, next)
	}
	return snapshotOf(next), nil
}

// finish emits rating commands and archives the result. Failures are logged; the game is already final.
func (e *Engine) finish(ctx context.Context, g Game) {
	if e.ratings != nil {
		for _, u := range RatingUpdates(g) {
			if err := e.ratings.UpdateScore(ctx, u.PlayerID, u.Delta); err != nil {
				e.logger.Error("game_rating_update_error",
					zap.String("game_id", g.ID),
					zap.String("player_id", u.PlayerID),
					zap.Int("delta", u.Delta),
					zap.Error(err),
				)
			}
		}
	}
	if e.archive != nil {
		if err := e.archive.SaveResult(ctx, g); err != nil {
			e.logger.Error("game_result_persist_error", zap.String("game_id", g.ID), zap.Error(err))
			return
		}
	}
	e.logger.Info("game_finished",
		zap.String("game_id", g.ID),
		zap.String("state", g.State.String()),
		zap.String("method", string(g.Method)),
	)
}

// Game returns the current snapshot of a game.
func (e *Engine) Game(ctx context.Context, id string) (Snapshot, error) {
	g, err := e.store.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(g), nil
}

// Games lists every stored game.
func (e *Engine) Games(ctx context.Context) ([]Game, error) { return e.store.List(ctx) }

// LegalMoves lists the moves available to the side to move. It is empty outside turn states.
func (e *Engine) LegalMoves(ctx context.Context, id string) (chess.MoveSet, error) {
	g, err := e.store.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if !g.State.IsTurn() {
		return chess.MoveSet{}, nil
	}
	return chess.LegalMoves(g.Board(), g.State.sideToMove()), nil
}

// PreviewMove validates move as if the side to move had played it and returns the resulting
// snapshot without storing anything.
func (e *Engine) PreviewMove(ctx context.Context, id, move string) (Snapshot, error) {
	_, span := e.tracer.Start(ctx, "game.PreviewMove", trace.WithAttributes(attribute.String("game.id", id)))
	defer span.End()

	g, err := e.store.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return Snapshot{}, err
	}
	if !g.State.IsTurn() {
		return Snapshot{}, wrongState(MakeMove, g.State)
	}
	cmd := Command{
		Event:  MakeMove,
		GameID: g.ID,
		Actor:  g.PlayerOf(g.State.sideToMove()),
		Params: Params{Move: move},
	}
	out, err := apply(g, cmd, e.clock.Now())
	if err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(out.game), nil
}

func (e *Engine) armDeadline(g Game) {
	at, ok := Deadline(g, e.budget)
	if !ok {
		return
	}
	delay := at.Sub(e.clock.Now())
	if delay < 0 {
		delay = 0
	}
	id, version := g.ID, g.Version

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if prev, ok := e.timers[id]; ok {
		prev.timer.Stop()
	}
	t := e.clock.AfterFunc(delay, func() { e.onDeadline(id, version) })
	e.timers[id] = deadlineTimer{timer: t, version: version}
}

func (e *Engine) cancelDeadline(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.timers[id]; ok {
		t.timer.Stop()
		delete(e.timers, id)
	}
}

func (e *Engine) onDeadline(id string, version int64) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.inflight.Add(1)
	e.mu.Unlock()
	defer e.inflight.Done()

	ctx := context.Background()
	unlock := e.locks.Lock(id)
	defer unlock()

	e.mu.Lock()
	t, ok := e.timers[id]
	current := ok && t.version == version
	if current {
		delete(e.timers, id)
	}
	e.mu.Unlock()
	if !current {
		return
	}

	cur, err := e.store.Get(ctx, id)
	if err != nil {
		e.logger.Warn("game_deadline_load_error", zap.String("game_id", id), zap.Error(err))
		return
	}
	if cur.Version != version || !cur.State.IsTurn() {
		return
	}
	if _, err := e.commit(ctx, cur, flagFall(cur, e.clock.Now()), "FlagFall", ""); err != nil {
		e.logger.Error("game_flag_fall_error", zap.String("game_id", id), zap.Error(err))
	}
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
