// Package autoplay lets a registered player (the robot) play black on its own. It listens to
// the engine's change feed and answers through the same Submit entry point as everyone else.
package autoplay

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/robochess/internal/chess"
	"github.com/park285/robochess/internal/feed"
	"github.com/park285/robochess/internal/game"
	"github.com/park285/robochess/internal/jobs"
	"github.com/park285/robochess/internal/obslog"
)

// DefaultDelay is the think time before the robot acts.
const DefaultDelay = 4 * time.Second

// Engine is the part of game.Engine the robot talks to.
type Engine interface {
	Subscribe() (<-chan feed.Notification, func())
	Game(ctx context.Context, id string) (game.Snapshot, error)
	Games(ctx context.Context) ([]game.Game, error)
	LegalMoves(ctx context.Context, id string) (chess.MoveSet, error)
	Submit(ctx context.Context, cmd game.Command) (game.Snapshot, error)
}

// Scheduler runs delayed actions.
type Scheduler interface {
	ScheduleAction(delay time.Duration, name string, fn jobs.Action) error
}

// ErrNothingToDo is returned when the game is not in a state the robot reacts to.
var ErrNothingToDo = errors.New("autoplay: no action for game state")

type Policy struct {
	engine  Engine
	jobs    Scheduler
	robotID string
	delay   time.Duration
	logger  *zap.Logger

	rndMu sync.Mutex
	rnd   *rand.Rand
}

type Option func(*Policy)

func WithDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d >= 0 {
			p.delay = d
		}
	}
}

// WithRand fixes the source used for move choice and the draw coin flip.
func WithRand(r *rand.Rand) Option { return func(p *Policy) { p.rnd = r } }

func WithLogger(l *zap.Logger) Option { return func(p *Policy) { p.logger = l } }

func New(engine Engine, scheduler Scheduler, robotID string, opts ...Option) *Policy {
	p := &Policy{engine: engine, jobs: scheduler, robotID: robotID, delay: DefaultDelay}
	for _, opt := range opts {
		opt(p)
	}
	if p.rnd == nil {
		p.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if p.logger == nil {
		p.logger = obslog.L()
	}
	return p
}

func (p *Policy) RobotID() string { return p.robotID }

// Run subscribes to the change feed and consumes it until ctx is done or the feed is closed.
func (p *Policy) Run(ctx context.Context) error {
	ch, cancel := p.engine.Subscribe()
	defer cancel()
	return p.Consume(ctx, ch)
}

// Consume handles notifications from an existing subscription.
func (p *Policy) Consume(ctx context.Context, ch <-chan feed.Notification) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-ch:
			if !ok {
				return nil
			}
			p.Handle(ctx, n)
		}
	}
}

// triggers are the states in which the robot, playing black, has something to do.
func triggers(s game.State) bool {
	switch s {
	case game.WaitingForInvitedPlayer, game.BlackTurn, game.BlackPromotePawn, game.WhiteHasProposedDraw:
		return true
	}
	return false
}

// Handle schedules one delayed action when the notified game needs the robot.
// Duplicate notifications schedule duplicate actions; the action revalidates on wake.
func (p *Policy) Handle(ctx context.Context, n feed.Notification) bool {
	if n.Kind != feed.Created && n.Kind != feed.Transitioned {
		return false
	}
	snap, err := p.engine.Game(ctx, n.ModelID)
	if err != nil {
		if !errors.Is(err, game.ErrGameNotFound) {
			p.logger.Warn("autoplay_load_error", zap.String("game_id", n.ModelID), zap.Error(err))
		}
		return false
	}
	g := snap.Game
	if g.BlackPlayer != p.robotID || !triggers(g.State) {
		return false
	}
	return p.schedule(g.ID, g.State)
}

// ResumeOngoing schedules an action for every stored game where the robot is to move.
func (p *Policy) ResumeOngoing(ctx context.Context) (int, error) {
	games, err := p.engine.Games(ctx)
	if err != nil {
		return 0, fmt.Errorf("list games: %w", err)
	}
	n := 0
	for _, g := range games {
		if g.BlackPlayer == p.robotID && g.State == game.BlackTurn {
			if p.schedule(g.ID, g.State) {
				n++
			}
		}
	}
	p.logger.Info("autoplay_resume", zap.Int("games", n))
	return n, nil
}

func (p *Policy) schedule(gameID string, state game.State) bool {
	name := fmt.Sprintf("autoplay:%s:%s", gameID, state)
	err := p.jobs.ScheduleAction(p.delay, name, func(ctx context.Context) error {
		return p.Act(ctx, gameID)
	})
	if err != nil {
		p.logger.Warn("autoplay_schedule_error", zap.String("game_id", gameID), zap.Error(err))
		return false
	}
	return true
}

// Act re-reads the game and issues exactly one command for its current state.
func (p *Policy) Act(ctx context.Context, gameID string) error {
	snap, err := p.engine.Game(ctx, gameID)
	if err != nil {
		return err
	}
	g := snap.Game
	if g.BlackPlayer != p.robotID {
		return fmt.Errorf("autoplay: robot does not play black in %s", gameID)
	}
	cmd := game.Command{GameID: gameID, Actor: p.robotID}
	switch g.State {
	case game.WaitingForInvitedPlayer:
		cmd.Event = game.AcceptInvite
	case game.BlackTurn:
		moves, err := p.engine.LegalMoves(ctx, gameID)
		if err != nil {
			return err
		}
		mv, ok := p.pick(moves)
		if !ok {
			return fmt.Errorf("autoplay: no legal move in %s", gameID)
		}
		cmd.Event = game.MakeMove
		cmd.Params.Move = mv.Text()
	case game.WhiteHasProposedDraw:
		if p.coin() {
			cmd.Event = game.AcceptDraw
		} else {
			cmd.Event = game.DeclineDraw
		}
	default:
		return fmt.Errorf("%w: %s in %s", ErrNothingToDo, g.State, gameID)
	}
	if _, err := p.engine.Submit(ctx, cmd); err != nil {
		return fmt.Errorf("autoplay %s: %w", cmd.Event, err)
	}
	p.logger.Info("autoplay_act",
		zap.String("game_id", gameID),
		zap.String("event", cmd.Event.String()),
		zap.String("move", cmd.Params.Move),
	)
	return nil
}

func (p *Policy) pick(moves chess.MoveSet) (chess.Move, bool) {
	list := moves.Sorted()
	if len(list) == 0 {
		return chess.Move{}, false
	}
	p.rndMu.Lock()
	defer p.rndMu.Unlock()
	return list[p.rnd.Intn(len(list))], true
}

func (p *Policy) coin() bool {
	p.rndMu.Lock()
	defer p.rndMu.Unlock()
	return p.rnd.Intn(2) == 0
}
