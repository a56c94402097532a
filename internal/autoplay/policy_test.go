package autoplay_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/park285/robochess/internal/autoplay"
	"github.com/park285/robochess/internal/clock"
	"github.com/park285/robochess/internal/feed"
	"github.com/park285/robochess/internal/game"
	"github.com/park285/robochess/internal/jobs"
	"github.com/park285/robochess/internal/store"
)

const (
	alice = "alice"
	robot = "robot"
)

type directory map[string]bool

func (d directory) Exists(_ context.Context, id string) (bool, error) { return d[id], nil }

type fixture struct {
	clock    *clock.Fake
	engine   *game.Engine
	runner   *jobs.Runner
	policy   *autoplay.Policy
	mu       sync.Mutex
	outcomes []jobs.Outcome
}

func newFixture(t *testing.T, opts ...autoplay.Option) *fixture {
	t.Helper()
	f := &fixture{clock: clock.NewFake(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))}
	seq := 0
	f.engine = game.NewEngine(store.NewMemory(),
		game.WithClock(f.clock),
		game.WithFeed(feed.New()),
		game.WithPlayerDirectory(directory{alice: true, robot: true, "carol": true}),
		game.WithIDGenerator(func() string { seq++; return fmt.Sprintf("game-%d", seq) }),
	)
	f.runner = jobs.NewRunner(jobs.WithClock(f.clock), jobs.WithOutcomeHook(func(o jobs.Outcome) {
		f.mu.Lock()
		f.outcomes = append(f.outcomes, o)
		f.mu.Unlock()
	}))
	opts = append([]autoplay.Option{autoplay.WithRand(rand.New(rand.NewSource(7)))}, opts...)
	f.policy = autoplay.New(f.engine, f.runner, robot, opts...)
	t.Cleanup(func() {
		f.runner.Close()
		f.engine.Close()
	})
	return f
}

func (f *fixture) submit(t *testing.T, ev game.Event, id, actor string, p game.Params) game.Snapshot {
	t.Helper()
	snap, err := f.engine.Submit(context.Background(), game.Command{Event: ev, GameID: id, Actor: actor, Params: p})
	if err != nil {
		t.Fatalf("%s by %s: %v", ev, actor, err)
	}
	return snap
}

func (f *fixture) state(t *testing.T, id string) game.Game {
	t.Helper()
	snap, err := f.engine.Game(context.Background(), id)
	if err != nil {
		t.Fatalf("Game(%s): %v", id, err)
	}
	return snap.Game
}

func (f *fixture) notify(id string) bool {
	return f.policy.Handle(context.Background(), feed.Notification{Kind: feed.Transitioned, ModelID: id})
}

func (f *fixture) lastOutcome(t *testing.T) jobs.Outcome {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.outcomes) == 0 {
		t.Fatalf("no job has finished")
	}
	return f.outcomes[len(f.outcomes)-1]
}

// invited creates a game where alice (white) invites the robot.
func (f *fixture) invited(t *testing.T) string {
	t.Helper()
	return f.submit(t, game.CreateGame, "", alice, game.Params{WhitePlayer: alice, BlackPlayer: robot}).Game.ID
}

func TestRobotAcceptsInviteAfterDelay(t *testing.T) {
	f := newFixture(t)
	id := f.invited(t)
	if !f.policy.Handle(context.Background(), feed.Notification{Kind: feed.Created, ModelID: id}) {
		t.Fatalf("expected an action for a pending invite")
	}

	f.clock.Advance(autoplay.DefaultDelay - time.Second)
	if got := f.state(t, id).State; got != game.WaitingForInvitedPlayer {
		t.Fatalf("robot acted before the delay, state = %s", got)
	}
	f.clock.Advance(time.Second)
	if got := f.state(t, id).State; got != game.WhiteTurn {
		t.Fatalf("state = %s, want WhiteTurn", got)
	}
	if o := f.lastOutcome(t); o.Err != nil {
		t.Fatalf("outcome = %+v", o)
	}
}

func TestRobotPlaysALegalMove(t *testing.T) {
	f := newFixture(t)
	id := f.invited(t)
	f.submit(t, game.AcceptInvite, id, robot, game.Params{})
	f.submit(t, game.MakeMove, id, alice, game.Params{Move: "e2e4"})

	legal, err := f.engine.LegalMoves(context.Background(), id)
	if err != nil {
		t.Fatalf("LegalMoves: %v", err)
	}
	if !f.notify(id) {
		t.Fatalf("expected an action on BlackTurn")
	}
	f.clock.Advance(autoplay.DefaultDelay)

	g := f.state(t, id)
	if g.State != game.WhiteTurn || len(g.Moves) != 2 {
		t.Fatalf("state = %s moves = %v", g.State, g.Moves)
	}
	if !legal.Contains(g.Moves[1]) {
		t.Fatalf("robot played %s which was not legal", g.Moves[1])
	}
}

func TestRobotAnswersDrawOffer(t *testing.T) {
	f := newFixture(t)
	id := f.invited(t)
	f.submit(t, game.AcceptInvite, id, robot, game.Params{})
	f.submit(t, game.ProposeDraw, id, alice, game.Params{})

	if !f.notify(id) {
		t.Fatalf("expected an action on WhiteHasProposedDraw")
	}
	f.clock.Advance(autoplay.DefaultDelay)
	switch got := f.state(t, id).State; got {
	case game.Draw, game.WhiteTurn:
	default:
		t.Fatalf("state = %s, want Draw or WhiteTurn", got)
	}
}

func TestCoinFlipProducesBothAnswers(t *testing.T) {
	seen := map[game.State]bool{}
	for seed := int64(0); seed < 32 && len(seen) < 2; seed++ {
		f := newFixture(t, autoplay.WithRand(rand.New(rand.NewSource(seed))), autoplay.WithDelay(0))
		id := f.invited(t)
		f.submit(t, game.AcceptInvite, id, robot, game.Params{})
		f.submit(t, game.ProposeDraw, id, alice, game.Params{})
		if err := f.policy.Act(context.Background(), id); err != nil {
			t.Fatalf("Act: %v", err)
		}
		seen[f.state(t, id).State] = true
	}
	if !seen[game.Draw] || !seen[game.WhiteTurn] {
		t.Fatalf("answers seen = %v", seen)
	}
}

func TestIgnoresGamesWithoutTheRobot(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, game.CreateGame, "", alice, game.Params{WhitePlayer: alice, BlackPlayer: "carol"}).Game.ID
	if f.notify(id) {
		t.Fatalf("scheduled an action for a game the robot does not play")
	}
	if f.runner.Pending() != 0 {
		t.Fatalf("pending = %d", f.runner.Pending())
	}
}

func TestIgnoresStatesWithoutRobotAction(t *testing.T) {
	f := newFixture(t)
	id := f.invited(t)
	f.submit(t, game.AcceptInvite, id, robot, game.Params{})
	if f.notify(id) {
		t.Fatalf("scheduled an action on WhiteTurn")
	}
	if f.policy.Handle(context.Background(), feed.Notification{Kind: feed.Deleted, ModelID: id}) {
		t.Fatalf("scheduled an action for a deleted notification")
	}
	if f.notify("missing") {
		t.Fatalf("scheduled an action for an unknown game")
	}
}

func TestStaleActionFailsWithoutCommand(t *testing.T) {
	f := newFixture(t, autoplay.WithDelay(2*time.Minute))
	id := f.invited(t)
	f.submit(t, game.AcceptInvite, id, robot, game.Params{})
	f.submit(t, game.MakeMove, id, alice, game.Params{Move: "e2e4"})
	f.notify(id)

	// The robot's flag falls before its think delay ends.
	f.clock.Advance(2 * time.Minute)
	g := f.state(t, id)
	if g.State != game.WhiteVictory || len(g.Moves) != 1 {
		t.Fatalf("state = %s moves = %d", g.State, len(g.Moves))
	}
	if o := f.lastOutcome(t); !errors.Is(o.Err, autoplay.ErrNothingToDo) {
		t.Fatalf("outcome = %+v", o)
	}
}

func TestPromotionStateSchedulesButReportsFailure(t *testing.T) {
	f := newFixture(t, autoplay.WithDelay(0))
	id := f.invited(t)
	f.submit(t, game.AcceptInvite, id, robot, game.Params{})
	line := []string{"h2h4", "a7a5", "h4h5", "a5a4", "h5h6", "a4a3", "h6g7", "a3b2", "a2a3"}
	for i, mv := range line {
		actor := alice
		if i%2 == 1 {
			actor = robot
		}
		f.submit(t, game.MakeMove, id, actor, game.Params{Move: mv})
	}
	f.submit(t, game.MakeMove, id, robot, game.Params{Move: "b2a1"})
	if got := f.state(t, id).State; got != game.BlackPromotePawn {
		t.Fatalf("state = %s, want BlackPromotePawn", got)
	}
	if !f.notify(id) {
		t.Fatalf("expected scheduling on BlackPromotePawn")
	}
	f.clock.Advance(0)
	if o := f.lastOutcome(t); !errors.Is(o.Err, autoplay.ErrNothingToDo) {
		t.Fatalf("outcome = %+v", o)
	}
	if got := f.state(t, id).State; got != game.BlackPromotePawn {
		t.Fatalf("state changed to %s", got)
	}
}

func TestDuplicateNotificationsScheduleTwice(t *testing.T) {
	f := newFixture(t)
	id := f.invited(t)
	f.notify(id)
	f.notify(id)
	if f.runner.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", f.runner.Pending())
	}
	f.clock.Advance(autoplay.DefaultDelay)
	if got := f.state(t, id).State; got != game.WhiteTurn {
		t.Fatalf("state = %s", got)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.outcomes) != 2 || f.outcomes[0].Err != nil || f.outcomes[1].Err == nil {
		t.Fatalf("outcomes = %+v", f.outcomes)
	}
}

func TestResumeOngoingSchedulesBlackTurnGames(t *testing.T) {
	f := newFixture(t)
	f.invited(t)
	playing := f.invited(t)
	f.submit(t, game.AcceptInvite, playing, robot, game.Params{})
	f.submit(t, game.MakeMove, playing, alice, game.Params{Move: "d2d4"})

	n, err := f.policy.ResumeOngoing(context.Background())
	if err != nil {
		t.Fatalf("ResumeOngoing: %v", err)
	}
	if n != 1 {
		t.Fatalf("scheduled %d, want 1", n)
	}
	f.clock.Advance(autoplay.DefaultDelay)
	if got := f.state(t, playing); len(got.Moves) != 2 {
		t.Fatalf("moves = %v", got.Moves)
	}
}

func TestRunReactsToFeed(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.policy.Run(ctx) }()

	// Run subscribes asynchronously; retry creation until the subscriber has seen one.
	deadline := time.Now().Add(2 * time.Second)
	for f.runner.Pending() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Run never scheduled an action")
		}
		f.invited(t)
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v", err)
	}
}

func TestActRejectsForeignGame(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, game.CreateGame, "", alice, game.Params{WhitePlayer: alice, BlackPlayer: "carol"}).Game.ID
	if err := f.policy.Act(context.Background(), id); err == nil {
		t.Fatalf("expected an error for a game without the robot")
	}
}
