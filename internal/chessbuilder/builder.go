// Package chessbuilder wires configuration into stores, the engine, autoplay and the HTTP API.
package chessbuilder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/robochess/internal/archive"
	"github.com/park285/robochess/internal/autoplay"
	"github.com/park285/robochess/internal/config"
	"github.com/park285/robochess/internal/game"
	"github.com/park285/robochess/internal/httpapi"
	"github.com/park285/robochess/internal/jobs"
	"github.com/park285/robochess/internal/player"
	"github.com/park285/robochess/internal/sqldb"
	"github.com/park285/robochess/internal/store"
)

// Deps is the assembled application.
type Deps struct {
	Config   *config.AppConfig
	Engine   *game.Engine
	Players  *player.Service
	Archive  *archive.Repository
	Jobs     *jobs.Runner
	Autoplay *autoplay.Policy
	HTTP     *httpapi.Server
	Feed     *httpapi.FeedServer

	logger  *zap.Logger
	db      *sqldb.DB
	rdb     *redis.Client
	cancel  context.CancelFunc
	running sync.WaitGroup
}

// New opens storage and builds every component. Nothing runs until Start.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{Config: cfg, logger: logger}

	var games game.Store
	if cfg.RedisURL != "" {
		rdb, err := store.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		d.rdb = rdb
		games = store.NewRedis(rdb, cfg.GameTTL)
	} else {
		logger.Warn("game_store_memory", zap.String("reason", "REDIS_URL not set"))
		games = store.NewMemory()
	}

	var repo player.Repository
	if cfg.DatabaseURL != "" {
		db, err := sqldb.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = d.closeStorage()
			return nil, fmt.Errorf("init database: %w", err)
		}
		d.db = db
		repo = player.NewRepository(db)
	} else {
		logger.Warn("player_store_memory", zap.String("reason", "DATABASE_URL not set; archive disabled"))
		repo = player.NewMemoryRepository()
	}
	d.Players = player.NewService(repo, logger.Named("player"))

	engineOpts := []game.Option{
		game.WithTurnBudget(cfg.TurnBudget),
		game.WithRatingSink(d.Players),
		game.WithPlayerDirectory(d.Players),
		game.WithLogger(logger.Named("game")),
	}
	if d.db != nil {
		d.Archive = archive.NewRepository(d.db, d.playerName, logger.Named("archive"))
		engineOpts = append(engineOpts, game.WithArchiver(d.Archive))
	}
	d.Engine = game.NewEngine(games, engineOpts...)
	d.Jobs = jobs.NewRunner(jobs.WithLogger(logger.Named("jobs")))

	httpOpts := []httpapi.Option{httpapi.WithPlayers(d.Players), httpapi.WithLogger(logger.Named("http"))}
	if d.Archive != nil {
		httpOpts = append(httpOpts, httpapi.WithHistory(d.Archive))
	}
	d.HTTP = httpapi.New(d.Engine, httpOpts...)
	if cfg.FeedAddr != "" {
		d.Feed = httpapi.NewFeedServer(d.Engine, httpapi.WithFeedLogger(logger.Named("feed")))
	}
	return d, nil
}

// playerName resolves ids to names for PGN headers, falling back to the id.
func (d *Deps) playerName(ctx context.Context, id string) string {
	p, err := d.Players.Get(ctx, id)
	if err != nil {
		return id
	}
	return p.Name
}

// Start seeds players, re-arms deadlines and starts the autoplay subscriber.
func (d *Deps) Start(ctx context.Context) error {
	seeded, err := d.Players.Seed(ctx, d.Config.SeedPlayers)
	if err != nil {
		return fmt.Errorf("seed players: %w", err)
	}
	if len(seeded) > 0 {
		d.logger.Info("players_seeded", zap.Int("count", len(seeded)))
	}
	if err := d.Engine.Start(ctx); err != nil {
		return err
	}
	if !d.Config.AutoplayEnabled {
		return nil
	}

	robot, err := d.Players.FindByName(ctx, d.Config.AutoplayPlayer)
	if errors.Is(err, player.ErrPlayerNotFound) {
		robot, err = d.Players.Create(ctx, d.Config.AutoplayPlayer)
	}
	if err != nil {
		return fmt.Errorf("autoplay player %q: %w", d.Config.AutoplayPlayer, err)
	}
	d.Autoplay = autoplay.New(d.Engine, d.Jobs, robot.ID,
		autoplay.WithDelay(d.Config.AutoplayDelay),
		autoplay.WithLogger(d.logger.Named("autoplay")),
	)
	if _, err := d.Autoplay.ResumeOngoing(ctx); err != nil {
		return err
	}

	// Subscribe before returning so games created right after Start are seen.
	ch, unsubscribe := d.Engine.Subscribe()
	runCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.running.Add(1)
	go func() {
		defer d.running.Done()
		defer unsubscribe()
		if err := d.Autoplay.Consume(runCtx, ch); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("autoplay_stopped", zap.Error(err))
		}
	}()
	d.logger.Info("autoplay_started", zap.String("player_id", robot.ID), zap.Duration("delay", d.Config.AutoplayDelay))
	return nil
}

// Close stops the HTTP and feed servers, background work and storage, in that order.
func (d *Deps) Close(ctx context.Context) error {
	var errs []error
	if d.HTTP != nil {
		sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := d.HTTP.Shutdown(sctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		cancel()
	}
	if d.Feed != nil {
		sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := d.Feed.Shutdown(sctx); err != nil {
			errs = append(errs, fmt.Errorf("feed shutdown: %w", err))
		}
		cancel()
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.Jobs.Close()
	d.Engine.Close()
	d.running.Wait()
	errs = append(errs, d.closeStorage())
	return errors.Join(errs...)
}

func (d *Deps) closeStorage() error {
	var errs []error
	if d.rdb != nil {
		errs = append(errs, d.rdb.Close())
	}
	if d.db != nil {
		errs = append(errs, d.db.Close())
	}
	return errors.Join(errs...)
}
