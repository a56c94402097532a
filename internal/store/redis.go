package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/robochess/internal/game"
)

// DefaultTTL bounds how long an untouched game stays in Redis.
const DefaultTTL = 24 * time.Hour

// Redis stores each game as JSON under chess:game:<id> plus an index set of ids.
// Save uses WATCH on the game key so a stale version never overwrites a newer one.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

// DialRedis connects to a redis:// or rediss:// URL and pings it.
func DialRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for redis store")
	}
	opts, err := parseRedisURL(rawURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func gameKey(id string) string { return "chess:game:" + strings.TrimSpace(id) }

const indexKey = "chess:index:games"

func (s *Redis) Create(ctx context.Context, g game.Game) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, gameKey(g.ID), raw, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("game %s already exists", g.ID)
	}
	if err := s.rdb.SAdd(ctx, indexKey, g.ID).Err(); err != nil {
		return err
	}
	return nil
}

func (s *Redis) Get(ctx context.Context, id string) (game.Game, error) {
	raw, err := s.rdb.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return game.Game{}, game.ErrGameNotFound
	}
	if err != nil {
		return game.Game{}, err
	}
	var g game.Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return game.Game{}, fmt.Errorf("decode game %s: %w", id, err)
	}
	return g, nil
}

func (s *Redis) Save(ctx context.Context, g game.Game, prevVersion int64) error {
	key := gameKey(g.ID)
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return game.ErrGameNotFound
		}
		if err != nil {
			return err
		}
		var cur game.Game
		if err := json.Unmarshal(raw, &cur); err != nil {
			return err
		}
		if cur.Version != prevVersion {
			return game.ErrConcurrentUpdate
		}
		newRaw, err := json.Marshal(g)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, newRaw, s.ttl)
		_, err = pipe.Exec(ctx)
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return game.ErrConcurrentUpdate
	}
	return err
}

func (s *Redis) Delete(ctx context.Context, id string) error {
	n, err := s.rdb.Del(ctx, gameKey(id)).Result()
	if err != nil {
		return err
	}
	_ = s.rdb.SRem(ctx, indexKey, id).Err()
	if n == 0 {
		return game.ErrGameNotFound
	}
	return nil
}

// List returns every indexed game that has not expired. Expired ids are pruned from the index.
func (s *Redis) List(ctx context.Context) ([]game.Game, error) {
	ids, err := s.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]game.Game, 0, len(ids))
	for _, id := range ids {
		g, err := s.Get(ctx, id)
		if errors.Is(err, game.ErrGameNotFound) {
			_ = s.rdb.SRem(ctx, indexKey, id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	sortGames(out)
	return out, nil
}

// parseRedisURL accepts redis:// and rediss:// URLs. rediss:// enables TLS, and the URL user is
// sent as the ACL username.
func parseRedisURL(raw string) (*redis.Options, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opts, nil
}
