package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/robochess/internal/obslog"
)

// Service implements the player commands and serves as the engine's rating sink and directory.
type Service struct {
	repo   Repository
	now    func() time.Time
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = obslog.L()
	}
	return &Service{repo: repo, now: time.Now, logger: logger}
}

func (s *Service) Create(ctx context.Context, name string) (Player, error) {
	clean, err := ValidateName(name)
	if err != nil {
		return Player{}, err
	}
	now := s.now()
	p := Player{ID: uuid.NewString(), Name: clean, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.Insert(ctx, p); err != nil {
		return Player{}, err
	}
	s.logger.Info("player_create", zap.String("player_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("player_delete", zap.String("player_id", id))
	return nil
}

// UpdateScore adds delta to the player's score.
func (s *Service) UpdateScore(ctx context.Context, id string, delta int) error {
	if delta < 0 {
		return ErrInvalidDelta
	}
	p, err := s.repo.AddScore(ctx, id, delta, s.now())
	if err != nil {
		return fmt.Errorf("update score of %s: %w", id, err)
	}
	s.logger.Info("player_score_update", zap.String("player_id", id), zap.Int("delta", delta), zap.Int("score", p.Score))
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (Player, error) { return s.repo.Get(ctx, id) }

func (s *Service) FindByName(ctx context.Context, name string) (Player, error) {
	return s.repo.FindByName(ctx, name)
}

func (s *Service) List(ctx context.Context) ([]Player, error) { return s.repo.List(ctx) }

func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrPlayerNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Seed creates the named players when the registry is empty.
func (s *Service) Seed(ctx context.Context, names []string) ([]Player, error) {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, nil
	}
	var created []Player
	for _, n := range names {
		p, err := s.Create(ctx, n)
		if err != nil {
			return created, fmt.Errorf("seed %q: %w", n, err)
		}
		created = append(created, p)
	}
	return created, nil
}
