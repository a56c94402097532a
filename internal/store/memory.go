// Package store holds game.Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/park285/robochess/internal/game"
)

// Memory keeps games in process. Values are copied on the way in and out.
type Memory struct {
	mu    sync.RWMutex
	games map[string]game.Game
}

func NewMemory() *Memory {
	return &Memory{games: make(map[string]game.Game)}
}

func (m *Memory) Create(_ context.Context, g game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[g.ID]; ok {
		return fmt.Errorf("game %s already exists", g.ID)
	}
	m.games[g.ID] = g.Clone()
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return game.Game{}, game.ErrGameNotFound
	}
	return g.Clone(), nil
}

func (m *Memory) Save(_ context.Context, g game.Game, prevVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.games[g.ID]
	if !ok {
		return game.ErrGameNotFound
	}
	if cur.Version != prevVersion {
		return game.ErrConcurrentUpdate
	}
	m.games[g.ID] = g.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[id]; !ok {
		return game.ErrGameNotFound
	}
	delete(m.games, id)
	return nil
}

// List returns all games ordered by creation time.
func (m *Memory) List(_ context.Context) ([]game.Game, error) {
	m.mu.RLock()
	out := make([]game.Game, 0, len(m.games))
	for _, g := range m.games {
		out = append(out, g.Clone())
	}
	m.mu.RUnlock()
	sortGames(out)
	return out, nil
}

func sortGames(list []game.Game) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}
