package player

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// memrepo is used when no database is configured.
type memrepo struct {
	mu      sync.RWMutex
	players map[string]Player
	byName  map[string]string
}

func NewMemoryRepository() Repository {
	return &memrepo{players: make(map[string]Player), byName: make(map[string]string)}
}

func (m *memrepo) Insert(_ context.Context, p Player) error {
	key := nameKey(p.Name)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byName[key]; exists {
		return ErrDuplicateName
	}
	m.players[p.ID] = p
	m.byName[key] = p.ID
	return nil
}

func (m *memrepo) Get(_ context.Context, id string) (Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[id]
	if !ok {
		return Player{}, ErrPlayerNotFound
	}
	return p, nil
}

func (m *memrepo) FindByName(_ context.Context, name string) (Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[nameKey(name)]
	if !ok {
		return Player{}, ErrPlayerNotFound
	}
	return m.players[id], nil
}

func (m *memrepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return ErrPlayerNotFound
	}
	delete(m.players, id)
	delete(m.byName, nameKey(p.Name))
	return nil
}

func (m *memrepo) AddScore(_ context.Context, id string, delta int, at time.Time) (Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return Player{}, ErrPlayerNotFound
	}
	p.Score += delta
	p.UpdatedAt = at
	m.players[id] = p
	return p, nil
}

// List orders players by score, best first.
func (m *memrepo) List(_ context.Context) ([]Player, error) {
	m.mu.RLock()
	out := make([]Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func nameKey(name string) string { return strings.TrimSpace(name) }
