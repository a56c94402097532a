// Package player is the registry of people (and the robot) who play games.
package player

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrDuplicateName  = errors.New("player name already taken")
	ErrInvalidName    = errors.New("invalid player name")
	ErrInvalidDelta   = errors.New("score delta must not be negative")
)

const (
	minNameLength = 3
	maxNameLength = 50
)

type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository persists players. Implementations return copies.
type Repository interface {
	Insert(ctx context.Context, p Player) error
	Get(ctx context.Context, id string) (Player, error)
	FindByName(ctx context.Context, name string) (Player, error)
	Delete(ctx context.Context, id string) error
	AddScore(ctx context.Context, id string, delta int, at time.Time) (Player, error)
	List(ctx context.Context) ([]Player, error)
}

// ValidateName enforces a single line of 3 to 50 characters.
func ValidateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if strings.ContainsAny(name, "\r\n") {
		return "", fmt.Errorf("%w: must be a single line", ErrInvalidName)
	}
	n := utf8.RuneCountInString(name)
	if n < minNameLength || n > maxNameLength {
		return "", fmt.Errorf("%w: length %d not in %d..%d", ErrInvalidName, n, minNameLength, maxNameLength)
	}
	return name, nil
}
