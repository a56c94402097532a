package player

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/robochess/internal/sqldb"
)

type repository struct {
	db *sqldb.DB
}

func NewRepository(db *sqldb.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, p Player) error {
	const query = `
		INSERT INTO players (id, name, score, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		p.ID, p.Name, p.Score, sqldb.ToMillis(p.CreatedAt), sqldb.ToMillis(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDuplicateName
	}
	return nil
}

const selectPlayer = `SELECT id, name, score, created_at, updated_at FROM players`

func (r *repository) Get(ctx context.Context, id string) (Player, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(selectPlayer+` WHERE id = ?`), id)
	return scanPlayer(row)
}

func (r *repository) FindByName(ctx context.Context, name string) (Player, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(selectPlayer+` WHERE name = ?`), strings.TrimSpace(name))
	return scanPlayer(row)
}

func (r *repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM players WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

func (r *repository) AddScore(ctx context.Context, id string, delta int, at time.Time) (Player, error) {
	const query = `UPDATE players SET score = score + ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), delta, sqldb.ToMillis(at), id)
	if err != nil {
		return Player{}, fmt.Errorf("update score: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Player{}, ErrPlayerNotFound
	}
	return r.Get(ctx, id)
}

func (r *repository) List(ctx context.Context) ([]Player, error) {
	rows, err := r.db.QueryContext(ctx, selectPlayer+` ORDER BY score DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("select players: %w", err)
	}
	defer rows.Close()
	var out []Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (Player, error) {
	var (
		p                Player
		created, updated int64
	)
	err := row.Scan(&p.ID, &p.Name, &p.Score, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Player{}, ErrPlayerNotFound
	}
	if err != nil {
		return Player{}, fmt.Errorf("scan player: %w", err)
	}
	p.CreatedAt = sqldb.FromMillis(created)
	p.UpdatedAt = sqldb.FromMillis(updated)
	return p, nil
}
