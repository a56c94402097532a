// Package archive records finished games with their result, SAN move list and PGN.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/park285/robochess/internal/chess"
	"github.com/park285/robochess/internal/game"
	"github.com/park285/robochess/internal/obslog"
	"github.com/park285/robochess/internal/sqldb"
)

// Result is one archived game.
type Result struct {
	GameID      string        `json:"game_id"`
	WhitePlayer string        `json:"white_player"`
	BlackPlayer string        `json:"black_player"`
	Result      string        `json:"result"`
	Method      string        `json:"method"`
	Moves       []string      `json:"moves"`
	MovesSAN    []string      `json:"moves_san"`
	PGN         string        `json:"pgn"`
	WhiteTime   time.Duration `json:"white_time"`
	BlackTime   time.Duration `json:"black_time"`
	StartedAt   time.Time     `json:"started_at"`
	EndedAt     time.Time     `json:"ended_at"`
}

// NameFunc resolves a player id to a display name for PGN headers.
type NameFunc func(ctx context.Context, playerID string) string

type Repository struct {
	db     *sqldb.DB
	names  NameFunc
	logger *zap.Logger
}

func NewRepository(db *sqldb.DB, names NameFunc, logger *zap.Logger) *Repository {
	if names == nil {
		names = func(_ context.Context, id string) string { return id }
	}
	if logger == nil {
		logger = obslog.L()
	}
	return &Repository{db: db, names: names, logger: logger}
}

// SaveResult upserts the final state of g.
func (r *Repository) SaveResult(ctx context.Context, g game.Game) error {
	if r == nil || r.db == nil {
		return nil
	}
	res := Build(g)
	white, black := r.names(ctx, g.WhitePlayer), r.names(ctx, g.BlackPlayer)
	res.PGN = buildPGN(res, white, black)

	movesRaw, _ := json.Marshal(res.Moves)
	sanRaw, _ := json.Marshal(res.MovesSAN)
	const q = `INSERT INTO game_results (
		game_id, white_player, black_player, result, result_method,
		moves, moves_san, pgn, white_time_ms, black_time_ms, started_at, ended_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (game_id) DO UPDATE SET
		result = excluded.result,
		result_method = excluded.result_method,
		moves = excluded.moves,
		moves_san = excluded.moves_san,
		pgn = excluded.pgn,
		white_time_ms = excluded.white_time_ms,
		black_time_ms = excluded.black_time_ms,
		ended_at = excluded.ended_at`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(q),
		res.GameID, res.WhitePlayer, res.BlackPlayer, res.Result, res.Method,
		string(movesRaw), string(sanRaw), res.PGN,
		res.WhiteTime.Milliseconds(), res.BlackTime.Milliseconds(),
		sqldb.ToMillis(res.StartedAt), sqldb.ToMillis(res.EndedAt),
	)
	if err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}
	r.logger.Info("game_result_persist",
		zap.String("game_id", res.GameID),
		zap.String("result", res.Result),
		zap.String("method", res.Method),
	)
	return nil
}

// Recent returns the latest archived games a player took part in.
func (r *Repository) Recent(ctx context.Context, playerID string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `SELECT game_id, white_player, black_player, result, result_method,
		moves, moves_san, pgn, white_time_ms, black_time_ms, started_at, ended_at
		FROM game_results
		WHERE white_player = ? OR black_player = ?
		ORDER BY ended_at DESC
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(q), playerID, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("select game results: %w", err)
	}
	defer rows.Close()

	out := make([]Result, 0, limit)
	for rows.Next() {
		var (
			res                Result
			movesRaw, sanRaw   string
			whiteMS, blackMS   int64
			startedMS, endedMS int64
		)
		if err := rows.Scan(&res.GameID, &res.WhitePlayer, &res.BlackPlayer, &res.Result, &res.Method,
			&movesRaw, &sanRaw, &res.PGN, &whiteMS, &blackMS, &startedMS, &endedMS); err != nil {
			return nil, fmt.Errorf("scan game result: %w", err)
		}
		if err := json.Unmarshal([]byte(movesRaw), &res.Moves); err != nil {
			return nil, fmt.Errorf("unmarshal moves: %w", err)
		}
		if err := json.Unmarshal([]byte(sanRaw), &res.MovesSAN); err != nil {
			return nil, fmt.Errorf("unmarshal moves_san: %w", err)
		}
		res.WhiteTime = time.Duration(whiteMS) * time.Millisecond
		res.BlackTime = time.Duration(blackMS) * time.Millisecond
		res.StartedAt = sqldb.FromMillis(startedMS)
		res.EndedAt = sqldb.FromMillis(endedMS)
		out = append(out, res)
	}
	return out, rows.Err()
}

// Build derives the archive row of a finished game without touching the database.
func Build(g game.Game) Result {
	moves := make([]string, len(g.Moves))
	for i, m := range g.Moves {
		moves[i] = m.String()
	}
	return Result{
		GameID:      g.ID,
		WhitePlayer: g.WhitePlayer,
		BlackPlayer: g.BlackPlayer,
		Result:      resultToken(g.State),
		Method:      string(g.Method),
		Moves:       moves,
		MovesSAN:    sanMoves(g.Moves),
		WhiteTime:   g.WhiteTime,
		BlackTime:   g.BlackTime,
		StartedAt:   g.CreatedAt,
		EndedAt:     g.UpdatedAt,
	}
}

func resultToken(s game.State) string {
	switch s {
	case game.WhiteVictory:
		return "1-0"
	case game.BlackVictory:
		return "0-1"
	case game.Draw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

// sanMoves converts coordinate moves to SAN. Castling is generated without move history, so
// a line can contain a move the SAN encoder refuses; from that point on the coordinate form is kept.
func sanMoves(moves []chess.Move) []string {
	out := make([]string, 0, len(moves))
	g := nchess.NewGame()
	replaying := true
	for _, m := range moves {
		if replaying {
			pos := g.Position()
			mv, err := nchess.UCINotation{}.Decode(pos, uci(m))
			if err == nil && g.Move(mv, nil) == nil {
				out = append(out, nchess.AlgebraicNotation{}.Encode(pos, mv))
				continue
			}
			replaying = false
		}
		out = append(out, m.String())
	}
	return out
}

func uci(m chess.Move) string {
	s := m.From.String() + m.To.String()
	if m.Promotion != chess.NoPiece {
		s += strings.ToLower(m.Promotion.Letter())
	}
	return s
}

func buildPGN(res Result, white, black string) string {
	var b strings.Builder
	date := res.EndedAt
	if date.IsZero() {
		date = time.Now()
	}
	b.WriteString("[Event \"Casual game\"]\n")
	b.WriteString("[Site \"robochess\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(white)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(black)))
	if strings.TrimSpace(res.Method) != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(res.Method)))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", res.Result))

	for i := 0; i < len(res.MovesSAN); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", i/2+1, strings.TrimSpace(res.MovesSAN[i])))
		if i+1 < len(res.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(res.MovesSAN[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(res.Result)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
