package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/park285/cheese-fics/pkg/ficsdto"
)

const defaultHistoryLimit = 200

// Observation is one archived position of an observed game.
type Observation struct {
	SessionID  string
	GameID     int
	MoveNumber int
	SideToMove string
	FEN        string
	WhiteName  string
	BlackName  string
	LastMove   string
	WhiteClock int
	BlackClock int
	ObservedAt time.Time
}

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db, now: time.Now}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

const schema = `CREATE TABLE IF NOT EXISTS fics_observations (
    id           BIGSERIAL PRIMARY KEY,
    session_id   TEXT        NOT NULL,
    game_id      INTEGER     NOT NULL,
    move_number  INTEGER     NOT NULL,
    side_to_move TEXT        NOT NULL,
    fen          TEXT        NOT NULL,
    white_name   TEXT        NOT NULL,
    black_name   TEXT        NOT NULL,
    last_move    TEXT        NOT NULL DEFAULT '',
    white_clock  INTEGER     NOT NULL DEFAULT 0,
    black_clock  INTEGER     NOT NULL DEFAULT 0,
    observed_at  TIMESTAMPTZ NOT NULL,
    UNIQUE (game_id, move_number, side_to_move)
)`

// EnsureSchema creates the observation table when it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// SaveState upserts the position; a repeated snapshot of the same ply only
// refreshes clocks and the observing session.
func (r *Repository) SaveState(ctx context.Context, sessionID string, st *ficsdto.GameState) error {
	if r == nil || r.db == nil || st == nil {
		return nil
	}

	q := `INSERT INTO fics_observations (
        session_id, game_id, move_number, side_to_move, fen,
        white_name, black_name, last_move, white_clock, black_clock, observed_at
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
      ) ON CONFLICT (game_id, move_number, side_to_move) DO UPDATE SET
        session_id=EXCLUDED.session_id,
        fen=EXCLUDED.fen,
        last_move=EXCLUDED.last_move,
        white_clock=EXCLUDED.white_clock,
        black_clock=EXCLUDED.black_clock,
        observed_at=EXCLUDED.observed_at`

	_, err := r.db.ExecContext(ctx, q,
		sessionID, st.ID, st.MoveNumber, st.SideToMove, st.FEN,
		st.White, st.Black, st.LastMove,
		st.Remaining.White, st.Remaining.Black,
		r.now().UTC(),
	)
	return err
}

// History returns up to limit of the latest archived plies of a game, oldest first.
func (r *Repository) History(ctx context.Context, gameID, limit int) ([]Observation, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	q := `SELECT session_id, game_id, move_number, side_to_move, fen,
        white_name, black_name, last_move, white_clock, black_clock, observed_at
      FROM (
        SELECT *, CASE side_to_move WHEN 'White' THEN 0 ELSE 1 END AS ply
        FROM fics_observations
        WHERE game_id = $1
        ORDER BY move_number DESC, ply DESC
        LIMIT $2
      ) recent
      ORDER BY move_number ASC, ply ASC`

	rows, err := r.db.QueryContext(ctx, q, gameID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var o Observation
		if err := rows.Scan(
			&o.SessionID, &o.GameID, &o.MoveNumber, &o.SideToMove, &o.FEN,
			&o.WhiteName, &o.BlackName, &o.LastMove, &o.WhiteClock, &o.BlackClock, &o.ObservedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
