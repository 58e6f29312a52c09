package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-fics/pkg/ficsdto"
	"github.com/redis/go-redis/v9"
)

const (
	ttlGame = 6 * time.Hour
	ttlList = 10 * time.Minute
)

// Store caches the latest listing and game snapshots in Redis.
type Store struct{ rdb *redis.Client }

func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

// ParseRedisURL accepts redis://[:pass@]host:port/db or a bare host:port.
func ParseRedisURL(raw string) (*redis.Options, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("redis url is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "redis://" + raw
	}
	opt, err := redis.ParseURL(raw)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opt, nil
}

func (s *Store) keyGame(id int) string  { return "fics:game:" + strconv.Itoa(id) }
func (s *Store) keyMoves(id int) string { return s.keyGame(id) + ":moves" }
func (s *Store) keyList() string        { return "fics:games" }
func (s *Store) keyObserved() string    { return "fics:observed" }

// SaveState replaces the cached snapshot of a game. The move is appended to
// the game's move list only when the position advanced.
func (s *Store) SaveState(ctx context.Context, st *ficsdto.GameState) error {
	if st == nil {
		return nil
	}
	prev, err := s.LoadState(ctx, st.ID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.keyGame(st.ID), raw, ttlGame)
	if advanced(prev, st) {
		pipe.RPush(ctx, s.keyMoves(st.ID), st.LastMove)
	}
	pipe.Expire(ctx, s.keyMoves(st.ID), ttlGame)
	_, err = pipe.Exec(ctx)
	return err
}

func advanced(prev, next *ficsdto.GameState) bool {
	if next.LastMove == "" || next.LastMove == "none" {
		return false
	}
	if prev == nil {
		return true
	}
	return prev.MoveNumber != next.MoveNumber || prev.SideToMove != next.SideToMove
}

func (s *Store) LoadState(ctx context.Context, id int) (*ficsdto.GameState, error) {
	raw, err := s.rdb.Get(ctx, s.keyGame(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st ficsdto.GameState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) Moves(ctx context.Context, id int) ([]string, error) {
	return s.rdb.LRange(ctx, s.keyMoves(id), 0, -1).Result()
}

func (s *Store) SaveList(ctx context.Context, games []ficsdto.GameSummary) error {
	if games == nil {
		games = []ficsdto.GameSummary{}
	}
	raw, err := json.Marshal(games)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.keyList(), raw, ttlList).Err()
}

func (s *Store) LoadList(ctx context.Context) ([]ficsdto.GameSummary, error) {
	raw, err := s.rdb.Get(ctx, s.keyList()).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var games []ficsdto.GameSummary
	if err := json.Unmarshal(raw, &games); err != nil {
		return nil, err
	}
	return games, nil
}

func (s *Store) MarkObserved(ctx context.Context, id int) error {
	return s.rdb.SAdd(ctx, s.keyObserved(), strconv.Itoa(id)).Err()
}

func (s *Store) UnmarkObserved(ctx context.Context, id int) error {
	return s.rdb.SRem(ctx, s.keyObserved(), strconv.Itoa(id)).Err()
}

// Observed returns the observed game IDs in ascending order.
func (s *Store) Observed(ctx context.Context) ([]int, error) {
	members, err := s.rdb.SMembers(ctx, s.keyObserved()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	sort.Ints(out)
	return out, nil
}
