package store

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/cheese-fics/pkg/ficsdto"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	opt, err := ParseRedisURL(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("ParseRedisURL: %v", err)
	}
	rdb := redis.NewClient(opt)
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb), mr
}

func state(id, move int, side, last string) *ficsdto.GameState {
	return &ficsdto.GameState{ID: id, MoveNumber: move, SideToMove: side, LastMove: last, White: "GuestA", Black: "GuestB"}
}

func TestSaveStateAppendsOnlyNewMoves(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	steps := []*ficsdto.GameState{
		state(8, 1, "White", "none"),
		state(8, 1, "Black", "e4"),
		state(8, 1, "Black", "e4"), // refresh of the same position
		state(8, 2, "White", "e5"),
	}
	for i, st := range steps {
		if err := s.SaveState(ctx, st); err != nil {
			t.Fatalf("SaveState #%d: %v", i, err)
		}
	}

	moves, err := s.Moves(ctx, 8)
	if err != nil {
		t.Fatalf("Moves: %v", err)
	}
	if !reflect.DeepEqual(moves, []string{"e4", "e5"}) {
		t.Fatalf("moves = %v", moves)
	}

	got, err := s.LoadState(ctx, 8)
	if err != nil || got == nil {
		t.Fatalf("LoadState: %v %v", got, err)
	}
	if got.MoveNumber != 2 || got.SideToMove != "White" || got.White != "GuestA" {
		t.Fatalf("unexpected state: %+v", got)
	}
	if ttl := mr.TTL("fics:game:8"); ttl != ttlGame {
		t.Fatalf("ttl = %v", ttl)
	}
}

func TestLoadMissing(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	st, err := s.LoadState(ctx, 99)
	if err != nil || st != nil {
		t.Fatalf("expected nil,nil got %v,%v", st, err)
	}
	list, err := s.LoadList(ctx)
	if err != nil || list != nil {
		t.Fatalf("expected nil,nil got %v,%v", list, err)
	}
}

func TestSaveList(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	games := []ficsdto.GameSummary{
		{ID: 28, White: "TryMe", Black: "Jack", Ratings: [2]int{-1, 1737}, Type: "Standard", Initial: 30, Increment: 20},
		{ID: 3, White: "A", Black: "B", Type: "Blitz", Rated: true, Initial: 3},
	}
	if err := s.SaveList(ctx, games); err != nil {
		t.Fatalf("SaveList: %v", err)
	}
	got, err := s.LoadList(ctx)
	if err != nil {
		t.Fatalf("LoadList: %v", err)
	}
	if !reflect.DeepEqual(got, games) {
		t.Fatalf("list = %+v", got)
	}

	if err := s.SaveList(ctx, nil); err != nil {
		t.Fatalf("SaveList(nil): %v", err)
	}
	got, err = s.LoadList(ctx)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("expected empty list, got %v %v", got, err)
	}
}

func TestObservedSet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, id := range []int{42, 7, 42} {
		if err := s.MarkObserved(ctx, id); err != nil {
			t.Fatalf("MarkObserved: %v", err)
		}
	}
	ids, err := s.Observed(ctx)
	if err != nil {
		t.Fatalf("Observed: %v", err)
	}
	if !reflect.DeepEqual(ids, []int{7, 42}) {
		t.Fatalf("observed = %v", ids)
	}

	if err := s.UnmarkObserved(ctx, 7); err != nil {
		t.Fatalf("UnmarkObserved: %v", err)
	}
	ids, _ = s.Observed(ctx)
	if !reflect.DeepEqual(ids, []int{42}) {
		t.Fatalf("observed after unmark = %v", ids)
	}
}

func TestParseRedisURL(t *testing.T) {
	opt, err := ParseRedisURL("redis://:secret@cache:6380/2")
	if err != nil {
		t.Fatalf("ParseRedisURL: %v", err)
	}
	if opt.Addr != "cache:6380" || opt.Password != "secret" || opt.DB != 2 {
		t.Fatalf("unexpected options: %+v", opt)
	}

	opt, err = ParseRedisURL("localhost:6379")
	if err != nil || opt.Addr != "localhost:6379" {
		t.Fatalf("bare host: %+v %v", opt, err)
	}

	if _, err := ParseRedisURL("  "); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
