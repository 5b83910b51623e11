package kv

import (
	"context"
	"path/filepath"
	"testing"
)

func testStoreBehavior(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if b, err := s.Balance(ctx, "nobody"); err != nil || b != 0 {
		t.Fatalf("missing user should read 0, got %d err=%v", b, err)
	}

	if b, err := s.Adjust(ctx, "Alice", 100); err != nil || b != 100 {
		t.Fatalf("first adjust: got %d err=%v", b, err)
	}
	if b, err := s.Adjust(ctx, "alice", -30); err != nil || b != 70 {
		t.Fatalf("case-insensitive adjust: got %d err=%v", b, err)
	}
	if b, err := s.Balance(ctx, " ALICE "); err != nil || b != 70 {
		t.Fatalf("normalized lookup: got %d err=%v", b, err)
	}

	if _, err := s.Adjust(ctx, "bob", 200); err != nil {
		t.Fatalf("seed bob: %v", err)
	}
	top, err := s.Top(ctx, 5)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].User != "bob" || top[0].Balance != 200 {
		t.Fatalf("expected bob first, got %v", top)
	}
	top, err = s.Top(ctx, 1)
	if err != nil || len(top) != 1 {
		t.Fatalf("top limit: got %v err=%v", top, err)
	}

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	testStoreBehavior(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "scores.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	testStoreBehavior(t, s)
}

func TestSQLiteReopenKeepsBalances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.db")
	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.Adjust(context.Background(), "alice", 42); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if b, err := s.Balance(context.Background(), "alice"); err != nil || b != 42 {
		t.Fatalf("expected persisted 42, got %d err=%v", b, err)
	}
}
