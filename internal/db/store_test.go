// internal/db/store_test.go
package db

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "debates.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "debates.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	store.Close()
}

func TestStore_DebateLifecycle(t *testing.T) {
	store := openTestStore(t)

	if err := store.CreateDebate("d1", "42", "Free transit is good policy", "vanilla"); err != nil {
		t.Fatalf("CreateDebate returned error: %v", err)
	}

	got, err := store.GetDebate("d1")
	if err != nil {
		t.Fatalf("GetDebate returned error: %v", err)
	}
	if got.Claim != "Free transit is good policy" || got.HelperType != "vanilla" {
		t.Errorf("Unexpected debate row: %+v", got)
	}
	if got.Result != "" {
		t.Errorf("Expected no result before finish, got %q", got.Result)
	}
	if got.EndedAt.Valid {
		t.Error("Expected no ended_at before finish")
	}

	if err := store.FinishDebate("d1", "converged", "debater conceded", 3); err != nil {
		t.Fatalf("FinishDebate returned error: %v", err)
	}

	got, err = store.GetDebate("d1")
	if err != nil {
		t.Fatalf("GetDebate returned error: %v", err)
	}
	if got.Result != "converged" || got.Reason != "debater conceded" || got.Rounds != 3 {
		t.Errorf("Unexpected finished row: %+v", got)
	}
	if !got.EndedAt.Valid {
		t.Error("Expected ended_at set after finish")
	}
}

func TestStore_TurnsAndVerdicts(t *testing.T) {
	store := openTestStore(t)

	if err := store.CreateDebate("d1", "1", "claim", "none"); err != nil {
		t.Fatalf("CreateDebate returned error: %v", err)
	}

	if _, err := store.AddTurn("d1", "persuader", 1, "opening argument", 12); err != nil {
		t.Fatalf("AddTurn returned error: %v", err)
	}
	if _, err := store.AddTurn("d1", "debater", 1, "counterargument", 9); err != nil {
		t.Fatalf("AddTurn returned error: %v", err)
	}
	if err := store.AddVerdict("d1", "concession", 1, "continue", ""); err != nil {
		t.Fatalf("AddVerdict returned error: %v", err)
	}

	turns, err := store.GetTurns("d1")
	if err != nil {
		t.Fatalf("GetTurns returned error: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("Expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != "persuader" || turns[0].Content != "opening argument" || turns[0].Tokens != 12 {
		t.Errorf("Unexpected first turn: %+v", turns[0])
	}
	if turns[1].Role != "debater" {
		t.Errorf("Expected insertion order preserved, got %+v", turns[1])
	}

	verdicts, err := store.GetVerdicts("d1")
	if err != nil {
		t.Fatalf("GetVerdicts returned error: %v", err)
	}
	if len(verdicts) != 1 {
		t.Fatalf("Expected 1 verdict, got %d", len(verdicts))
	}
	if verdicts[0].Moderator != "concession" || verdicts[0].Signal != "continue" {
		t.Errorf("Unexpected verdict: %+v", verdicts[0])
	}
}

func TestStore_ListDebates(t *testing.T) {
	store := openTestStore(t)

	for _, id := range []string{"d1", "d2", "d3"} {
		if err := store.CreateDebate(id, "t", "claim "+id, "none"); err != nil {
			t.Fatalf("CreateDebate(%s) returned error: %v", id, err)
		}
	}

	rows, err := store.ListDebates()
	if err != nil {
		t.Fatalf("ListDebates returned error: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("Expected 3 debates, got %d", len(rows))
	}
}

func TestStore_DuplicateDebateIDRejected(t *testing.T) {
	store := openTestStore(t)

	if err := store.CreateDebate("d1", "t", "claim", "none"); err != nil {
		t.Fatalf("CreateDebate returned error: %v", err)
	}
	if err := store.CreateDebate("d1", "t", "claim", "none"); err == nil {
		t.Error("Expected primary key violation for duplicate debate id")
	}
}
