package history

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entries := []Entry{
		{JobID: "a", Source: "flights.csv", Variant: "Viper", Status: StatusBuilt, Outputs: []string{"out/viper.svg", "out/viper.png"}},
		{JobID: "a", Source: "flights.csv", Variant: "Uzi", Status: StatusFailed, Error: "template not found"},
		{JobID: "b", Source: "edits.txt", Variant: "edits", Status: StatusBuilt},
	}
	for _, e := range entries {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	all, err := s.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if all[0].Variant != "edits" {
		t.Errorf("expected newest first, got %q", all[0].Variant)
	}

	jobA, err := s.Recent(ctx, "a", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(jobA) != 2 {
		t.Fatalf("expected 2 entries for job a, got %d", len(jobA))
	}
	viper := jobA[1]
	if len(viper.Outputs) != 2 || viper.Outputs[1] != "out/viper.png" {
		t.Errorf("expected outputs round trip, got %v", viper.Outputs)
	}
	if jobA[0].Error != "template not found" {
		t.Errorf("expected error text, got %q", jobA[0].Error)
	}
	if viper.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Record(context.Background(), Entry{JobID: "x", Source: "s", Variant: "v", Status: StatusBuilt}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(context.Background(), path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Recent(context.Background(), "", 0)
	if err != nil || len(got) != 1 {
		t.Errorf("expected 1 entry after reopen, got %d %v", len(got), err)
	}
}
