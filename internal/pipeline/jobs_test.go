package pipeline

import (
	"testing"
	"time"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_DifferentInputs(t *testing.T) {
	h1 := ContentHashHex([]byte("aaa"))
	h2 := ContentHashHex([]byte("bbb"))
	if h1 == h2 {
		t.Error("expected different hashes for different inputs")
	}
}

func TestContentHashHex_EmptyInput(t *testing.T) {
	h := ContentHashHex([]byte{})
	// SHA-256 of empty input is well-known.
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if h != want {
		t.Errorf("expected hash %q, got %q", want, h)
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusParsing, "parsing definition"},
		{StatusBuilding, "building variants"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_SetStatusFailed(t *testing.T) {
	job := &Job{
		ID:        "test-fail",
		Status:    StatusBuilding,
		UpdatedAt: time.Now(),
	}
	job.SetStatus(StatusFailed, "template not found")
	if job.Status != StatusFailed {
		t.Errorf("expected status %q, got %q", StatusFailed, job.Status)
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("Viper: template not found")
	job.AddError("Uzi: source element not found")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "Viper: template not found" {
		t.Errorf("expected first error %q, got %q", "Viper: template not found", snap.Progress.Errors[0])
	}
}

func TestJob_AddResultCounts(t *testing.T) {
	job := &Job{ID: "results-test", UpdatedAt: time.Now()}
	job.AddResult(VariantResult{Group: 2, Variant: "Uzi", Status: resultFailed})
	job.AddResult(VariantResult{Group: 1, Variant: "Viper", Status: resultBuilt, Outputs: []string{"a.png"}})
	job.AddResult(VariantResult{Group: 1, Variant: "Enfield", Status: resultSkipped})

	snap := job.Snapshot()
	if snap.Progress.Built != 1 || snap.Progress.Failed != 1 || snap.Progress.Skipped != 1 {
		t.Errorf("unexpected counts %+v", snap.Progress)
	}
	if snap.Results[0].Group != 1 || snap.Results[2].Group != 2 {
		t.Errorf("expected results ordered by group, got %+v", snap.Results)
	}
	if out := job.Outputs(); len(out) != 1 || out[0] != "a.png" {
		t.Errorf("expected outputs [a.png], got %v", out)
	}
}

func TestJob_SetTotals(t *testing.T) {
	job := &Job{ID: "total-test", UpdatedAt: time.Now()}
	job.SetTotals(3, 42)

	snap := job.Snapshot()
	if snap.Progress.Groups != 3 || snap.Progress.Variants != 42 {
		t.Errorf("expected 3 groups and 42 variants, got %+v", snap.Progress)
	}
}

func TestNewJob_Defaults(t *testing.T) {
	job := NewJob("flights.csv", []byte("x"), "", BuildOptions{})
	if job.Mode != ModeTable {
		t.Errorf("expected mode %q, got %q", ModeTable, job.Mode)
	}
	if job.Status != StatusQueued {
		t.Errorf("expected status %q, got %q", StatusQueued, job.Status)
	}
	if len(job.ID) != 36 {
		t.Errorf("expected 36-char UUID, got %q", job.ID)
	}
	other := NewJob("flights.csv", nil, ModeTable, BuildOptions{})
	if other.ID <= job.ID {
		t.Errorf("expected increasing job IDs, got %q then %q", job.ID, other.ID)
	}
}

func TestJob_FileData(t *testing.T) {
	job := &Job{ID: "data-test"}
	data := []byte("file content here")
	job.SetFileData(data)
	got := job.FileData()
	if string(got) != string(data) {
		t.Errorf("expected file data %q, got %q", data, got)
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Progress.Errors))
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", UpdatedAt: time.Now()}
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	// Add a fresh job.
	fresh := &Job{ID: "new", UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestJobStore_CleanupReturnsExpired(t *testing.T) {
	store := NewJobStore(time.Millisecond)
	store.Put(&Job{ID: "old", UpdatedAt: time.Now().Add(-time.Hour)})
	expired := store.Cleanup()
	if len(expired) != 1 || expired[0].ID != "old" {
		t.Errorf("expected old job returned, got %v", expired)
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	// Should not panic on empty store.
	store.Cleanup()
}
