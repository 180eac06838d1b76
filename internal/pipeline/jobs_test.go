package pipeline

import (
	"sync"
	"testing"
	"time"
)

func TestNewJob(t *testing.T) {
	a := NewJob(KindSectioning, "rfp-1")
	b := NewJob(KindSectioning, "rfp-1")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected distinct non-empty IDs, got %q and %q", a.ID, b.ID)
	}
	if a.Status != StatusPending {
		t.Errorf("expected status %q, got %q", StatusPending, a.Status)
	}
	if a.Phase != PhaseQueued {
		t.Errorf("expected phase %q, got %q", PhaseQueued, a.Phase)
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob(KindSectioning, "rfp-1")

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusRunning, PhaseAnalyzing},
		{StatusRunning, PhaseTOC},
		{StatusRunning, PhaseValidating},
		{StatusRunning, PhasePopulating},
		{StatusRunning, PhaseStoring},
		{StatusSucceeded, PhaseDone},
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

func TestJob_FinishKeepsReason(t *testing.T) {
	job := NewJob(KindSectioning, "rfp-1")
	job.Finish(StatusFailed, PhaseAnalyzing, "layout: bad pdf")

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Errorf("expected status %q, got %q", StatusFailed, snap.Status)
	}
	if snap.Reason != "layout: bad pdf" {
		t.Errorf("expected reason %q, got %q", "layout: bad pdf", snap.Reason)
	}
	if !snap.Status.IsTerminal() {
		t.Error("expected failed to be terminal")
	}
}

func TestJobStatus_IsTerminal(t *testing.T) {
	cases := map[JobStatus]bool{
		StatusPending:   false,
		StatusRunning:   false,
		StatusSucceeded: true,
		StatusPartial:   true,
		StatusFailed:    true,
	}
	for status, want := range cases {
		if got := status.IsTerminal(); got != want {
			t.Errorf("expected IsTerminal(%q) = %v, got %v", status, want, got)
		}
	}
}

func TestJob_AddError(t *testing.T) {
	job := NewJob(KindExtraction, "rfp-1")
	job.AddError("section 3 failed")
	job.AddError("section 7 failed")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "section 3 failed" {
		t.Errorf("expected first error %q, got %q", "section 3 failed", snap.Progress.Errors[0])
	}
}

func TestJob_Counters(t *testing.T) {
	job := NewJob(KindExtraction, "rfp-1")
	job.SetTotal(5)
	job.AddDone(1)
	job.AddDone(2)
	job.AddFailed(1)

	snap := job.Snapshot()
	if snap.Progress.Total != 5 {
		t.Errorf("expected total 5, got %d", snap.Progress.Total)
	}
	if snap.Progress.Done != 3 {
		t.Errorf("expected 3 done, got %d", snap.Progress.Done)
	}
	if snap.Progress.Failed != 1 {
		t.Errorf("expected 1 failed, got %d", snap.Progress.Failed)
	}
}

func TestJob_Inputs(t *testing.T) {
	job := NewJob(KindSectioning, "rfp-1")
	data := []byte("file content here")
	job.SetFileData(data)
	if got := job.FileData(); string(got) != string(data) {
		t.Errorf("expected file data %q, got %q", data, got)
	}
	job.SetTOCOverride("1. Intro [1, 2]")
	if got := job.TOCOverride(); got != "1. Intro [1, 2]" {
		t.Errorf("expected toc override, got %q", got)
	}
	job.SetForce(true)
	if !job.Force() {
		t.Error("expected force to be set")
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	job := NewJob(KindSectioning, "rfp-1")
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
	job := NewJob(KindSectioning, "rfp-1")
	store.Put(job)

	got := store.Get(job.ID)
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.DocID != "rfp-1" {
		t.Errorf("expected doc ID %q, got %q", "rfp-1", got.DocID)
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_Active(t *testing.T) {
	store := NewJobStore(time.Hour)
	running := NewJob(KindSectioning, "rfp-1")
	running.SetStatus(StatusRunning, PhaseTOC)
	done := NewJob(KindSectioning, "rfp-1")
	done.Finish(StatusSucceeded, PhaseDone, "")
	other := NewJob(KindSectioning, "rfp-2")
	store.Put(running)
	store.Put(done)
	store.Put(other)

	active := store.Active("rfp-1")
	if len(active) != 1 || active[0].ID != running.ID {
		t.Errorf("expected only the running job, got %d jobs", len(active))
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := NewJob(KindSectioning, "old")
	expired.Finish(StatusSucceeded, PhaseDone, "")
	store.Put(expired)

	stuck := NewJob(KindSectioning, "running")
	stuck.SetStatus(StatusRunning, PhaseValidating)
	store.Put(stuck)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	fresh := NewJob(KindSectioning, "new")
	fresh.Finish(StatusSucceeded, PhaseDone, "")
	store.Put(fresh)

	store.Cleanup()

	if store.Get(expired.ID) != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get(fresh.ID) == nil {
		t.Error("expected fresh job to survive cleanup")
	}
	if store.Get(stuck.ID) == nil {
		t.Error("expected unfinished job to survive cleanup")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	// Should not panic on empty store.
	store.Cleanup()
}

func TestJobStore_PutIfNoActive(t *testing.T) {
	store := NewJobStore(time.Hour)

	const n = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.PutIfNoActive(NewJob(KindSectioning, "rfp-1")) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if accepted != 1 {
		t.Fatalf("expected exactly 1 accepted job, got %d", accepted)
	}
	active := store.Active("rfp-1")
	if len(active) != 1 {
		t.Fatalf("expected 1 active job, got %d", len(active))
	}

	active[0].Finish(StatusSucceeded, PhaseDone, "")
	if !store.PutIfNoActive(NewJob(KindExtraction, "rfp-1")) {
		t.Error("expected a new job once the previous one finished")
	}
	if !store.PutIfNoActive(NewJob(KindSectioning, "rfp-2")) {
		t.Error("expected other documents to be unaffected")
	}
}
