package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgallion1/rfpgest/internal/events"
	"github.com/dgallion1/rfpgest/internal/metrics"
	"github.com/dgallion1/rfpgest/internal/store"
)

// tracker fans every job transition out to the status record, the event
// publisher and metrics. Failures there are logged and never fail the job.
type tracker struct {
	store  store.Store
	events events.Publisher
	log    *slog.Logger
}

func (t *tracker) update(ctx context.Context, job *Job, status JobStatus, phase string) {
	job.SetStatus(status, phase)
	t.record(ctx, job)
}

func (t *tracker) finish(ctx context.Context, job *Job, status JobStatus, phase, reason string) {
	job.Finish(status, phase, reason)
	metrics.Jobs.WithLabelValues(string(job.Kind), string(status)).Inc()
	t.record(ctx, job)
}

func (t *tracker) record(ctx context.Context, job *Job) {
	snap := job.Snapshot()
	log := t.log.With("job_id", snap.ID, "doc_id", snap.DocID)

	// Status writes outlive a cancelled job context so the final state lands.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	rec := store.Record{
		ID:           store.StatusRecordID,
		PartitionKey: snap.DocID,
		Kind:         store.KindStatus,
		JobID:        snap.ID,
		JobKind:      string(snap.Kind),
		Status:       string(snap.Status),
		Phase:        snap.Phase,
		Reason:       snap.Reason,
		Filename:     snap.Filename,
		SectionsOK:   snap.Progress.Done,
		SectionsErr:  snap.Progress.Failed,
	}
	if rec.Filename == "" {
		prev, err := t.store.Get(wctx, snap.DocID, store.StatusRecordID)
		if err == nil {
			rec.Filename = prev.Filename
		} else if !errors.Is(err, store.ErrNotFound) {
			log.Warn("read status record failed", "error", err)
		}
	}
	if err := t.store.Upsert(wctx, rec); err != nil {
		log.Warn("write status record failed", "status", snap.Status, "error", err)
	}

	err := t.events.Publish(wctx, events.Event{
		JobID:  snap.ID,
		DocID:  snap.DocID,
		Kind:   string(snap.Kind),
		Status: string(snap.Status),
		Phase:  snap.Phase,
		Reason: snap.Reason,
		At:     snap.UpdatedAt,
	})
	if err != nil {
		log.Warn("publish job event failed", "status", snap.Status, "error", err)
	}
}

// interrupted rewrites a status record whose job died with its process.
func (t *tracker) interrupted(ctx context.Context, rec store.Record) error {
	rec.Status = string(StatusFailed)
	rec.Reason = "interrupted"
	if err := t.store.Upsert(ctx, rec); err != nil {
		return err
	}
	metrics.Jobs.WithLabelValues(rec.JobKind, string(StatusFailed)).Inc()
	err := t.events.Publish(ctx, events.Event{
		JobID:  rec.JobID,
		DocID:  rec.PartitionKey,
		Kind:   rec.JobKind,
		Status: rec.Status,
		Phase:  rec.Phase,
		Reason: rec.Reason,
		At:     time.Now(),
	})
	if err != nil {
		t.log.Warn("publish job event failed", "doc_id", rec.PartitionKey, "error", err)
	}
	return nil
}
