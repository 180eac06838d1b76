package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/rfpgest/internal/config"
	"github.com/dgallion1/rfpgest/internal/metrics"
	"github.com/dgallion1/rfpgest/internal/store"
)

// ErrDocumentBusy is returned by Submit when the document already has an
// unfinished job.
var ErrDocumentBusy = errors.New("document is already being processed")

// Orchestrator queues jobs and runs them on a fixed worker pool.
type Orchestrator struct {
	jobs   *JobStore
	queue  chan *Job
	worker *Worker
	store  store.Store
	log    *slog.Logger
	cfg    config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOrchestrator(cfg config.Config, deps Deps, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:   NewJobStore(cfg.JobTTL),
		queue:  make(chan *Job, cfg.MaxQueueSize),
		worker: NewWorker(deps, cfg.MaxConcurrentExtract, log),
		store:  deps.Store,
		log:    log,
		cfg:    cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					metrics.QueueDepth.Set(float64(len(o.queue)))
					o.worker.Process(workerCtx, job)
				}
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline. Jobs still waiting in the queue
// are finished as failed so their status does not stay queued.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()

	ctx := context.Background()
	for job := range o.queue {
		o.log.Warn("dropping queued job on shutdown", "job_id", job.ID, "doc_id", job.DocID)
		o.worker.tracker.finish(ctx, job, StatusFailed, PhaseQueued, "shutdown")
	}
	metrics.QueueDepth.Set(0)
}

// Submit records the job as pending and queues it. A document with an
// unfinished job returns ErrDocumentBusy. A full queue fails the job
// immediately.
func (o *Orchestrator) Submit(ctx context.Context, job *Job) error {
	if !o.jobs.PutIfNoActive(job) {
		return ErrDocumentBusy
	}
	o.worker.tracker.update(ctx, job, StatusPending, PhaseQueued)
	select {
	case o.queue <- job:
		metrics.QueueDepth.Set(float64(len(o.queue)))
		return nil
	default:
		o.worker.tracker.finish(ctx, job, StatusFailed, PhaseQueued, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// RecoverInterrupted marks status records left pending or running by a
// previous process as failed. It returns how many were rewritten.
func (o *Orchestrator) RecoverInterrupted(ctx context.Context) (int, error) {
	ids, err := o.store.Documents(ctx)
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}
	n := 0
	for _, docID := range ids {
		rec, err := o.store.Get(ctx, docID, store.StatusRecordID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return n, fmt.Errorf("read status %s: %w", docID, err)
		}
		if JobStatus(rec.Status).IsTerminal() {
			continue
		}
		o.log.Warn("marking interrupted job failed", "doc_id", docID, "job_id", rec.JobID, "status", rec.Status, "phase", rec.Phase)
		if err := o.worker.tracker.interrupted(ctx, rec); err != nil {
			return n, fmt.Errorf("write status %s: %w", docID, err)
		}
		n++
	}
	return n, nil
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// ActiveJobs returns unfinished jobs for a document.
func (o *Orchestrator) ActiveJobs(docID string) []*Job {
	return o.jobs.Active(docID)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Store returns the record store for direct use by API handlers.
func (o *Orchestrator) Store() store.Store {
	return o.store
}
