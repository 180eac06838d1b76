package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/rfpgest/internal/events"
	"github.com/dgallion1/rfpgest/internal/layout"
	"github.com/dgallion1/rfpgest/internal/requirements"
	"github.com/dgallion1/rfpgest/internal/section"
	"github.com/dgallion1/rfpgest/internal/store"
)

// Deps are the collaborators a worker drives.
type Deps struct {
	Analyzer  layout.Analyzer
	Sectioner *section.Sectioner
	Extractor *requirements.Extractor
	Store     store.Store
	Events    events.Publisher
}

// Worker runs sectioning and extraction jobs.
type Worker struct {
	analyzer  layout.Analyzer
	sectioner *section.Sectioner
	extractor *requirements.Extractor
	store     store.Store
	tracker   *tracker
	log       *slog.Logger

	maxConcurrentExtract int
}

func NewWorker(deps Deps, maxExtract int, log *slog.Logger) *Worker {
	pub := deps.Events
	if pub == nil {
		pub = events.Noop{}
	}
	if maxExtract <= 0 {
		maxExtract = 1
	}
	return &Worker{
		analyzer:             deps.Analyzer,
		sectioner:            deps.Sectioner,
		extractor:            deps.Extractor,
		store:                deps.Store,
		tracker:              &tracker{store: deps.Store, events: pub, log: log},
		log:                  log,
		maxConcurrentExtract: maxExtract,
	}
}

// Process runs a job to a terminal status.
func (w *Worker) Process(ctx context.Context, job *Job) {
	switch job.Kind {
	case KindSectioning:
		w.section(ctx, job)
	case KindExtraction:
		w.extract(ctx, job)
	default:
		w.tracker.finish(ctx, job, StatusFailed, PhaseQueued, fmt.Sprintf("unknown job kind %q", job.Kind))
	}
}

func (w *Worker) section(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "filename", job.Filename)

	// Phase 1: Layout
	w.tracker.update(ctx, job, StatusRunning, PhaseAnalyzing)
	doc, err := w.analyzer.Analyze(ctx, bytes.NewReader(job.FileData()), job.Filename)
	job.SetFileData(nil)
	if err != nil {
		log.Error("layout analysis failed", "error", err)
		job.AddError(fmt.Sprintf("layout: %s", err))
		w.tracker.finish(ctx, job, StatusFailed, PhaseAnalyzing, fmt.Sprintf("layout: %s", err))
		return
	}
	if len(doc.Paragraphs) == 0 {
		log.Warn("no paragraphs produced")
		w.tracker.finish(ctx, job, StatusFailed, PhaseAnalyzing, "no extractable content")
		return
	}
	log.Info("analyzed document", "paragraphs", len(doc.Paragraphs), "pages", len(doc.Pages))

	// Phase 2: TOC, validation, population
	res, err := w.sectioner.Run(ctx, job.DocID, doc, job.TOCOverride(), section.WithPhaseHook(func(p section.Phase) {
		w.tracker.update(ctx, job, StatusRunning, string(p))
	}))
	if err != nil {
		log.Error("sectioning failed", "error", err)
		job.AddError(err.Error())
		w.tracker.finish(ctx, job, StatusFailed, job.Snapshot().Phase, err.Error())
		return
	}
	if res.TOCError != "" {
		job.AddError("toc: " + res.TOCError)
	}
	// Sections plus the toc record.
	job.SetTotal(len(res.Sections) + 1)

	// Phase 3: Store
	w.tracker.update(ctx, job, StatusRunning, PhaseStoring)
	pr, err := store.PersistSections(ctx, w.store, log, job.DocID, res.Sections, res.TOC)
	job.AddDone(pr.Written)
	job.AddFailed(pr.Failed)
	log.Info("storage complete", "written", pr.Written, "failed", pr.Failed)

	switch {
	case err == nil:
		w.tracker.finish(ctx, job, StatusSucceeded, PhaseDone, "")
	case pr.Written > 0:
		job.AddError(err.Error())
		w.tracker.finish(ctx, job, StatusPartial, PhaseDone,
			fmt.Sprintf("%d of %d records failed to persist", pr.Failed, pr.Written+pr.Failed))
	default:
		job.AddError(err.Error())
		w.tracker.finish(ctx, job, StatusFailed, PhaseStoring, "no records persisted")
	}
}

func (w *Worker) extract(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)

	w.tracker.update(ctx, job, StatusRunning, PhaseExtracting)
	recs, err := store.Sections(ctx, w.store, job.DocID)
	if err != nil {
		reason := fmt.Sprintf("load sections: %s", err)
		if errors.Is(err, store.ErrNotFound) {
			reason = "document not found"
		}
		log.Error("extraction aborted", "error", err)
		w.tracker.finish(ctx, job, StatusFailed, PhaseExtracting, reason)
		return
	}

	force := job.Force()
	var todo []store.Record
	for _, rec := range recs {
		if strings.TrimSpace(rec.SectionContent) == "" {
			continue
		}
		if rec.Extracted && !force {
			continue
		}
		todo = append(todo, rec)
	}
	job.SetTotal(len(todo))
	log.Info("extracting requirements", "sections", len(todo), "skipped", len(recs)-len(todo))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.maxConcurrentExtract)
	for _, rec := range todo {
		g.Go(func() error {
			ex, err := w.extractor.Extract(gctx, rec.SectionContent)
			if err == nil {
				err = store.AttachRequirements(gctx, w.store, job.DocID, rec.ID, ex.Analysis, ex.Output)
			}
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn("section extraction failed", "section_id", rec.ID, "error", err)
				job.AddError(fmt.Sprintf("%s: %s", rec.ID, err))
				job.AddFailed(1)
				return nil
			}
			job.AddDone(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		w.tracker.finish(ctx, job, StatusFailed, PhaseExtracting, err.Error())
		return
	}

	snap := job.Snapshot()
	log.Info("extraction complete", "done", snap.Progress.Done, "failed", snap.Progress.Failed)
	switch {
	case snap.Progress.Failed == 0:
		w.tracker.finish(ctx, job, StatusSucceeded, PhaseDone, "")
	case snap.Progress.Done > 0:
		w.tracker.finish(ctx, job, StatusPartial, PhaseDone,
			fmt.Sprintf("%d of %d sections failed", snap.Progress.Failed, snap.Progress.Total))
	default:
		w.tracker.finish(ctx, job, StatusFailed, PhaseExtracting, "every section failed")
	}
}
