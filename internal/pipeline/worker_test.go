package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/rfpgest/internal/config"
	"github.com/dgallion1/rfpgest/internal/events"
	"github.com/dgallion1/rfpgest/internal/layout"
	"github.com/dgallion1/rfpgest/internal/llm"
	"github.com/dgallion1/rfpgest/internal/requirements"
	"github.com/dgallion1/rfpgest/internal/section"
	"github.com/dgallion1/rfpgest/internal/store"
)

const rfpText = `Request for Proposal
1. Introduction
The agency seeks support services.
2. Scope of Work
The Contractor shall provide monthly reports.
3. Evaluation
Proposals are scored on price.
`

const rfpTOC = "1. Introduction [1, 1]\n2. Scope of Work [1, 1]\n3. Evaluation [1, 1]"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stepLLM answers by pipeline step. Extraction fails for content containing "price".
type stepLLM struct {
	mu    sync.Mutex
	calls map[string]int
}

func (f *stepLLM) Model() string { return "fake" }

func (f *stepLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[req.Step]++
	f.mu.Unlock()

	switch req.Step {
	case "validate":
		return `{"thought_process":"listed","answer":"yes"}`, nil
	case "extract":
		if strings.Contains(req.User, "price") {
			return "", errors.New("model refused")
		}
		return `{"thought_process":"one line","content":"Scope | 1 | 2 | The Contractor shall provide monthly reports. | yes"}`, nil
	}
	return "", nil
}

func (f *stepLLM) count(step string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[step]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) statuses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Status + "/" + ev.Phase
	}
	return out
}

// failingStore rejects section writes whose ID contains reject.
type failingStore struct {
	*store.Memory
	reject string
}

func (s *failingStore) Upsert(ctx context.Context, rec store.Record) error {
	if rec.Kind == store.KindSection && strings.Contains(rec.ID, s.reject) {
		return errors.New("write refused")
	}
	return s.Memory.Upsert(ctx, rec)
}

type brokenAnalyzer struct{}

func (brokenAnalyzer) Analyze(context.Context, io.Reader, string) (*layout.Document, error) {
	return nil, errors.New("corrupt file")
}

func testDeps(client llm.Client, st store.Store, pub events.Publisher) Deps {
	log := testLogger()
	extractor := requirements.NewExtractor(client, log)
	return Deps{
		Analyzer: &layout.TextAnalyzer{},
		Sectioner: section.NewSectioner(
			section.NewTOCExtractor(client, log),
			section.NewPartitioner(section.NewLLMValidator(client, log), log),
			section.NewPopulator(nil, log),
			log,
		),
		Extractor: extractor,
		Store:     st,
		Events:    pub,
	}
}

func sectioningJob(docID string) *Job {
	job := NewJob(KindSectioning, docID)
	job.Filename = "rfp.txt"
	job.SetFileData([]byte(rfpText))
	job.SetTOCOverride(rfpTOC)
	return job
}

func TestWorker_Sectioning(t *testing.T) {
	st := store.NewMemory()
	pub := &recordingPublisher{}
	client := &stepLLM{}
	w := NewWorker(testDeps(client, st, pub), 2, testLogger())

	job := sectioningJob("rfp-1")
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	require.Equal(t, StatusSucceeded, snap.Status, snap.Reason)
	assert.Equal(t, 4, snap.Progress.Total)
	assert.Equal(t, 4, snap.Progress.Done)
	assert.Equal(t, 3, client.count("validate"))
	assert.Nil(t, job.FileData())

	secs, err := store.Sections(context.Background(), st, "rfp-1")
	require.NoError(t, err)
	require.Len(t, secs, 3)
	assert.Equal(t, "1. Introduction", secs[0].SectionID)
	assert.Equal(t, "3. Evaluation", secs[2].SectionID)

	status, err := st.Get(context.Background(), "rfp-1", store.StatusRecordID)
	require.NoError(t, err)
	assert.Equal(t, "succeeded", status.Status)
	assert.Equal(t, "rfp.txt", status.Filename)
	assert.Equal(t, job.ID, status.JobID)

	assert.Equal(t, []string{
		"running/analyzing", "running/toc", "running/validating",
		"running/populating", "running/storing", "succeeded/done",
	}, pub.statuses())
}

func TestWorker_LayoutFailureIsFatal(t *testing.T) {
	st := store.NewMemory()
	deps := testDeps(&stepLLM{}, st, nil)
	deps.Analyzer = brokenAnalyzer{}
	w := NewWorker(deps, 2, testLogger())

	job := sectioningJob("rfp-bad")
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, PhaseAnalyzing, snap.Phase)
	assert.Contains(t, snap.Reason, "corrupt file")

	status, err := st.Get(context.Background(), "rfp-bad", store.StatusRecordID)
	require.NoError(t, err)
	assert.Equal(t, "failed", status.Status)
	assert.Contains(t, status.Reason, "corrupt file")
}

func TestWorker_PartialPersistence(t *testing.T) {
	st := &failingStore{Memory: store.NewMemory(), reject: "Scope"}
	w := NewWorker(testDeps(&stepLLM{}, st, nil), 2, testLogger())

	job := sectioningJob("rfp-2")
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusPartial, snap.Status)
	assert.Equal(t, 1, snap.Progress.Failed)
	assert.Equal(t, 3, snap.Progress.Done)
	assert.NotEmpty(t, snap.Progress.Errors)
}

func TestWorker_AllSectionsRejected(t *testing.T) {
	st := &failingStore{Memory: store.NewMemory(), reject: "rfp-3"}
	w := NewWorker(testDeps(&stepLLM{}, st, nil), 2, testLogger())

	job := sectioningJob("rfp-3")
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusPartial, snap.Status, "toc record still lands")
	assert.Equal(t, 3, snap.Progress.Failed)
}

func TestWorker_Extraction(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	client := &stepLLM{}
	w := NewWorker(testDeps(client, st, nil), 2, testLogger())

	w.Process(ctx, sectioningJob("rfp-4"))

	job := NewJob(KindExtraction, "rfp-4")
	w.Process(ctx, job)

	snap := job.Snapshot()
	assert.Equal(t, StatusPartial, snap.Status, "the evaluation section fails")
	assert.Equal(t, 3, snap.Progress.Total)
	assert.Equal(t, 2, snap.Progress.Done)
	assert.Equal(t, 1, snap.Progress.Failed)

	secs, err := store.Sections(ctx, st, "rfp-4")
	require.NoError(t, err)
	assert.True(t, secs[0].Extracted)
	assert.Len(t, secs[0].Requirements, 1)
	assert.False(t, secs[2].Extracted)

	// A second run only retries the section that failed.
	before := client.count("extract")
	again := NewJob(KindExtraction, "rfp-4")
	w.Process(ctx, again)
	assert.Equal(t, 1, again.Snapshot().Progress.Total)
	assert.Equal(t, StatusFailed, again.Snapshot().Status)
	assert.Equal(t, before+1, client.count("extract"))

	forced := NewJob(KindExtraction, "rfp-4")
	forced.SetForce(true)
	w.Process(ctx, forced)
	assert.Equal(t, 3, forced.Snapshot().Progress.Total)
}

func TestWorker_ExtractionUnknownDocument(t *testing.T) {
	w := NewWorker(testDeps(&stepLLM{}, store.NewMemory(), nil), 2, testLogger())
	job := NewJob(KindExtraction, "missing")
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "document not found", snap.Reason)
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Defaults()
	cfg.MaxQueueSize = 0
	st := store.NewMemory()
	o := NewOrchestrator(cfg, testDeps(&stepLLM{}, st, nil), testLogger())

	job := sectioningJob("rfp-5")
	err := o.Submit(context.Background(), job)
	require.Error(t, err)

	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "queue_full", snap.Reason)
	assert.Same(t, job, o.GetJob(job.ID))
}

func TestOrchestrator_RunsJobs(t *testing.T) {
	cfg := config.Defaults()
	cfg.WorkerCount = 2
	st := store.NewMemory()
	o := NewOrchestrator(cfg, testDeps(&stepLLM{}, st, nil), testLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := sectioningJob("rfp-6")
	require.NoError(t, o.Submit(context.Background(), job))

	require.Eventually(t, func() bool {
		return job.Snapshot().Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, StatusSucceeded, job.Snapshot().Status)
	assert.Empty(t, o.ActiveJobs("rfp-6"))
	assert.Same(t, st, o.Store())
}

func TestOrchestrator_SubmitBusyDocument(t *testing.T) {
	st := store.NewMemory()
	o := NewOrchestrator(config.Defaults(), testDeps(&stepLLM{}, st, nil), testLogger())
	defer o.Stop()

	first := sectioningJob("rfp-busy")
	require.NoError(t, o.Submit(context.Background(), first))

	second := NewJob(KindExtraction, "rfp-busy")
	err := o.Submit(context.Background(), second)
	require.ErrorIs(t, err, ErrDocumentBusy)
	assert.Nil(t, o.GetJob(second.ID))
	assert.Equal(t, StatusPending, second.Snapshot().Status)

	rec, err := st.Get(context.Background(), "rfp-busy", store.StatusRecordID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, rec.JobID)
}

func TestOrchestrator_StopFailsQueuedJobs(t *testing.T) {
	st := store.NewMemory()
	pub := &recordingPublisher{}
	// Never started, so nothing leaves the queue before Stop.
	o := NewOrchestrator(config.Defaults(), testDeps(&stepLLM{}, st, pub), testLogger())

	job := sectioningJob("rfp-stop")
	require.NoError(t, o.Submit(context.Background(), job))
	o.Stop()

	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "shutdown", snap.Reason)

	rec, err := st.Get(context.Background(), "rfp-stop", store.StatusRecordID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusFailed), rec.Status)
	assert.Equal(t, PhaseQueued, rec.Phase)
	assert.Equal(t, "shutdown", rec.Reason)
	assert.Equal(t, []string{"pending/queued", "failed/queued"}, pub.statuses())
	assert.Zero(t, o.QueueDepth())
}

func TestOrchestrator_RecoverInterrupted(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	seed := []store.Record{
		{ID: store.StatusRecordID, PartitionKey: "rfp-running", Kind: store.KindStatus, JobID: "j1", JobKind: "sectioning", Status: "running", Phase: PhaseValidating, Filename: "a.pdf"},
		{ID: store.StatusRecordID, PartitionKey: "rfp-pending", Kind: store.KindStatus, JobID: "j2", JobKind: "extraction", Status: "pending", Phase: PhaseQueued},
		{ID: store.StatusRecordID, PartitionKey: "rfp-done", Kind: store.KindStatus, JobID: "j3", JobKind: "sectioning", Status: "succeeded", Phase: PhaseDone},
		{ID: "rfp-nostatus - 1 Intro", PartitionKey: "rfp-nostatus", Kind: store.KindSection, SectionContent: "x"},
	}
	for _, rec := range seed {
		require.NoError(t, st.Upsert(ctx, rec))
	}
	pub := &recordingPublisher{}
	o := NewOrchestrator(config.Defaults(), testDeps(&stepLLM{}, st, pub), testLogger())

	n, err := o.RecoverInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, docID := range []string{"rfp-running", "rfp-pending"} {
		rec, err := st.Get(ctx, docID, store.StatusRecordID)
		require.NoError(t, err)
		assert.Equal(t, string(StatusFailed), rec.Status, docID)
		assert.Equal(t, "interrupted", rec.Reason, docID)
	}
	running, err := st.Get(ctx, "rfp-running", store.StatusRecordID)
	require.NoError(t, err)
	assert.Equal(t, PhaseValidating, running.Phase)
	assert.Equal(t, "a.pdf", running.Filename)

	done, err := st.Get(ctx, "rfp-done", store.StatusRecordID)
	require.NoError(t, err)
	assert.Equal(t, "succeeded", done.Status)
	assert.Empty(t, done.Reason)
	assert.Len(t, pub.statuses(), 2)
}
