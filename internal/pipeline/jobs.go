package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobKind selects what a job does.
type JobKind string

const (
	KindSectioning JobKind = "sectioning"
	KindExtraction JobKind = "extraction"
)

// JobStatus represents the state of a job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusPartial   JobStatus = "partial"
	StatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether no further transitions follow.
func (s JobStatus) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusPartial || s == StatusFailed
}

const (
	PhaseQueued     = "queued"
	PhaseAnalyzing  = "analyzing"
	PhaseTOC        = "toc"
	PhaseValidating = "validating"
	PhasePopulating = "populating"
	PhaseStoring    = "storing"
	PhaseExtracting = "extracting"
	PhaseDone       = "done"
)

// Job tracks the state of a single sectioning or extraction run.
type Job struct {
	mu sync.Mutex

	ID    string  `json:"job_id"`
	DocID string  `json:"doc_id"`
	Kind  JobKind `json:"kind"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Reason   string    `json:"reason,omitempty"`
	Filename string    `json:"filename,omitempty"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData    []byte
	tocOverride string
	force       bool
	errors      []string
}

// Progress counts sections handled by the job.
type Progress struct {
	Total  int      `json:"total"`
	Done   int      `json:"done"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors"`
}

// NewJob creates a pending job with a fresh ID.
func NewJob(kind JobKind, docID string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		DocID:     docID,
		Kind:      kind,
		Status:    StatusPending,
		Phase:     PhaseQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// PutIfNoActive stores job unless its document already has an unfinished
// job. The check and the insert happen under one lock.
func (s *JobStore) PutIfNoActive(job *Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.jobs {
		if other.DocID == job.DocID && !other.Snapshot().Status.IsTerminal() {
			return false
		}
	}
	s.jobs[job.ID] = job
	return true
}

// Active returns the unfinished jobs for a document.
func (s *JobStore) Active(docID string) []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Job
	for _, job := range s.jobs {
		if job.DocID != docID {
			continue
		}
		if !job.Snapshot().Status.IsTerminal() {
			out = append(out, job)
		}
	}
	return out
}

// Cleanup removes finished jobs older than the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		snap := job.Snapshot()
		if snap.Status.IsTerminal() && now.Sub(snap.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically. Reason is cleared unless set by Fail.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.Reason = ""
	j.UpdatedAt = time.Now()
}

// Finish moves the job to a terminal status with a reason.
func (j *Job) Finish(status JobStatus, phase, reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.Reason = reason
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetTotal records how many sections the job will handle.
func (j *Job) SetTotal(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Total = n
	j.UpdatedAt = time.Now()
}

// AddDone counts handled sections.
func (j *Job) AddDone(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Done += n
	j.UpdatedAt = time.Now()
}

// AddFailed counts sections that could not be handled.
func (j *Job) AddFailed(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Failed += n
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// SetTOCOverride supplies a table of contents that replaces model extraction.
func (j *Job) SetTOCOverride(toc string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.tocOverride = toc
}

func (j *Job) TOCOverride() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.tocOverride
}

// SetForce makes an extraction job redo sections that already have requirements.
func (j *Job) SetForce(force bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.force = force
}

func (j *Job) Force() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.force
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	DocID     string    `json:"doc_id"`
	Kind      JobKind   `json:"kind"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Reason    string    `json:"reason,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.errors))
	copy(errs, j.errors)
	return JobSnapshot{
		ID:       j.ID,
		DocID:    j.DocID,
		Kind:     j.Kind,
		Status:   j.Status,
		Phase:    j.Phase,
		Reason:   j.Reason,
		Filename: j.Filename,
		Progress: Progress{
			Total:  j.Progress.Total,
			Done:   j.Progress.Done,
			Failed: j.Progress.Failed,
			Errors: errs,
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
