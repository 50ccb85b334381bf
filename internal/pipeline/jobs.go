package pipeline

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"sync"
	"time"
)

// JobStatus represents the state of a build job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusParsing   JobStatus = "parsing"
	StatusBuilding  JobStatus = "building"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusPartial   JobStatus = "partial"
)

// Definition modes.
const (
	ModeTable = "table" // tabular definition, one spec per variant column
	ModeEdits = "edits" // declaration file, one spec
)

// Job tracks one definition file being built into kneeboards.
type Job struct {
	mu sync.Mutex

	ID       string `json:"job_id"`
	Filename string `json:"filename"`
	Mode     string `json:"mode"`

	// Template overrides kbb_template; required in edits mode.
	Template string `json:"template,omitempty"`
	// Tinted keeps the overlay in edits mode.
	Tinted bool `json:"tinted,omitempty"`

	Options BuildOptions `json:"-"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Progress Progress  `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	results  []VariantResult
	errors   []string
}

// Progress tracks build progress.
type Progress struct {
	Groups   int      `json:"groups"`
	Variants int      `json:"variants"`
	Built    int      `json:"built"`
	Failed   int      `json:"failed"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// VariantResult is the outcome of one variant.
type VariantResult struct {
	Group      int      `json:"group"`
	Variant    string   `json:"variant"`
	Template   string   `json:"template,omitempty"`
	Status     string   `json:"status"`
	Outputs    []string `json:"outputs,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMs int64    `json:"duration_ms"`
}

// NewJob creates a queued job for a definition file.
func NewJob(filename string, data []byte, mode string, opts BuildOptions) *Job {
	now := time.Now()
	if mode == "" {
		mode = ModeTable
	}
	return &Job{
		ID:        newJobID(),
		Filename:  filename,
		Mode:      mode,
		Options:   opts,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		fileData:  data,
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

// Cleanup removes expired jobs and returns them so their outputs can be
// deleted.
func (s *JobStore) Cleanup() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var expired []*Job
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
			expired = append(expired, job)
		}
	}
	return expired
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
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

// SetTotals records the group and variant counts.
func (j *Job) SetTotals(groups, variants int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Groups = groups
	j.Progress.Variants = variants
	j.UpdatedAt = time.Now()
}

// AddResult records a finished variant and updates the counters.
func (j *Job) AddResult(r VariantResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = append(j.results, r)
	switch r.Status {
	case resultBuilt:
		j.Progress.Built++
	case resultFailed:
		j.Progress.Failed++
	default:
		j.Progress.Skipped++
	}
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw definition bytes.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw definition bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string          `json:"job_id"`
	Filename    string          `json:"filename"`
	Mode        string          `json:"mode"`
	Status      JobStatus       `json:"status"`
	Phase       string          `json:"phase"`
	Progress    Progress        `json:"progress"`
	Results     []VariantResult `json:"results"`
	ContentHash string          `json:"content_hash,omitempty"`
}

// Snapshot returns a JSON-safe copy of the job state. Results are ordered by
// group, then by completion.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	results := slices.Clone(j.results)
	slices.SortStableFunc(results, func(a, b VariantResult) int { return a.Group - b.Group })
	if results == nil {
		results = []VariantResult{}
	}
	progress := j.Progress
	progress.Errors = slices.Clone(errs)
	return JobSnapshot{
		ID:          j.ID,
		Filename:    j.Filename,
		Mode:        j.Mode,
		Status:      j.Status,
		Phase:       j.Phase,
		Progress:    progress,
		Results:     results,
		ContentHash: j.ContentHash,
	}
}

// Outputs returns every file produced by the job.
func (j *Job) Outputs() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []string
	for _, r := range j.results {
		out = append(out, r.Outputs...)
	}
	return out
}

func (j *Job) setContentHash(h string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = h
}

func (j *Job) contentHash() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.ContentHash
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
