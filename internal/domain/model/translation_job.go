package model

import (
	"crypto/rand"
	"fmt"
	"math"
	"strings"
	"time"

	"translation-queue/internal/domain"

	"github.com/oklog/ulid/v2"
)

type JobKind string

const (
	JobKindText     JobKind = "text"
	JobKindDocument JobKind = "document"
)

func (k JobKind) Valid() bool { return k == JobKindText || k == JobKindDocument }

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// IsTerminal reports whether no further automatic progress is made from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

type ChunkStatus string

const (
	ChunkStatusPending ChunkStatus = "pending"
	ChunkStatusSuccess ChunkStatus = "success"
	ChunkStatusFailed  ChunkStatus = "failed"
)

// OutputSeparator joins translated chunks into the final output.
const OutputSeparator = " "

// FileInfo describes the document a Document job was extracted from.
type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// Chunk is a translatable slice of a job's payload. Text and Index never
// change after the chunk list is built.
type Chunk struct {
	Index          int
	Text           string
	Status         ChunkStatus
	Attempts       int
	TranslatedText string
	LastError      string
	SplitMidWord   bool // the slice boundary falls inside a single oversized word
}

// ChunkCounts are the persisted counters of a job read back from storage.
// The chunk list itself is not stored.
type ChunkCounts struct {
	Total     int
	Completed int
	Failed    int
	Progress  int
}

// Job is one end-to-end translation request.
type Job struct {
	ID             string
	Kind           JobKind
	Status         JobStatus
	SourceLanguage string
	TargetLanguage string
	Payload        string
	File           *FileInfo
	Chunks         []Chunk
	RetryCount     int

	OwnerID         string // empty for anonymous jobs
	CreditsDebited  int
	CreditsRefunded int

	Error       string
	Output      string
	CancelAsked bool

	Stored *ChunkCounts // set on jobs loaded from storage

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// NewJobID returns a lexically sortable job identifier.
func NewJobID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// NewJob validates the request and returns a Pending job with a fresh id.
func NewJob(kind JobKind, source, target, payload, ownerID string, credits int, file *FileInfo) (*Job, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("job kind %q: %w", kind, domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(payload) == "" {
		return nil, domain.ErrEmptyPayload
	}
	source = strings.TrimSpace(source)
	target = strings.TrimSpace(target)
	if source == "" || target == "" {
		return nil, fmt.Errorf("source and target language required: %w", domain.ErrInvalidArgument)
	}
	if credits < 0 {
		return nil, fmt.Errorf("negative credits: %w", domain.ErrInvalidArgument)
	}
	now := time.Now()
	return &Job{
		ID:             NewJobID(),
		Kind:           kind,
		Status:         JobStatusPending,
		SourceLanguage: source,
		TargetLanguage: target,
		Payload:        payload,
		File:           file,
		OwnerID:        strings.TrimSpace(ownerID),
		CreditsDebited: credits,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// SetChunks builds the chunk list once. A second call is rejected so the
// list never changes length or order.
func (j *Job) SetChunks(texts []string, midWord []bool) error {
	if j.Chunks != nil {
		return fmt.Errorf("job %s already chunked: %w", j.ID, domain.ErrInvalidTransition)
	}
	if len(texts) == 0 {
		return domain.ErrEmptyPayload
	}
	chunks := make([]Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = Chunk{Index: i, Text: t, Status: ChunkStatusPending}
		if i < len(midWord) {
			chunks[i].SplitMidWord = midWord[i]
		}
	}
	j.Chunks = chunks
	return nil
}

// Start moves a Pending job to Processing. StartedAt keeps the first start.
func (j *Job) Start(now time.Time) error {
	if j.Status != JobStatusPending {
		return fmt.Errorf("start from %s: %w", j.Status, domain.ErrInvalidTransition)
	}
	j.Status = JobStatusProcessing
	if j.StartedAt == nil {
		t := now
		j.StartedAt = &t
	}
	j.UpdatedAt = now
	return nil
}

// Requeue returns a Processing job to Pending for another whole-job attempt.
// Chunks that already succeeded keep their translation; failed ones go back
// to Pending.
func (j *Job) Requeue(now time.Time) error {
	if j.Status != JobStatusProcessing {
		return fmt.Errorf("requeue from %s: %w", j.Status, domain.ErrInvalidTransition)
	}
	j.Status = JobStatusPending
	j.RetryCount++
	for i := range j.Chunks {
		if j.Chunks[i].Status == ChunkStatusFailed {
			j.Chunks[i].Status = ChunkStatusPending
		}
	}
	j.UpdatedAt = now
	return nil
}

// Complete finalizes the job. It refuses unless every chunk succeeded.
func (j *Job) Complete(now time.Time) error {
	if j.Status != JobStatusProcessing {
		return fmt.Errorf("complete from %s: %w", j.Status, domain.ErrInvalidTransition)
	}
	out, ok := j.JoinOutput()
	if !ok {
		return fmt.Errorf("job %s has unfinished chunks: %w", j.ID, domain.ErrInvalidTransition)
	}
	j.Status = JobStatusCompleted
	j.Output = out
	j.Error = ""
	j.setCompleted(now)
	return nil
}

// Fail marks the job terminally failed with msg.
func (j *Job) Fail(now time.Time, msg string) error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("fail from %s: %w", j.Status, domain.ErrInvalidTransition)
	}
	j.Status = JobStatusFailed
	j.Error = msg
	j.Output = ""
	j.setCompleted(now)
	return nil
}

// Cancel marks a non-terminal job cancelled.
func (j *Job) Cancel(now time.Time) error {
	if j.Status.IsTerminal() {
		return domain.ErrJobNotCancellable
	}
	j.Status = JobStatusCancelled
	j.Error = "cancelled by request"
	j.Output = ""
	j.setCompleted(now)
	return nil
}

func (j *Job) setCompleted(now time.Time) {
	if j.CompletedAt == nil {
		t := now
		j.CompletedAt = &t
	}
	j.UpdatedAt = now
}

// JoinOutput concatenates chunk translations in index order. ok is false
// when any chunk has not succeeded.
func (j *Job) JoinOutput() (string, bool) {
	if len(j.Chunks) == 0 {
		return "", false
	}
	parts := make([]string, len(j.Chunks))
	for _, c := range j.Chunks {
		if c.Status != ChunkStatusSuccess {
			return "", false
		}
		parts[c.Index] = c.TranslatedText
	}
	return strings.Join(parts, OutputSeparator), true
}

func (j *Job) TotalChunks() int {
	if j.Chunks == nil && j.Stored != nil {
		return j.Stored.Total
	}
	return len(j.Chunks)
}

func (j *Job) CompletedChunks() int {
	if j.Chunks == nil && j.Stored != nil {
		return j.Stored.Completed
	}
	n := 0
	for _, c := range j.Chunks {
		if c.Status == ChunkStatusSuccess {
			n++
		}
	}
	return n
}

func (j *Job) FailedChunks() int {
	if j.Chunks == nil && j.Stored != nil {
		return j.Stored.Failed
	}
	n := 0
	for _, c := range j.Chunks {
		if c.Status == ChunkStatusFailed {
			n++
		}
	}
	return n
}

// Progress is the rounded share of successful chunks, 100 once completed.
// Jobs loaded from storage report the persisted value.
func (j *Job) Progress() int {
	if j.Status == JobStatusCompleted {
		return 100
	}
	if len(j.Chunks) == 0 {
		if j.Stored != nil {
			return j.Stored.Progress
		}
		return 0
	}
	return int(math.Round(float64(j.CompletedChunks()) / float64(len(j.Chunks)) * 100))
}

// RefundDue reports whether the job ended without output while holding
// debited credits that have not been returned yet.
func (j *Job) RefundDue() bool {
	if j.Status != JobStatusFailed && j.Status != JobStatusCancelled {
		return false
	}
	return j.OwnerID != "" && j.CreditsDebited > 0 && j.CreditsRefunded == 0
}

// Clone returns a deep copy safe to hand to readers.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	if j.File != nil {
		f := *j.File
		cp.File = &f
	}
	if j.Chunks != nil {
		cp.Chunks = make([]Chunk, len(j.Chunks))
		copy(cp.Chunks, j.Chunks)
	}
	if j.Stored != nil {
		c := *j.Stored
		cp.Stored = &c
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		cp.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
