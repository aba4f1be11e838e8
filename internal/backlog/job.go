package backlog

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"media-analysis-go/internal/types"
)

// ErrBacklogFull is returned when every job slot is taken.
var ErrBacklogFull = errors.New("backlog full")

// ExternalStatus is one observation of a remote job, as reported by
// the owning service.
type ExternalStatus struct {
	State          types.JobStatus
	Message        string
	OutputLocation string
}

// NewJob creates the tracking record for a freshly submitted job.
func NewJob(jobID, category, subCategory string) types.AsyncJob {
	return types.AsyncJob{
		JobID:       jobID,
		Category:    category,
		SubCategory: subCategory,
		Status:      types.JobSubmitted,
		StartTime:   time.Now().UnixMilli(),
	}
}

// DeterministicJobID derives a stable external job id from the asset
// uuid and stage name, so re-submission after a transient failure maps
// to the same job rather than queueing a duplicate.
func DeterministicJobID(assetUUID, stage string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(assetUUID+"/"+stage)).String()
}

// Advance folds one external observation into the job record. Pure:
// the input job is not mutated, and re-applying the same observation
// yields the same result. Terminal observations stamp the end time.
func Advance(job types.AsyncJob, ext ExternalStatus) types.AsyncJob {
	next := job
	next.Status = ext.State
	switch ext.State {
	case types.JobSubmitted, types.JobInProgress:
		// still remote; nothing else to record
	case types.JobFailed, types.JobStopRequested, types.JobStopped:
		next.ErrorMessage = ext.Message
		if next.EndTime == 0 {
			next.EndTime = time.Now().UnixMilli()
		}
	default:
		next.Status = types.JobCompleted
		next.OutputLocation = ext.OutputLocation
		if next.EndTime == 0 {
			next.EndTime = time.Now().UnixMilli()
		}
	}
	return next
}

// Translate maps a job's lifecycle status into the pipeline's own
// stage vocabulary.
func Translate(s types.JobStatus) types.StageStatus {
	switch s {
	case types.JobSubmitted, types.JobInProgress:
		return types.StatusProgressing
	case types.JobFailed, types.JobStopRequested, types.JobStopped:
		return types.StatusFailed
	default:
		return types.StatusCompleted
	}
}

// Slots bounds how many external jobs may be in flight at once. A slot
// is acquired on submit and released when the job reaches a terminal
// status, including best-effort cleanup on cancellation.
type Slots struct {
	mu       sync.Mutex
	capacity int
	inUse    int
}

// NewSlots creates a slot pool of the given capacity.
func NewSlots(capacity int) *Slots {
	if capacity <= 0 {
		capacity = 1
	}
	return &Slots{capacity: capacity}
}

// Acquire claims one slot, or reports ErrBacklogFull without blocking.
func (s *Slots) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inUse >= s.capacity {
		return ErrBacklogFull
	}
	s.inUse++
	return nil
}

// Release frees one slot. Releasing an empty pool is a no-op.
func (s *Slots) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inUse > 0 {
		s.inUse--
	}
}

// InUse reports the number of claimed slots.
func (s *Slots) InUse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inUse
}
