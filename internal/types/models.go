package types

import "strings"

// Cue is one time-coded transcript fragment. Cues are immutable once
// parsed and ordered by StartMs ascending.
type Cue struct {
	ID      int      `json:"id"`
	StartMs int64    `json:"startMs"`
	EndMs   int64    `json:"endMs"`
	Lines   []string `json:"text"`
}

// Text joins the cue's lines into one space-separated string.
func (c Cue) Text() string {
	return strings.Join(c.Lines, " ")
}

// AnnotationRecord is the time-anchored output of any detection task.
// Confidence is a percentage in [0,100].
type AnnotationRecord struct {
	Category    string  `json:"category"`
	SubCategory string  `json:"subCategory"`
	Text        string  `json:"text"`
	Confidence  float64 `json:"confidence"`
	BeginMs     int64   `json:"begin"`
	EndMs       int64   `json:"end"`
}

// StageStatus is the status vocabulary surfaced to callers.
type StageStatus string

const (
	StatusNotStarted  StageStatus = "NOT_STARTED"
	StatusStarted     StageStatus = "STARTED"
	StatusProgressing StageStatus = "PROGRESSING"
	StatusNoData      StageStatus = "NO_DATA"
	StatusCompleted   StageStatus = "COMPLETED"
	StatusFailed      StageStatus = "FAILED"
)

// JobStatus is the lifecycle vocabulary of an external asynchronous job.
type JobStatus string

const (
	JobSubmitted     JobStatus = "SUBMITTED"
	JobInProgress    JobStatus = "IN_PROGRESS"
	JobFailed        JobStatus = "FAILED"
	JobStopRequested JobStatus = "STOP_REQUESTED"
	JobStopped       JobStatus = "STOPPED"
	JobCompleted     JobStatus = "COMPLETED"
)

// Terminal reports whether the status closes the job.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobStopRequested, JobStopped:
		return true
	default:
		return false
	}
}

// AsyncJob tracks one external long-running job. It is a resumable
// state object: each status check produces a new snapshot via
// backlog.Advance, never an in-process wait.
type AsyncJob struct {
	JobID          string    `json:"jobId"`
	Category       string    `json:"category"`
	SubCategory    string    `json:"subCategory"`
	Status         JobStatus `json:"status"`
	StartTime      int64     `json:"startTime"`
	EndTime        int64     `json:"endTime,omitempty"`
	ErrorMessage   string    `json:"errorMessage,omitempty"`
	OutputLocation string    `json:"outputLocation,omitempty"`
}

// PipelineState is the per-asset orchestration record. Data carries the
// partial payloads of the speech-to-text and NLP branches keyed by
// branch name; the join stage folds them into one map.
type PipelineState struct {
	UUID     string         `json:"uuid"`
	Stage    string         `json:"stage"`
	Status   StageStatus    `json:"status"`
	Progress int            `json:"progress"`
	Data     map[string]any `json:"data,omitempty"`
}

// SetData stores one branch payload, allocating the map on first use.
func (s *PipelineState) SetData(key string, value any) {
	if s.Data == nil {
		s.Data = map[string]any{}
	}
	s.Data[key] = value
}
