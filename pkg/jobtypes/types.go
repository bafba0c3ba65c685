package jobtypes

import "time"

// Status is the job lifecycle state. Transitions are strictly monotonic:
// callers must never persist a status that is lower than the one already
// stored for a job.
type Status int

const (
	StatusPending Status = iota
	StatusQueued
	StatusRunning
	StatusCompleted
	StatusError
	StatusCancelled
)

// String renders the status the way it is logged and reported over RPC.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusQueued:
		return "QUEUED"
	case StatusRunning:
		return "RUNNING"
	case StatusCompleted:
		return "COMPLETED"
	case StatusError:
		return "ERROR"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether a job in this status will never transition again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusCancelled
}

// JobRecord is a row of the persistent registry, and the shape returned by
// get_jobs over RPC.
type JobRecord struct {
	ID         int64
	Identifier string
	BatchID    string
	Status     Status
	StartTime  time.Time
}

// JobFile is one entry of get_job_file_list: a file found by walking a job's
// working directory.
type JobFile struct {
	Name  string
	Size  int64
	MTime time.Time
}
