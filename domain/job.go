package domain

import "time"

// QueryJobState is the local lifecycle state of a submitted query.
type QueryJobState string

// Query job lifecycle states. Submitted and Polling are transient;
// the rest are terminal.
const (
	JobSubmitted QueryJobState = "SUBMITTED"
	JobPolling   QueryJobState = "POLLING"
	JobReady     QueryJobState = "READY"
	JobError     QueryJobState = "ERROR"
	JobTimedOut  QueryJobState = "TIMED_OUT"
	JobCancelled QueryJobState = "CANCELLED"
)

// Terminal reports whether the state ends the polling loop.
func (s QueryJobState) Terminal() bool {
	switch s {
	case JobReady, JobError, JobTimedOut, JobCancelled:
		return true
	}
	return false
}

// QueryJob tracks one asynchronous query execution. It is owned by the
// executor that created it and mutated only from its polling loop.
type QueryJob struct {
	QueryUUID    string
	State        QueryJobState
	ErrorMessage string
	Elapsed      time.Duration
}
