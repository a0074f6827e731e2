package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

var allStatuses = []Status{StatusQueued, StatusRunning, StatusDone, StatusError}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Kind is the logical job type. The set is open; these are the kinds the
// daemon dispatches today.
type Kind string

const (
	KindDetect     Kind = "detect"
	KindRender     Kind = "render"
	KindTranscribe Kind = "transcribe"
)

// Job is one unit of asynchronous work persisted in SQLite.
//
// Attempts increments exactly once per transition into running. Result and
// ErrorMessage are empty until the job reaches a terminal status.
type Job struct {
	ID             int64
	Kind           Kind
	Status         Status
	Attempts       int
	Payload        string
	Result         string
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LeaseExpiresAt *time.Time
}

// Terminal reports whether the job has reached done or error.
func (j Job) Terminal() bool {
	return j.Status == StatusDone || j.Status == StatusError
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total   int
	Queued  int
	Running int
	Done    int
	Errored int
}
