package batchapi

import (
	"time"
)

const serverTimestampLayout = "2006-01-02 15:04:05"

// JobStatus is the lifecycle state reported for a job.
type JobStatus string

const (
	StatusPending  JobStatus = "Pending"
	StatusStarting JobStatus = "Starting"
	StatusRunning  JobStatus = "Running"
	StatusFinished JobStatus = "Finished"
	StatusFailed   JobStatus = "Failed"
)

// Terminal reports whether the job can no longer produce log output.
func (s JobStatus) Terminal() bool {
	return s == StatusFinished || s == StatusFailed
}

// Job mirrors one element of the /jobs list payload.
type Job struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	TaskDefinitionID   int64     `json:"task_definition_id"`
	TaskDefinitionName string    `json:"task_definition_name,omitempty"`
	Status             JobStatus `json:"status"`
	SubmittedAt        *string   `json:"submited_at"`
	StartedAt          *string   `json:"started_at"`
	FinishedAt         *string   `json:"finished_at"`
	ContainerType      string    `json:"container_type"`
	ContainerID        *string   `json:"container_id"`
	ExitCode           *int      `json:"exit_code"`
	ErrorMessage       *string   `json:"error_message"`
	LogExpireAfter     *string   `json:"log_expire_after"`
	LogExpired         bool      `json:"log_expired"`
}

// ParsedSubmittedAt returns the parsed submission time.
func (j Job) ParsedSubmittedAt() time.Time { return parseTime(deref(j.SubmittedAt)) }

// ParsedStartedAt returns the parsed start time.
func (j Job) ParsedStartedAt() time.Time { return parseTime(deref(j.StartedAt)) }

// ParsedFinishedAt returns the parsed finish time.
func (j Job) ParsedFinishedAt() time.Time { return parseTime(deref(j.FinishedAt)) }

// ListJobsResponse mirrors /jobs.
type ListJobsResponse struct {
	Jobs       []Job `json:"jobs"`
	TotalCount int64 `json:"total_count"`
}

// JobLog is a single log line from /jobs/{id}/logs.
type JobLog struct {
	Index   uint64 `json:"index"`
	Time    string `json:"time"`
	Message string `json:"message"`
}

// ParsedTime returns the timestamp as time.Time when possible.
func (l JobLog) ParsedTime() time.Time {
	return parseTime(l.Time)
}

// ListJobLogsResponse mirrors /jobs/{id}/logs.
type ListJobLogsResponse struct {
	Logs []JobLog `json:"logs"`
}

// CountJobLogsResponse mirrors /jobs/{id}/logs/count.
type CountJobLogsResponse struct {
	Count int64 `json:"count"`
}

// ErrorResponse is the body the server sends with a failing status.
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(serverTimestampLayout, value, time.UTC); err == nil {
		return t
	}
	return time.Time{}
}
