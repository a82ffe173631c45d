// Package batchapi provides an HTTP client for the batch job server API.
//
// # Overview
//
// The client is read-only. jobtail needs three calls:
//
//   - GET {base}/jobs?page_number=1&page_size=1&job_id=N: job header
//   - GET {base}/jobs/N/logs/count: number of log lines held for the job
//   - GET {base}/jobs/N/logs?offset=O&limit=L: a page of log lines
//
// Log lines carry a server-assigned index that is contiguous from zero and
// never reused, so callers can page backward by offset and forward by count.
//
// # Errors
//
// A 404 status, or a job lookup that comes back empty, wraps ErrNotFound.
// Other failure statuses return *APIError with the server's error_code and
// message when the body carries them. Transport and decode failures are
// wrapped with context and returned as is.
//
// # Usage
//
//	client, err := batchapi.NewClient("http://127.0.0.1:8080/api", 5*time.Second)
//	if err != nil {
//		return err
//	}
//	total, err := client.CountJobLogs(ctx, jobID)
//	logs, err := client.ListJobLogs(ctx, jobID, max(0, total-100), 100)
package batchapi
