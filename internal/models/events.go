package models

import "time"

// Failure types for DLQ records.
const (
	FailureTypeValidation = "validation"
	FailureTypeAuth       = "authentication"
	FailureTypeRuntime    = "runtime"
	FailureTypeUnknown    = "unknown"
)

// BulkSendJob is the payload consumed from the bulk-send request topic. One
// job maps to one orchestrated send call.
type BulkSendJob struct {
	JobID     string           `json:"job_id"`
	CreatedAt time.Time        `json:"created_at"`
	Request   SendEmailRequest `json:"request"`
}

// SendReport summarizes the outcome of one bulk-send job. Succeeded may be
// lower than the recipient count when some deliveries failed or a call-level
// failure truncated the loop; Error is set when the job terminated early.
type SendReport struct {
	JobID      string    `json:"job_id"`
	Recipients int       `json:"recipients"`
	Succeeded  int       `json:"succeeded"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// DLQRecord captures a job that could not be processed, together with enough
// context to replay or inspect it.
type DLQRecord struct {
	JobID       string    `json:"job_id"`
	FailureType string    `json:"failure_type"`
	LastError   string    `json:"last_error,omitempty"`
	RawPayload  []byte    `json:"raw_payload,omitempty"`
	FailedAt    time.Time `json:"failed_at"`
}
