package models

import "time"

// ErrorCategory classifies why a delivery attempt failed. The numeric values
// are part of the persisted contract and must not be reordered.
type ErrorCategory int64

const (
	// CategoryMessaging covers failures reported by the relay, including
	// rejected credentials.
	CategoryMessaging ErrorCategory = iota
	// CategoryRuntime covers unexpected failures raised while dispatching.
	CategoryRuntime
	// CategoryUnknown is the safety net for anything not classified above.
	CategoryUnknown
)

// String returns the category name used in logs.
func (c ErrorCategory) String() string {
	switch c {
	case CategoryMessaging:
		return "messaging"
	case CategoryRuntime:
		return "runtime"
	case CategoryUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// SentEmail is the durable record of one recipient's delivery attempt.
// ErrorID references the SendEmailError explaining the failure and is set
// exactly when SentSuccessfully is false.
type SentEmail struct {
	ID                int64     `json:"id"`
	TemplateID        int64     `json:"template_id"`
	SenderEmail       string    `json:"sender_email"`
	RecipientEmail    string    `json:"recipient_email"`
	Subject           string    `json:"subject"`
	Message           string    `json:"message"`
	SentSuccessfully  bool      `json:"sent_successfully"`
	ConfirmationToken string    `json:"-"`
	Confirmation      int64     `json:"confirmation"`
	ErrorID           *int64    `json:"-"`
	ErrorMessage      string    `json:"error_message,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// SendEmailError is the durable, categorized record of a delivery failure.
// Each record is referenced by exactly one SentEmail.
type SendEmailError struct {
	ID             int64         `json:"id"`
	Subject        string        `json:"subject"`
	Message        string        `json:"message"`
	SenderEmail    string        `json:"sender_email"`
	RecipientEmail string        `json:"recipient_email"`
	Error          string        `json:"error"`
	Category       ErrorCategory `json:"category"`
	Timestamp      time.Time     `json:"timestamp"`
}

// SentEmailFilter narrows a sent-email history query. Nil fields are ignored;
// set fields are AND-combined.
type SentEmailFilter struct {
	Subject          *string
	SenderEmail      *string
	RecipientEmail   *string
	SentSuccessfully *bool
	Confirmation     *int64
	StartDate        *time.Time
	EndDate          *time.Time
}
