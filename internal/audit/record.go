// Package audit wraps each service invocation in a correlation record and
// emits its ordered lifecycle events to a local log synchronously and to
// remote sinks best-effort.
package audit

import "time"

// Status is a request lifecycle stage. Ordering is significant: processing
// precedes executing, and every request ends in exactly one of completed or
// error.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusExecuting  Status = "executing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Record correlates every event emitted for a single call. It is created at
// call entry and immutable thereafter.
type Record struct {
	ID             string
	CallerIdentity string
	Method         string
	CreatedAt      time.Time
}

// Event is one append-only lifecycle entry for a request.
type Event struct {
	RequestID   string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Identity    string    `json:"user_email"`
	Method      string    `json:"method"`
	Status      Status    `json:"status"`
	Message     string    `json:"message"`
	Detail      any       `json:"detail,omitempty"`
	DatasetID   string    `json:"dataset_id"`
	DatasetName string    `json:"dataset_name"`
}

// AnonymousIdentity marks calls that carried no usable caller identity.
const AnonymousIdentity = "Anonymous"

// CallerContext is the caller-identity object injected per call by the
// transport. Fields are read defensively: anything missing or malformed falls
// back to AnonymousIdentity.
type CallerContext struct {
	ID    string            `json:"id"`
	Email string            `json:"email"`
	User  map[string]string `json:"user"`
}

// Identity extracts the caller's email, preferring the nested user object.
func (c *CallerContext) Identity() string {
	if c == nil {
		return AnonymousIdentity
	}
	if email, ok := c.User["email"]; ok && email != "" {
		return email
	}
	if c.Email != "" {
		return c.Email
	}
	return AnonymousIdentity
}
