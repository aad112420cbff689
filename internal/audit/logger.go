package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Sink receives lifecycle events published under a topic. Implementations are
// best-effort: delivery failures are logged locally and never surfaced to the
// request path.
type Sink interface {
	LogEvent(ctx context.Context, topic string, ev Event) error
}

// Logger opens request records and emits their lifecycle events. The local
// write is synchronous and always available; remote delivery goes through a
// detached forwarder and never blocks or fails the caller.
type Logger struct {
	topic       string
	datasetID   string
	datasetName string
	forwarder   *Forwarder
}

// NewLogger creates a Logger. The service alias parametrizes the remote topic
// (dataset_request_<alias>). A nil forwarder keeps events local-only.
func NewLogger(alias, datasetID, datasetName string, fwd *Forwarder) *Logger {
	return &Logger{
		topic:       "dataset_request_" + alias,
		datasetID:   datasetID,
		datasetName: datasetName,
		forwarder:   fwd,
	}
}

// Open creates the request record for one call, deriving the caller identity
// from the supplied context and generating a fresh unique id.
func (l *Logger) Open(method string, caller *CallerContext) *Request {
	return &Request{
		Record: Record{
			ID:             uuid.New().String(),
			CallerIdentity: caller.Identity(),
			Method:         method,
			CreatedAt:      time.Now().UTC(),
		},
		logger: l,
	}
}

// Request emits ordered lifecycle events for a single opened record.
type Request struct {
	Record
	logger *Logger
}

// Emit writes one lifecycle event to the local log and enqueues it for remote
// delivery. Emit never fails.
func (r *Request) Emit(status Status, message string, detail any) {
	ev := Event{
		RequestID:   r.ID,
		Timestamp:   time.Now().UTC(),
		Identity:    r.CallerIdentity,
		Method:      r.Method,
		Status:      status,
		Message:     message,
		Detail:      detail,
		DatasetID:   r.logger.datasetID,
		DatasetName: r.logger.datasetName,
	}

	r.localEvent(status).
		Str("request_id", ev.RequestID).
		Str("method", ev.Method).
		Str("user", ev.Identity).
		Str("status", string(ev.Status)).
		Str("dataset_id", ev.DatasetID).
		Msg(message)

	if r.logger.forwarder != nil {
		r.logger.forwarder.Enqueue(r.logger.topic, ev)
	}
}

func (r *Request) localEvent(status Status) *zerolog.Event {
	if status == StatusError {
		return log.Warn()
	}
	return log.Info()
}

// Processing marks the request as received; detail typically carries the
// submitted source.
func (r *Request) Processing(detail any) {
	r.Emit(StatusProcessing, "Request received", detail)
}

// Executing marks the start of sandboxed execution.
func (r *Request) Executing() {
	r.Emit(StatusExecuting, "Executing code...", nil)
}

// Completed emits the successful terminal status.
func (r *Request) Completed(detail any) {
	r.Emit(StatusCompleted, "Request completed successfully", detail)
}

// Error emits the failing terminal status.
func (r *Request) Error(message string, detail any) {
	r.Emit(StatusError, message, detail)
}
