package storage

import "time"

// EventRow is a persisted audit lifecycle event.
type EventRow struct {
	RequestID   string    `json:"request_id" db:"request_id"`
	Topic       string    `json:"topic" db:"topic"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`
	Identity    string    `json:"user_email" db:"user_email"`
	Method      string    `json:"method" db:"method"`
	Status      string    `json:"status" db:"status"`
	Message     string    `json:"message" db:"message"`
	Detail      string    `json:"detail,omitempty" db:"detail"`
	DatasetID   string    `json:"dataset_id" db:"dataset_id"`
	DatasetName string    `json:"dataset_name" db:"dataset_name"`
}

// EventFilter provides criteria for querying persisted events.
type EventFilter struct {
	Method string
	Status string
	Since  *time.Time
	Until  *time.Time
	Limit  int
	Offset int
}
