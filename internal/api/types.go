package api

// ExecuteRequest is the API-level request to run a script against the
// dataset namespace.
type ExecuteRequest struct {
	Code string `json:"code"`
}

// ExecuteResponse carries the combined output string for one call.
type ExecuteResponse struct {
	Result    string `json:"result"`
	RequestID string `json:"request_id"`
}

// DocsResponse carries the dataset documentation text.
type DocsResponse struct {
	Docs string `json:"docs"`
}

// ErrorResponse is returned for API errors.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Database bool   `json:"database"`
	Uptime   string `json:"uptime"`
}
