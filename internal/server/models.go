package server

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Code      int    `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Template      string `json:"template"`
	TemplateBytes int    `json:"template_bytes"`
	SourcePages   int    `json:"min_source_pages"`
	MaxConcurrent int    `json:"max_concurrent"`
}
