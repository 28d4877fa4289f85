package model

// ProcessRequest is the body of POST /api/process.
type ProcessRequest struct {
	URL     string `json:"url" validate:"required,url"`
	Format  string `json:"format"`
	Quality string `json:"quality"`
	Title   string `json:"title"`
}

// ProcessResponse acknowledges job creation. The subprocess keeps running
// after this is returned; clients poll the status endpoint with JobID.
type ProcessResponse struct {
	JobID string `json:"jobId"`
}

// StatusResponse is the body of GET /api/process/:jobId.
type StatusResponse struct {
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`
	Error    *string   `json:"error,omitempty"`
}
