package model

// HistoryRecord is the externally-owned summary of a job kept for display.
// The core treats it as an opaque upsert/query/delete collaborator and does
// not define its consistency model; JobID links it back to an in-process job
// so a reloaded client can resume polling.
type HistoryRecord struct {
	ID        string `json:"id" validate:"required"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Platform  string `json:"platform"`
	Format    string `json:"format"`
	Quality   string `json:"quality"`
	Thumbnail string `json:"thumbnail"`
	Channel   string `json:"channel"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	Size      string `json:"size"`
	Date      string `json:"date"`
	JobID     string `json:"jobId,omitempty"`
}
