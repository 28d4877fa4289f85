package model

import "time"

// Job represents one in-flight or completed extraction job.
// FilePath is set only once the job reaches StatusReady and is owned by the
// job store until the artifact has been served.
type Job struct {
	ID        string    `json:"id"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	FilePath  string    `json:"-"`
	FileName  string    `json:"fileName,omitempty"`
	Error     *string   `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// JobUpdate carries a partial update to a job. Nil fields are left untouched.
type JobUpdate struct {
	Status   *JobStatus
	Progress *int
	FilePath *string
	FileName *string
	Error    *string
}

// JobStatus is the server-side job state machine. Presentation states such as
// "downloading" or "completed" exist only in clients, layered on top of these.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusReady      JobStatus = "ready"
	JobStatusError      JobStatus = "error"
)

// Terminal reports whether no further server-side transition is possible
// short of the job being served and deleted.
func (s JobStatus) Terminal() bool {
	return s == JobStatusReady || s == JobStatusError
}
