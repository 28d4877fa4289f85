// Package store holds in-flight job state. State lives only for the process
// lifetime; after a restart every previously issued job id reads as not found
// and clients are expected to surface that as an expired session.
package store

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/viddown/api/internal/model"
)

// Store is the job registry shared by the API handlers (reader/writer) and
// the process supervisor (writer). Implementations must be safe for
// concurrent use.
type Store interface {
	Create(id string) (*model.Job, error)
	Get(id string) (*model.Job, bool)
	Update(id string, upd model.JobUpdate) bool
	Delete(id string)
	Live() []*model.Job
}

// MemoryStore is a mutex-guarded map. Contention is not a concern at this
// scale; correctness under concurrent poll/update/delete is.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*model.Job)}
}

// Create inserts a fresh job in the processing state. Duplicate ids are
// rejected; with UUID generation this indicates a caller bug.
func (s *MemoryStore) Create(id string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return nil, fmt.Errorf("job %s already exists", id)
	}

	job := &model.Job{
		ID:        id,
		Status:    model.JobStatusProcessing,
		Progress:  0,
		CreatedAt: time.Now(),
	}
	s.jobs[id] = job
	return copyJob(job), nil
}

// Get returns a snapshot of the job, or false if the id is unknown. An absent
// job is indistinguishable from one that never existed.
func (s *MemoryStore) Get(id string) (*model.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	return copyJob(job), true
}

// Update merges the non-nil fields of upd into the job. A supervisor callback
// can race past a deletion, so an absent id is a warning-logged no-op rather
// than an error.
func (s *MemoryStore) Update(id string, upd model.JobUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		log.Printf("store: update for unknown job %s dropped", id)
		return false
	}

	if upd.Status != nil {
		job.Status = *upd.Status
	}
	if upd.Progress != nil {
		job.Progress = *upd.Progress
	}
	if upd.FilePath != nil {
		job.FilePath = *upd.FilePath
	}
	if upd.FileName != nil {
		job.FileName = *upd.FileName
	}
	if upd.Error != nil {
		job.Error = upd.Error
	}
	return true
}

// Delete removes the job. Called after a successful artifact transfer.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

// Live returns snapshots of every job whose files must survive a janitor
// sweep, i.e. jobs still processing or ready and not yet served.
func (s *MemoryStore) Live() []*model.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	live := make([]*model.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if job.Status == model.JobStatusProcessing || job.Status == model.JobStatusReady {
			live = append(live, copyJob(job))
		}
	}
	return live
}

func copyJob(j *model.Job) *model.Job {
	c := *j
	return &c
}
