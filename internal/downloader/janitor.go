package downloader

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/viddown/api/internal/store"
)

// Janitor reconciles the shared output directory against the job store,
// deleting every file not claimed by a live job. The job-id filename prefix
// is the only mutual-exclusion discipline in the directory: a subprocess may
// be mid-write under its id-prefixed name while a sweep runs, so the prefix
// match is a correctness requirement, not an optimization. Callers must
// register a job in the store before spawning its subprocess.
type Janitor struct {
	dir   string
	store store.Store
}

func NewJanitor(dir string, s store.Store) *Janitor {
	return &Janitor{dir: dir, store: s}
}

// Sweep deletes stale files. Invoked at startup, before each new process
// request, after each successful serve, and on the cleanup schedule.
func (j *Janitor) Sweep() error {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		return err
	}

	var liveIDs []string
	for _, job := range j.store.Live() {
		liveIDs = append(liveIDs, job.ID)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if claimedBy(name, liveIDs) {
			continue
		}
		path := filepath.Join(j.dir, name)
		if err := os.Remove(path); err != nil {
			log.Printf("janitor: failed to remove %s: %v", path, err)
			continue
		}
		log.Printf("janitor: removed stale file %s", name)
	}
	return nil
}

func claimedBy(name string, liveIDs []string) bool {
	for _, id := range liveIDs {
		if strings.HasPrefix(name, id) {
			return true
		}
	}
	return false
}
