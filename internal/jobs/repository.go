package jobs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Repository stores jobs as JSON files on disk, one per job id.
type Repository struct {
	dir string
}

func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

func (r *Repository) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

func (r *Repository) Save(job *Job) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("creating jobs directory: %w", err)
	}
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding job %s: %w", job.ID, err)
	}
	if err := os.WriteFile(r.path(job.ID), data, 0o644); err != nil {
		return fmt.Errorf("writing job %s: %w", job.ID, err)
	}
	return nil
}

func (r *Repository) Load(id string) (*Job, error) {
	data, err := os.ReadFile(r.path(id))
	if err != nil {
		return nil, fmt.Errorf("reading job %s: %w", id, err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decoding job %s: %w", id, err)
	}
	return &job, nil
}
