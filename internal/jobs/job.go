package jobs

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusNew     = "new"
	StatusRunning = "running"
	StatusFailed  = "failed"
	StatusDone    = "done"
)

// Configuration is the user-supplied part of an import job. Accounts maps
// remote aggregator account ids to local ledger account ids; remote accounts
// without an entry are skipped during conversion.
type Configuration struct {
	Accounts map[string]int64 `json:"accounts"`
}

// JobError is one recorded failure, indexed so the UI can attribute it.
type JobError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// Job is the bookkeeping object for one sync run: configuration in, errors
// out. The pipeline itself treats it as opaque.
type Job struct {
	ID              string        `json:"id"`
	InstallIdentity string        `json:"install_identity"`
	Status          string        `json:"status"`
	Configuration   Configuration `json:"configuration"`
	Errors          []JobError    `json:"errors"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func New(installIdentity string, cfg Configuration) *Job {
	now := time.Now()
	return &Job{
		ID:              uuid.NewString(),
		InstallIdentity: installIdentity,
		Status:          StatusNew,
		Configuration:   cfg,
		Errors:          []JobError{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (j *Job) AddError(index int, message string) {
	j.Errors = append(j.Errors, JobError{Index: index, Message: message})
	j.UpdatedAt = time.Now()
}

func (j *Job) SetStatus(status string) {
	j.Status = status
	j.UpdatedAt = time.Now()
}
