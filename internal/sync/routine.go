package sync

import (
	"context"

	"bankfeed-sync-go/internal/aggregator"
	"bankfeed-sync-go/internal/jobs"
	"bankfeed-sync-go/internal/logger"
)

// Downloader produces the grouped raw feed for one run.
type Downloader interface {
	Download(ctx context.Context) (map[string][]aggregator.Transaction, error)
}

// Generator converts the grouped feed into normalized transactions.
type Generator interface {
	CollectTargetAccounts(ctx context.Context) error
	Generate(ctx context.Context, grouped map[string][]aggregator.Transaction) []NormalizedTransaction
}

// JobSaver persists job state, mainly so recorded errors survive the run.
type JobSaver interface {
	Save(job *jobs.Job) error
}

// RoutineManager runs one sync job end to end and reports failures into the
// job's error sink.
type RoutineManager struct {
	job       *jobs.Job
	repo      JobSaver
	processor Downloader
	generator Generator
}

func NewRoutineManager(job *jobs.Job, repo JobSaver, processor Downloader, generator Generator) *RoutineManager {
	return &RoutineManager{
		job:       job,
		repo:      repo,
		processor: processor,
		generator: generator,
	}
}

// Start downloads, maps, and converts. A download failure is fatal to the
// run: it is recorded against the job, the job is persisted, and the error
// is returned. An empty download is a valid terminal state and yields an
// empty list.
func (r *RoutineManager) Start(ctx context.Context) ([]NormalizedTransaction, error) {
	log := logger.FromContext(ctx)
	log.Debug().Str("job", r.job.ID).Msg("starting conversion routine")

	downloaded, err := r.processor.Download(ctx)
	if err != nil {
		log.Error().Err(err).Msg("transaction download failed")
		r.job.AddError(0, "failed to download transactions: "+err.Error())
		r.job.SetStatus(jobs.StatusFailed)
		if saveErr := r.repo.Save(r.job); saveErr != nil {
			log.Warn().Err(saveErr).Msg("could not persist job state")
		}
		return nil, err
	}

	if len(downloaded) == 0 {
		log.Warn().Msg("no transactions downloaded")
		r.job.SetStatus(jobs.StatusDone)
		if saveErr := r.repo.Save(r.job); saveErr != nil {
			log.Warn().Err(saveErr).Msg("could not persist job state")
		}
		return []NormalizedTransaction{}, nil
	}

	if err := r.generator.CollectTargetAccounts(ctx); err != nil {
		return nil, err
	}

	transactions := r.generator.Generate(ctx, downloaded)
	log.Debug().Int("count", len(transactions)).Msg("generated normalized transactions")

	r.job.SetStatus(jobs.StatusDone)
	if saveErr := r.repo.Save(r.job); saveErr != nil {
		log.Warn().Err(saveErr).Msg("could not persist job state")
	}
	return transactions, nil
}
