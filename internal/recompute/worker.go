// Package recompute owns the queue-driven scoring loop. Writes to driver
// profiles, jobs, and feedback enqueue work here; the worker claims
// entries and refreshes the affected match rows.
package recompute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vijay-prabhu/cdlmatch/internal/config"
	"github.com/vijay-prabhu/cdlmatch/internal/database"
	"github.com/vijay-prabhu/cdlmatch/internal/match"
)

// Enqueue requests a recompute for one entity. Safe to call on every
// write; a pending entry for the same entity absorbs the request.
func Enqueue(ctx context.Context, db *database.DB, entityType database.EntityType, entityID, reason string, log *zap.Logger) error {
	created, err := db.EnqueueRecompute(ctx, entityType, entityID, reason)
	if err != nil {
		return fmt.Errorf("failed to enqueue recompute: %w", err)
	}
	if created {
		log.Debug("recompute enqueued",
			zap.String("entity_type", string(entityType)),
			zap.String("entity_id", entityID),
			zap.String("reason", reason))
	}
	return nil
}

// Worker drains the recompute queue. Multiple workers may run against the
// same database; the conditional claim update keeps them from processing
// the same entry twice.
type Worker struct {
	db       *database.DB
	pipeline *match.Pipeline
	cfg      config.WorkerConfig
	log      *zap.Logger
}

// NewWorker creates a queue worker
func NewWorker(db *database.DB, pipeline *match.Pipeline, cfg config.WorkerConfig, log *zap.Logger) *Worker {
	return &Worker{db: db, pipeline: pipeline, cfg: cfg, log: log}
}

// Run polls until the context is cancelled. Each tick drains everything
// claimable, so a burst of writes clears in one pass.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval())
	defer ticker.Stop()

	w.log.Info("recompute worker started",
		zap.Duration("poll_interval", w.cfg.PollInterval()))

	for {
		if err := w.Drain(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.log.Error("queue drain failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			w.log.Info("recompute worker stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Drain processes queue entries until none are claimable
func (w *Worker) Drain(ctx context.Context) error {
	for {
		entry, err := w.db.ClaimNextPending(ctx)
		if errors.Is(err, database.ErrNotClaimed) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to claim queue entry: %w", err)
		}
		w.process(ctx, entry)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// process runs one claimed entry to a terminal status
func (w *Worker) process(ctx context.Context, entry *database.RecomputeEntry) {
	log := w.log.With(
		zap.String("entry_id", entry.ID),
		zap.String("entity_type", string(entry.EntityType)),
		zap.String("entity_id", entry.EntityID))

	var err error
	switch entry.EntityType {
	case database.EntityDriverProfile:
		err = w.recomputeDriver(ctx, entry.EntityID)
	case database.EntityJob:
		err = w.recomputeJob(ctx, entry.EntityID)
	case database.EntityCompanyProfile:
		err = w.recomputeCompany(ctx, entry.EntityID)
	default:
		err = fmt.Errorf("unknown entity type %q", entry.EntityType)
	}

	if err != nil {
		log.Error("recompute failed", zap.Error(err))
		if markErr := w.db.MarkQueueEntryFailed(ctx, entry.ID, err.Error()); markErr != nil {
			log.Error("failed to mark queue entry failed", zap.Error(markErr))
		}
		return
	}

	if err := w.db.MarkQueueEntryDone(ctx, entry.ID); err != nil {
		log.Error("failed to mark queue entry done", zap.Error(err))
		return
	}
	log.Info("recompute done")
}

// recomputeDriver refreshes one driver's rows against every Active job
func (w *Worker) recomputeDriver(ctx context.Context, driverID string) error {
	var driver *database.DriverProfile
	err := w.withRetry(ctx, "fetch driver", func() error {
		var fetchErr error
		driver, fetchErr = w.db.GetDriverProfile(ctx, driverID)
		return fetchErr
	})
	if err != nil {
		return err
	}
	if driver == nil {
		// Entity deleted after enqueue; nothing to refresh
		return nil
	}

	snapshot, err := BuildSnapshot(ctx, w.db, driverID)
	if err != nil {
		return err
	}

	var jobs []database.JobPosting
	err = w.withRetry(ctx, "list active jobs", func() error {
		var fetchErr error
		jobs, fetchErr = w.db.ListActiveJobs(ctx, w.cfg.CandidateLimit)
		return fetchErr
	})
	if err != nil {
		return err
	}

	pairs := make([]match.Pair, 0, len(jobs))
	for i := range jobs {
		pairs = append(pairs, match.Pair{
			Driver:   driver,
			Job:      &jobs[i],
			Snapshot: snapshot,
			Role:     database.RoleDriver,
		})
	}
	return w.scoreAndStore(ctx, pairs)
}

// recomputeJob refreshes every driver's row for one job, then the owning
// company's candidate list. A job that is no longer Active gets no new
// driver rows; those disappear behind the read-side status filter. The
// company side carries no job reference for reads to filter on, so it is
// rebuilt either way.
func (w *Worker) recomputeJob(ctx context.Context, jobID string) error {
	var job *database.JobPosting
	err := w.withRetry(ctx, "fetch job", func() error {
		var fetchErr error
		job, fetchErr = w.db.GetJobPosting(ctx, jobID)
		return fetchErr
	})
	if err != nil {
		return err
	}
	if job == nil {
		// Entity deleted after enqueue; nothing to refresh
		return nil
	}
	if !job.IsActive() {
		return w.recomputeCompany(ctx, job.CompanyID)
	}

	var drivers []database.DriverProfile
	err = w.withRetry(ctx, "list drivers", func() error {
		var fetchErr error
		drivers, fetchErr = w.db.ListDriverProfiles(ctx, false, w.cfg.CandidateLimit)
		return fetchErr
	})
	if err != nil {
		return err
	}

	pairs := make([]match.Pair, 0, len(drivers))
	for i := range drivers {
		snapshot, snapErr := BuildSnapshot(ctx, w.db, drivers[i].ID)
		if snapErr != nil {
			w.log.Warn("skipping driver with unreadable history",
				zap.String("driver_id", drivers[i].ID), zap.Error(snapErr))
			continue
		}
		pairs = append(pairs, match.Pair{
			Driver:   &drivers[i],
			Job:      job,
			Snapshot: snapshot,
			Role:     database.RoleDriver,
		})
	}
	if err := w.scoreAndStore(ctx, pairs); err != nil {
		return err
	}

	return w.recomputeCompany(ctx, job.CompanyID)
}

// recomputeCompany rebuilds a company's candidate rows: every consenting
// driver scored against the company's Active jobs, keeping each driver's
// best-scoring pairing. Rows not refreshed by the rebuild lost their last
// active pairing and are removed.
func (w *Worker) recomputeCompany(ctx context.Context, companyID string) error {
	start := time.Now()

	var companyJobs []database.JobPosting
	err := w.withRetry(ctx, "list company jobs", func() error {
		var fetchErr error
		companyJobs, fetchErr = w.db.ListActiveJobsByCompany(ctx, companyID, w.cfg.CandidateLimit)
		return fetchErr
	})
	if err != nil {
		return err
	}

	if len(companyJobs) > 0 {
		var drivers []database.DriverProfile
		err = w.withRetry(ctx, "list consenting drivers", func() error {
			var fetchErr error
			drivers, fetchErr = w.db.ListDriverProfiles(ctx, true, w.cfg.CandidateLimit)
			return fetchErr
		})
		if err != nil {
			return err
		}

		for i := range drivers {
			snapshot, snapErr := BuildSnapshot(ctx, w.db, drivers[i].ID)
			if snapErr != nil {
				w.log.Warn("skipping driver with unreadable history",
					zap.String("driver_id", drivers[i].ID), zap.Error(snapErr))
				continue
			}

			pairs := make([]match.Pair, 0, len(companyJobs))
			for j := range companyJobs {
				pairs = append(pairs, match.Pair{
					Driver:   &drivers[i],
					Job:      &companyJobs[j],
					Snapshot: snapshot,
					Role:     database.RoleCompany,
				})
			}

			best := w.bestResult(ctx, pairs)
			if best == nil {
				continue
			}
			if err := w.db.UpsertMatchScore(ctx, best); err != nil {
				return fmt.Errorf("failed to store candidate score: %w", err)
			}
		}
	}

	removed, err := w.db.DeleteStaleCompanyMatches(ctx, companyID, start)
	if err != nil {
		return fmt.Errorf("failed to clear stale candidate rows: %w", err)
	}
	if removed > 0 {
		w.log.Info("cleared stale candidate rows",
			zap.String("company_id", companyID),
			zap.Int64("removed", removed))
	}
	return nil
}

// scoreAndStore runs a batch and upserts the successes. A pair that fails
// to score is logged and skipped so the rest of the batch still lands.
func (w *Worker) scoreAndStore(ctx context.Context, pairs []match.Pair) error {
	for _, result := range w.pipeline.ScorePairs(ctx, pairs) {
		if result.Err != nil {
			pair := pairs[result.Index]
			w.log.Warn("pair failed to score",
				zap.String("driver_id", pair.Driver.ID),
				zap.String("job_id", pair.Job.ID),
				zap.Error(result.Err))
			continue
		}
		if err := w.db.UpsertMatchScore(ctx, result.Score); err != nil {
			return fmt.Errorf("failed to store match score: %w", err)
		}
	}
	return nil
}

// bestResult scores a batch and returns the highest-scoring success.
// Results come back in pair order, so ties keep the earlier pair.
func (w *Worker) bestResult(ctx context.Context, pairs []match.Pair) *database.MatchScore {
	var best *database.MatchScore
	for _, result := range w.pipeline.ScorePairs(ctx, pairs) {
		if result.Err != nil {
			pair := pairs[result.Index]
			w.log.Warn("pair failed to score",
				zap.String("driver_id", pair.Driver.ID),
				zap.String("job_id", pair.Job.ID),
				zap.Error(result.Err))
			continue
		}
		if best == nil || result.Score.OverallScore > best.OverallScore {
			best = result.Score
		}
	}
	return best
}

// withRetry runs fn up to the configured attempt limit, backing off
// briefly between tries. Meant for subject and pool fetches; scoring
// itself never retries.
func (w *Worker) withRetry(ctx context.Context, what string, fn func() error) error {
	attempts := w.cfg.MaxFetchRetries
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		w.log.Warn("fetch failed, retrying",
			zap.String("operation", what),
			zap.Int("attempt", i+1),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 100 * time.Millisecond):
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}
