// Package babysitter periodically reconciles the state store against the
// true state of the worker fleet: jobs whose batch job vanished off the
// cluster, datums whose pod disappeared mid-run, and errored datums that
// are eligible for another try.
package babysitter

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"falconeri/internal/falconeri/models"
	"falconeri/internal/falconeri/orchestrator"
	"falconeri/internal/falconeri/store"
)

// Babysitter owns the reconciliation loop.
type Babysitter struct {
	Store        store.Store
	Orchestrator orchestrator.Orchestrator
	Logger       *slog.Logger

	// Period is the target time between reconciliation passes. Defaults
	// to 2 minutes if zero.
	Period time.Duration

	// VanishedJobAge is how long a Running job may go without a matching
	// orchestrator batch job before it is considered vanished. Defaults
	// to 15 minutes if zero.
	VanishedJobAge time.Duration
}

func (b *Babysitter) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

func (b *Babysitter) period() time.Duration {
	if b.Period <= 0 {
		return 2 * time.Minute
	}
	return b.Period
}

func (b *Babysitter) vanishedJobAge() time.Duration {
	if b.VanishedJobAge <= 0 {
		return 15 * time.Minute
	}
	return b.VanishedJobAge
}

// Run loops forever on a jittered period, calling RunOnce and logging
// (but not propagating) errors so a transient database outage does not
// stop reconciliation permanently. A panic in RunOnce is treated as fatal
// for the whole process: the babysitter silently failing is worse than
// the process restarting.
func (b *Babysitter) Run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			b.logger().Error("babysitter panic, aborting process", "panic", r)
			fmt.Fprintf(os.Stderr, "BABYSITTER PANIC, aborting: %v\n", r)
			os.Exit(1)
		}
	}()

	for {
		if err := b.RunOnce(ctx); err != nil {
			b.logger().Error("error during reconciliation pass, will retry", "error", err)
		}

		jitter := time.Duration(rand.Int63n(int64(b.period() / 4)))
		select {
		case <-ctx.Done():
			return
		case <-time.After(b.period() + jitter):
		}
	}
}

// RunOnce runs all three reconciliation passes once. Pass 2 (zombie
// datums) must run before pass 3 (retry admission): a datum has to be
// marked Error before it is eligible for re-queue.
func (b *Babysitter) RunOnce(ctx context.Context) error {
	if err := b.checkVanishedJobs(ctx); err != nil {
		return fmt.Errorf("checking vanished jobs: %w", err)
	}
	if err := b.checkZombieDatums(ctx); err != nil {
		return fmt.Errorf("checking zombie datums: %w", err)
	}
	if err := b.checkRerunableDatums(ctx); err != nil {
		return fmt.Errorf("checking rerunable datums: %w", err)
	}
	return nil
}

// checkVanishedJobs finds Running jobs older than vanishedJobAge with no
// corresponding orchestrator batch job and marks them Error.
func (b *Babysitter) checkVanishedJobs(ctx context.Context) error {
	cutoff := time.Now().Add(-b.vanishedJobAge())
	jobs, err := b.Store.RunningJobsOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	batchJobs, err := b.Orchestrator.ListBatchJobs(ctx)
	if err != nil {
		return err
	}
	live := map[string]bool{}
	for _, bj := range batchJobs {
		live[bj.FalconeriJobID] = true
	}

	for _, job := range jobs {
		if err := b.finalizeVanishedJob(ctx, job, live); err != nil {
			b.logger().Error("could not finalize vanished job", "job", job.ID, "error", err)
		}
	}
	return nil
}

func (b *Babysitter) finalizeVanishedJob(ctx context.Context, job models.Job, live map[string]bool) error {
	tx, err := b.Store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	current, err := b.Store.LockJobForUpdate(ctx, tx, job.ID)
	if err != nil {
		return err
	}

	if current.Status != models.StatusRunning || live[current.ID.String()] {
		return tx.Commit()
	}

	b.logger().Warn("job has no corresponding orchestrator batch job, marking as error", "job", current.ID, "name", current.Name)
	if err := b.Store.UpdateJobStatus(ctx, tx, current.ID, models.StatusError); err != nil {
		return err
	}
	return tx.Commit()
}

// checkZombieDatums finds Running datums whose pod is no longer alive
// and marks them Error, then recomputes each affected job's status.
func (b *Babysitter) checkZombieDatums(ctx context.Context) error {
	livePods, err := b.Orchestrator.ListRunningPodNames(ctx)
	if err != nil {
		return err
	}

	jobs, err := b.Store.ListRunningJobs(ctx)
	if err != nil {
		return err
	}

	affectedJobs := map[uuid.UUID]bool{}
	for _, job := range jobs {
		zombies, err := b.Store.RunningDatumsWithPodNotIn(ctx, job.ID, livePods)
		if err != nil {
			b.logger().Error("could not list zombie datums", "job", job.ID, "error", err)
			continue
		}
		for _, zombie := range zombies {
			marked, err := b.markZombieAsError(ctx, zombie.ID)
			if err != nil {
				b.logger().Error("could not mark zombie datum as error", "datum", zombie.ID, "error", err)
				continue
			}
			if marked {
				affectedJobs[zombie.JobID] = true
			}
		}
	}

	for jobID := range affectedJobs {
		if err := b.recomputeJobStatus(ctx, jobID); err != nil {
			b.logger().Error("could not recompute job status after zombie pass", "job", jobID, "error", err)
		}
	}
	return nil
}

func (b *Babysitter) markZombieAsError(ctx context.Context, datumID uuid.UUID) (bool, error) {
	tx, err := b.Store.BeginTx(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	datum, err := b.Store.LockDatumForUpdate(ctx, tx, datumID)
	if err != nil {
		return false, err
	}
	if datum.Status != models.StatusRunning {
		return false, tx.Commit()
	}

	b.logger().Warn("found zombie datum", "datum", datum.ID, "pod_name", derefOrEmpty(datum.PodName))
	output := "(did not capture output)"
	errMsg := "worker pod disappeared while working on datum"
	backtrace := "(no backtrace available)"
	datum.Status = models.StatusError
	datum.Output = &output
	datum.ErrorMessage = &errMsg
	datum.Backtrace = &backtrace

	if err := b.Store.UpdateDatum(ctx, tx, datum); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// checkRerunableDatums finds Error datums that still have attempts left,
// deletes their OutputFiles, and re-admits them as Ready.
func (b *Babysitter) checkRerunableDatums(ctx context.Context) error {
	jobs, err := b.Store.ListRunningJobs(ctx)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		rerunable, err := b.Store.RerunableDatums(ctx, job.ID)
		if err != nil {
			b.logger().Error("could not list rerunable datums", "job", job.ID, "error", err)
			continue
		}
		for _, datum := range rerunable {
			if err := b.requeueDatum(ctx, datum.ID); err != nil {
				b.logger().Error("could not requeue datum", "datum", datum.ID, "error", err)
			}
		}
	}
	return nil
}

func (b *Babysitter) requeueDatum(ctx context.Context, datumID uuid.UUID) error {
	tx, err := b.Store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	datum, err := b.Store.LockDatumForUpdate(ctx, tx, datumID)
	if err != nil {
		return err
	}
	if !datum.IsRerunable() {
		return tx.Commit()
	}

	b.logger().Warn("rescheduling errored datum", "datum", datum.ID,
		"attempted_run_count", datum.AttemptedRunCount, "maximum_allowed_run_count", datum.MaximumAllowedRunCount)

	if err := b.Store.DeleteOutputFilesByDatum(ctx, tx, datum.ID); err != nil {
		return err
	}

	datum.Status = models.StatusReady
	datum.PodName = nil
	datum.NodeName = nil
	datum.Output = nil
	datum.ErrorMessage = nil
	datum.Backtrace = nil

	if err := b.Store.UpdateDatum(ctx, tx, datum); err != nil {
		return err
	}
	return tx.Commit()
}

func (b *Babysitter) recomputeJobStatus(ctx context.Context, jobID uuid.UUID) error {
	tx, err := b.Store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := b.Store.LockJobForUpdate(ctx, tx, jobID); err != nil {
		return err
	}

	remaining, err := b.Store.CountNonTerminalDatums(ctx, tx, jobID)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return tx.Commit()
	}

	done, err := b.Store.CountDoneDatums(ctx, tx, jobID)
	if err != nil {
		return err
	}
	total, err := b.Store.CountTotalDatums(ctx, tx, jobID)
	if err != nil {
		return err
	}

	status := models.StatusError
	if done == total {
		status = models.StatusDone
	}
	if err := b.Store.UpdateJobStatus(ctx, tx, jobID, status); err != nil {
		return err
	}
	return tx.Commit()
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
