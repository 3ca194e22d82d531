// Package storetest provides an in-memory store.Store used by the
// coordination core's unit tests, so reservation, ownership, the output
// protocol, admission, and the babysitter can each be tested without a
// database.
package storetest

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"falconeri/internal/falconeri/models"
	"falconeri/internal/falconeri/store"
)

// Fake is an in-memory store.Store. Not safe against real concurrency
// hazards (it does not model row locking) but sufficient for exercising
// single-threaded business logic.
type Fake struct {
	mu          sync.Mutex
	jobs        map[uuid.UUID]models.Job
	datums      map[uuid.UUID]models.Datum
	inputFiles  map[uuid.UUID][]models.InputFile
	outputFiles map[uuid.UUID][]models.OutputFile
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		jobs:        map[uuid.UUID]models.Job{},
		datums:      map[uuid.UUID]models.Datum{},
		inputFiles:  map[uuid.UUID][]models.InputFile{},
		outputFiles: map[uuid.UUID][]models.OutputFile{},
	}
}

type fakeTx struct{ f *Fake }

func (t *fakeTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, nil
}
func (t *fakeTx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, nil
}
func (t *fakeTx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return nil
}
func (t *fakeTx) Commit() error   { return nil }
func (t *fakeTx) Rollback() error { return nil }

func (f *Fake) BeginTx(ctx context.Context) (store.Tx, error) {
	return &fakeTx{f}, nil
}

// Ping always succeeds; the fake has no underlying connection to check.
func (f *Fake) Ping(ctx context.Context) error {
	return nil
}

func (f *Fake) CreateJob(ctx context.Context, tx store.DBTransaction, job *models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.jobs {
		if existing.Name == job.Name {
			return &uniqueViolation{uri: job.Name}
		}
	}
	f.jobs[job.ID] = *job
	return nil
}

func (f *Fake) GetJobByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &j, nil
}

func (f *Fake) GetJobByName(ctx context.Context, name string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if j.Name == name {
			return &j, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *Fake) ListJobs(ctx context.Context, limit, offset int) ([]models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Job
	for _, j := range f.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *Fake) LockJobForUpdate(ctx context.Context, tx store.DBTransaction, id uuid.UUID) (*models.Job, error) {
	return f.GetJobByID(ctx, id)
}

func (f *Fake) UpdateJobStatus(ctx context.Context, tx store.DBTransaction, id uuid.UUID, status models.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	j.Status = status
	j.UpdatedAt = time.Now()
	f.jobs[id] = j
	return nil
}

func (f *Fake) CountNonTerminalDatums(ctx context.Context, tx store.DBTransaction, jobID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, d := range f.datums {
		if d.JobID == jobID && !d.Status.IsTerminal() {
			count++
		}
	}
	return count, nil
}

func (f *Fake) CountDoneDatums(ctx context.Context, tx store.DBTransaction, jobID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, d := range f.datums {
		if d.JobID == jobID && d.Status == models.StatusDone {
			count++
		}
	}
	return count, nil
}

func (f *Fake) CountTotalDatums(ctx context.Context, tx store.DBTransaction, jobID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, d := range f.datums {
		if d.JobID == jobID {
			count++
		}
	}
	return count, nil
}

func (f *Fake) DatumStatusCounts(ctx context.Context, jobID uuid.UUID) ([]models.DatumStatusCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[models.Status]int64{}
	for _, d := range f.datums {
		if d.JobID == jobID {
			counts[d.Status]++
		}
	}
	var out []models.DatumStatusCount
	for s, c := range counts {
		out = append(out, models.DatumStatusCount{Status: s, Count: c})
	}
	return out, nil
}

func (f *Fake) ListDatumsByStatus(ctx context.Context, jobID uuid.UUID, status models.Status) ([]models.Datum, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Datum
	for _, d := range f.datums {
		if d.JobID == jobID && d.Status == status {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *Fake) RunningJobsOlderThan(ctx context.Context, cutoff time.Time) ([]models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Job
	for _, j := range f.jobs {
		if j.Status == models.StatusRunning && j.CreatedAt.Before(cutoff) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *Fake) ListRunningJobs(ctx context.Context) ([]models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Job
	for _, j := range f.jobs {
		if j.Status == models.StatusRunning {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *Fake) CreateDatum(ctx context.Context, tx store.DBTransaction, datum *models.Datum) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.datums[datum.ID] = *datum
	return nil
}

func (f *Fake) GetDatumByID(ctx context.Context, id uuid.UUID) (*models.Datum, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.datums[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &d, nil
}

func (f *Fake) LockDatumForUpdate(ctx context.Context, tx store.DBTransaction, id uuid.UUID) (*models.Datum, error) {
	return f.GetDatumByID(ctx, id)
}

func (f *Fake) ReserveNextDatum(ctx context.Context, tx store.DBTransaction, jobID uuid.UUID) (*models.Datum, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var candidates []models.Datum
	for _, d := range f.datums {
		if d.JobID == jobID && d.Status == models.StatusReady {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID.String() < candidates[j].ID.String() })
	d := candidates[0]
	return &d, nil
}

func (f *Fake) UpdateDatum(ctx context.Context, tx store.DBTransaction, datum *models.Datum) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.datums[datum.ID]; !ok {
		return sql.ErrNoRows
	}
	datum.UpdatedAt = time.Now()
	f.datums[datum.ID] = *datum
	return nil
}

func (f *Fake) RunningDatumsWithPodNotIn(ctx context.Context, jobID uuid.UUID, livePodNames []string) ([]models.Datum, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	live := map[string]bool{}
	for _, p := range livePodNames {
		live[p] = true
	}
	var out []models.Datum
	for _, d := range f.datums {
		if d.JobID != jobID || d.Status != models.StatusRunning {
			continue
		}
		if d.PodName == nil || !live[*d.PodName] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *Fake) RerunableDatums(ctx context.Context, jobID uuid.UUID) ([]models.Datum, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Datum
	for _, d := range f.datums {
		if d.JobID == jobID && d.IsRerunable() {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *Fake) CreateInputFiles(ctx context.Context, tx store.DBTransaction, files []models.InputFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, file := range files {
		f.inputFiles[file.DatumID] = append(f.inputFiles[file.DatumID], file)
	}
	return nil
}

func (f *Fake) ListInputFilesByDatum(ctx context.Context, datumID uuid.UUID) ([]models.InputFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inputFiles[datumID], nil
}

func (f *Fake) CreateOutputFiles(ctx context.Context, tx store.DBTransaction, files []models.OutputFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, file := range files {
		for _, existing := range f.existingOutputFiles() {
			if existing.JobID == file.JobID && existing.URI == file.URI {
				return &uniqueViolation{uri: file.URI}
			}
		}
		f.outputFiles[file.DatumID] = append(f.outputFiles[file.DatumID], file)
	}
	return nil
}

func (f *Fake) existingOutputFiles() []models.OutputFile {
	var all []models.OutputFile
	for _, files := range f.outputFiles {
		all = append(all, files...)
	}
	return all
}

type uniqueViolation struct{ uri string }

func (e *uniqueViolation) Error() string        { return "duplicate output file uri: " + e.uri }
func (e *uniqueViolation) IsUniqueViolation() bool { return true }

func (f *Fake) SetOutputFilesStatus(ctx context.Context, tx store.DBTransaction, datumID uuid.UUID, uris []string, status models.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[string]bool{}
	for _, u := range uris {
		want[u] = true
	}
	files := f.outputFiles[datumID]
	for i, file := range files {
		if want[file.URI] {
			files[i].Status = status
		}
	}
	f.outputFiles[datumID] = files
	return nil
}

func (f *Fake) ListOutputFilesByDatum(ctx context.Context, datumID uuid.UUID) ([]models.OutputFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outputFiles[datumID], nil
}

func (f *Fake) DeleteOutputFilesByDatum(ctx context.Context, tx store.DBTransaction, datumID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.outputFiles, datumID)
	return nil
}

// PutJob and PutDatum seed the fake directly, bypassing CreateJob/CreateDatum
// transaction plumbing, for test setup.
func (f *Fake) PutJob(j models.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[j.ID] = j
}

func (f *Fake) PutDatum(d models.Datum) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.datums[d.ID] = d
}
