package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"falconeri/internal/falconeri/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return &Store{db: db}, mock
}

func datumRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "job_id", "status", "pod_name", "node_name",
		"attempted_run_count", "maximum_allowed_run_count",
		"output", "error_message", "backtrace", "created_at", "updated_at",
	})
}

func TestReserveNextDatum_Success(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.db.Close()

	jobID := uuid.New()
	datumID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM datums .* FOR UPDATE SKIP LOCKED`).
		WithArgs(jobID, models.StatusReady).
		WillReturnRows(datumRows().AddRow(
			datumID, jobID, models.StatusReady, nil, nil, 0, 1, nil, nil, nil, now, now,
		))

	tx, err := store.db.Begin()
	if err != nil {
		t.Fatal(err)
	}
	d, err := store.ReserveNextDatum(context.Background(), tx, jobID)
	if err != nil {
		t.Fatalf("ReserveNextDatum failed: %v", err)
	}
	if d == nil || d.ID != datumID {
		t.Fatalf("got %+v, want datum %s", d, datumID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestReserveNextDatum_NoneAvailable(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.db.Close()

	jobID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM datums .* FOR UPDATE SKIP LOCKED`).
		WithArgs(jobID, models.StatusReady).
		WillReturnRows(datumRows())

	tx, err := store.db.Begin()
	if err != nil {
		t.Fatal(err)
	}
	d, err := store.ReserveNextDatum(context.Background(), tx, jobID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if d != nil {
		t.Fatalf("expected nil datum, got %+v", d)
	}
}

func TestRerunableDatums_FiltersOnAttemptCount(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.db.Close()

	jobID := uuid.New()
	datumID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM datums`).
		WithArgs(jobID, models.StatusError).
		WillReturnRows(datumRows().AddRow(
			datumID, jobID, models.StatusError, nil, nil, 1, 3, nil, "boom", nil, now, now,
		))

	datums, err := store.RerunableDatums(context.Background(), jobID)
	if err != nil {
		t.Fatalf("RerunableDatums failed: %v", err)
	}
	if len(datums) != 1 || datums[0].ID != datumID {
		t.Fatalf("got %+v, want one datum %s", datums, datumID)
	}
}
