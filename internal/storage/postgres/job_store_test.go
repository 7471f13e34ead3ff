package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/web-snapshot/internal/snapshot"
)

func TestCreateJobInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewJobStoreWithPool(mock, "snapshot_jobs")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	job := snapshot.Job{
		ID:        "uuid-v7",
		Status:    snapshot.JobStatusQueued,
		URLs:      []string{"https://example.com"},
		Submitted: now,
		Updated:   now,
	}

	mock.ExpectExec("INSERT INTO snapshot_jobs").
		WithArgs(
			job.ID,
			"queued",
			[]byte(`["https://example.com"]`),
			"",
			now,
			now,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.CreateJob(context.Background(), job))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateJobRequiresID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewJobStoreWithPool(mock, "snapshot_jobs")
	require.NoError(t, err)

	require.Error(t, store.CreateJob(context.Background(), snapshot.Job{}))
}

func TestUpdateJobStatusRejectsTerminalRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewJobStoreWithPool(mock, "snapshot_jobs")
	require.NoError(t, err)

	mock.ExpectExec("UPDATE snapshot_jobs").
		WithArgs("job-1", "running", "", nil, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = store.UpdateJobStatus(context.Background(), "job-1", snapshot.JobStatusRunning, "", nil)
	require.ErrorContains(t, err, "missing or already terminal")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateJobStatusWithResults(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewJobStoreWithPool(mock, "snapshot_jobs")
	require.NoError(t, err)

	results := []snapshot.CaptureResult{{URL: "https://example.com", Outcome: snapshot.OutcomeSaved}}

	mock.ExpectExec("UPDATE snapshot_jobs").
		WithArgs("job-1", "done", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.UpdateJobStatus(context.Background(), "job-1", snapshot.JobStatusDone, "", results))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJobNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewJobStoreWithPool(mock, "snapshot_jobs")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, status, urls, results, error_text, submitted_at, updated_at").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = store.GetJob(context.Background(), "missing")
	require.ErrorIs(t, err, snapshot.ErrNotFound)
}

func TestGetJobScansRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewJobStoreWithPool(mock, "snapshot_jobs")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	errText := ""
	rows := pgxmock.NewRows([]string{"id", "status", "urls", "results", "error_text", "submitted_at", "updated_at"}).
		AddRow("job-1", "done", []byte(`["https://example.com"]`), []byte(`[{"url":"https://example.com","outcome":"saved"}]`), &errText, now, now)

	mock.ExpectQuery("SELECT id, status, urls, results, error_text, submitted_at, updated_at").
		WithArgs("job-1").
		WillReturnRows(rows)

	job, err := store.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, snapshot.JobStatusDone, job.Status)
	require.Equal(t, []string{"https://example.com"}, job.URLs)
	require.Len(t, job.Results, 1)
	require.Equal(t, snapshot.OutcomeSaved, job.Results[0].Outcome)
}

func TestListActiveJobs(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewJobStoreWithPool(mock, "snapshot_jobs")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	errText := ""
	rows := pgxmock.NewRows([]string{"id", "status", "urls", "results", "error_text", "submitted_at", "updated_at"}).
		AddRow("job-1", "queued", []byte(`["https://a.com"]`), []byte(nil), &errText, now, now).
		AddRow("job-2", "running", []byte(`["https://b.com"]`), []byte(nil), &errText, now, now)

	mock.ExpectQuery("SELECT id, status, urls, results, error_text, submitted_at, updated_at").
		WillReturnRows(rows)

	jobs, err := store.ListActiveJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	require.Equal(t, snapshot.JobStatusQueued, jobs[0].Status)
	require.Equal(t, snapshot.JobStatusRunning, jobs[1].Status)
}

func TestNewJobStoreWithPoolValidatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewJobStoreWithPool(mock, "bad-table;drop")
	require.Error(t, err)
}
