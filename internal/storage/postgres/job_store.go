// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/web-snapshot/internal/snapshot"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// JobStoreConfig controls the Postgres connection pool used for job rows.
type JobStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// JobStore persists job records in Postgres. Every operation is a single
// record-level statement; jobs are independent, so no transactions are used.
type JobStore struct {
	pool  pgxPool
	table string
}

// NewJobStore creates a Postgres-backed JobStore using the provided config.
func NewJobStore(ctx context.Context, cfg JobStoreConfig) (*JobStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "snapshot_jobs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &JobStore{pool: pool, table: table}, nil
}

// NewJobStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewJobStoreWithPool(pool pgxPool, table string) (*JobStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "snapshot_jobs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &JobStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *JobStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateJob inserts a new job row.
func (s *JobStore) CreateJob(ctx context.Context, job snapshot.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	urlsJSON, err := json.Marshal(job.URLs)
	if err != nil {
		return fmt.Errorf("marshal urls: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, status, urls, results, error_text, submitted_at, updated_at)
VALUES ($1, $2, $3, NULL, $4, $5, $6)`, s.table)

	if _, err := s.pool.Exec(ctx, query,
		job.ID,
		string(job.Status),
		urlsJSON,
		job.ErrorText,
		job.Submitted,
		job.Updated,
	); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// UpdateJobStatus mutates one job row. Rows already in a terminal state are
// left untouched, preserving the one-way transition invariant at the
// storage layer.
func (s *JobStore) UpdateJobStatus(
	ctx context.Context,
	jobID string,
	status snapshot.JobStatus,
	errText string,
	results []snapshot.CaptureResult,
) error {
	var resultsJSON any
	if results != nil {
		data, err := json.Marshal(results)
		if err != nil {
			return fmt.Errorf("marshal results: %w", err)
		}
		resultsJSON = data
	}
	query := fmt.Sprintf(`
UPDATE %s
SET status = $2, error_text = $3, results = $4, updated_at = $5
WHERE id = $1 AND status NOT IN ('done', 'error')`, s.table)

	tag, err := s.pool.Exec(ctx, query, jobID, string(status), errText, resultsJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s is missing or already terminal", jobID)
	}
	return nil
}

// GetJob fetches a job row by ID.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (snapshot.Job, error) {
	query := fmt.Sprintf(`
SELECT id, status, urls, results, error_text, submitted_at, updated_at
FROM %s WHERE id = $1`, s.table)

	job, err := scanJob(s.pool.QueryRow(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return snapshot.Job{}, fmt.Errorf("get job %s: %w", jobID, snapshot.ErrNotFound)
		}
		return snapshot.Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListActiveJobs returns jobs still in queued or running state.
func (s *JobStore) ListActiveJobs(ctx context.Context) ([]snapshot.Job, error) {
	query := fmt.Sprintf(`
SELECT id, status, urls, results, error_text, submitted_at, updated_at
FROM %s WHERE status IN ('queued', 'running')`, s.table)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active jobs: %w", err)
	}
	defer rows.Close()

	var jobs []snapshot.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", err)
	}
	return jobs, nil
}

func scanJob(row pgx.Row) (snapshot.Job, error) {
	var (
		job         snapshot.Job
		status      string
		urlsJSON    []byte
		resultsJSON []byte
		errText     *string
	)
	if err := row.Scan(&job.ID, &status, &urlsJSON, &resultsJSON, &errText, &job.Submitted, &job.Updated); err != nil {
		return snapshot.Job{}, err
	}
	job.Status = snapshot.JobStatus(status)
	if errText != nil {
		job.ErrorText = *errText
	}
	if len(urlsJSON) > 0 {
		if err := json.Unmarshal(urlsJSON, &job.URLs); err != nil {
			return snapshot.Job{}, fmt.Errorf("unmarshal urls: %w", err)
		}
	}
	if len(resultsJSON) > 0 {
		if err := json.Unmarshal(resultsJSON, &job.Results); err != nil {
			return snapshot.Job{}, fmt.Errorf("unmarshal results: %w", err)
		}
	}
	return job, nil
}
