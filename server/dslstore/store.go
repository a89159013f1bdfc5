// Package dslstore persists compile jobs submitted to the compile service
// as a pure-Go sqlite table: one row per compile request, keyed on a UUID
// job ID, recording the request and its outcome so a client can look the
// job up again with GET /v1/jobs/{id}. The compile itself runs within the
// POST request that submits it.
package dslstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"

	"github.com/dekarrin/dslc/server/serr"
)

// Status is the lifecycle state of a Job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Job records one compile request and, once finished, its result.
type Job struct {
	ID          uuid.UUID
	ClientID    string
	Status      Status
	Source      string
	ConfigJSON  string
	Diagnostics string
	ArtifactB64 string
	ErrorMsg    string
	CreatedAt   time.Time
	FinishedAt  time.Time
}

// Store is a sqlite-backed table of Jobs.
type Store struct {
	db *sql.DB
}

// Open creates or opens the job database under dir, running a
// create-table-if-not-exists init step.
func Open(dir string) (*Store, error) {
	path := filepath.Join(dir, "jobs.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapDBError(err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS jobs (
		id TEXT NOT NULL PRIMARY KEY,
		client_id TEXT NOT NULL,
		status TEXT NOT NULL,
		source TEXT NOT NULL,
		config_json TEXT NOT NULL,
		diagnostics TEXT NOT NULL,
		artifact_b64 TEXT NOT NULL,
		error_msg TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);`)
	if err != nil {
		return nil, wrapDBError(err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new job with a freshly generated ID and StatusQueued,
// returning the populated Job.
func (s *Store) Create(ctx context.Context, clientID, source, configJSON string) (Job, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return Job{}, fmt.Errorf("generate job id: %w", err)
	}

	j := Job{
		ID:         id,
		ClientID:   clientID,
		Status:     StatusQueued,
		Source:     source,
		ConfigJSON: configJSON,
		CreatedAt:  time.Now(),
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO jobs
		(id, client_id, status, source, config_json, diagnostics, artifact_b64, error_msg, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, '', '', '', ?, 0)`,
		j.ID.String(), j.ClientID, string(j.Status), j.Source, j.ConfigJSON, j.CreatedAt.Unix())
	if err != nil {
		return Job{}, wrapDBError(err)
	}

	return j, nil
}

// Finish records the terminal state of a job: diagnostics text, a base64
// artifact (empty on failure), and an error message (empty on success).
func (s *Store) Finish(ctx context.Context, id uuid.UUID, status Status, diagnostics, artifactB64, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE jobs SET status = ?, diagnostics = ?, artifact_b64 = ?, error_msg = ?, finished_at = ? WHERE id = ?`,
		string(status), diagnostics, artifactB64, errMsg, time.Now().Unix(), id.String())
	if err != nil {
		return wrapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBError(err)
	}
	if n == 0 {
		return serr.New("", serr.ErrNotFound)
	}
	return nil
}

// Get retrieves a job by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, client_id, status, source, config_json, diagnostics, artifact_b64, error_msg, created_at, finished_at FROM jobs WHERE id = ?`, id.String())

	var j Job
	var idStr string
	var statusStr string
	var createdAt, finishedAt int64
	err := row.Scan(&idStr, &j.ClientID, &statusStr, &j.Source, &j.ConfigJSON, &j.Diagnostics, &j.ArtifactB64, &j.ErrorMsg, &createdAt, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, serr.New("", serr.ErrNotFound)
		}
		return Job{}, wrapDBError(err)
	}

	j.ID, err = uuid.Parse(idStr)
	if err != nil {
		return Job{}, serr.New("stored job id is malformed", err)
	}
	j.Status = Status(statusStr)
	j.CreatedAt = time.Unix(createdAt, 0)
	if finishedAt > 0 {
		j.FinishedAt = time.Unix(finishedAt, 0)
	}

	return j, nil
}

func wrapDBError(err error) error {
	sqliteErr := &sqlite.Error{}
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code() == 19 {
			return serr.New("", serr.ErrAlreadyExists)
		}
		return serr.WrapDB(sqlite.ErrorCodeString[sqliteErr.Code()], err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return serr.New("", serr.ErrNotFound)
	}
	return serr.WrapDB("", err)
}
