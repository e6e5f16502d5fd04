// Package store persists job snapshots in PostgreSQL so a listing can be
// reopened after it leaves the provider's result set.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ChristinaDay/updrift-sub001/internal/apierror"
	"github.com/ChristinaDay/updrift-sub001/internal/model"
)

// DefaultTTL is how long a snapshot lives when the caller gives no TTL.
const DefaultTTL = 30 * 24 * time.Hour

// ErrNotFound is returned when no live snapshot matches.
var ErrNotFound = errors.New("job snapshot not found")

// Snapshot is one stored job.
type Snapshot struct {
	Publisher string    `json:"publisher"`
	JobID     string    `json:"job_id"`
	Job       model.Job `json:"job"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS job_snapshots (
    publisher  TEXT        NOT NULL,
    job_id     TEXT        NOT NULL,
    data       JSONB       NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    expires_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (publisher, job_id)
);
CREATE INDEX IF NOT EXISTS job_snapshots_expires_at_idx ON job_snapshots (expires_at);
`

// Store is backed by a pgx pool.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// New returns a Store over pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// EnsureSchema creates the table and index if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// ValidateJob checks the fields a snapshot is keyed on.
func ValidateJob(job model.Job) error {
	if strings.TrimSpace(job.JobID) == "" {
		return &apierror.ValidationError{Field: "job_id", Msg: "is required"}
	}
	if strings.TrimSpace(job.JobPublisher) == "" {
		return &apierror.ValidationError{Field: "job_publisher", Msg: "is required"}
	}
	if strings.TrimSpace(job.JobTitle) == "" {
		return &apierror.ValidationError{Field: "job_title", Msg: "is required"}
	}
	return nil
}

// SaveSnapshot upserts job, keyed by lower-cased publisher and job id.
// A non-positive ttl means DefaultTTL.
func (s *Store) SaveSnapshot(ctx context.Context, job model.Job, ttl time.Duration) (*Snapshot, error) {
	if err := ValidateJob(job); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	raw, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal: %w", err)
	}

	now := s.now().UTC()
	snap := &Snapshot{
		Publisher: strings.ToLower(job.JobPublisher),
		JobID:     job.JobID,
		Job:       job,
		ExpiresAt: now.Add(ttl),
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO job_snapshots (publisher, job_id, data, created_at, expires_at)
		 VALUES ($1, $2, $3::jsonb, $4, $5)
		 ON CONFLICT (publisher, job_id)
		 DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at
		 RETURNING created_at`,
		snap.Publisher, snap.JobID, string(raw), now, snap.ExpiresAt,
	).Scan(&snap.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert job_snapshots: %w", err)
	}
	return snap, nil
}

// GetSnapshot returns the live snapshot for publisher and id, or ErrNotFound.
func (s *Store) GetSnapshot(ctx context.Context, publisher, jobID string) (*Snapshot, error) {
	snap := &Snapshot{Publisher: strings.ToLower(publisher), JobID: jobID}
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data, created_at, expires_at
		 FROM job_snapshots
		 WHERE publisher = $1 AND job_id = $2 AND expires_at > $3`,
		snap.Publisher, snap.JobID, s.now().UTC(),
	).Scan(&raw, &snap.CreatedAt, &snap.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select job_snapshots: %w", err)
	}
	if err := json.Unmarshal(raw, &snap.Job); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return snap, nil
}

// DeleteExpired removes every expired snapshot and returns how many went.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM job_snapshots WHERE expires_at <= $1`, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired job_snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}
