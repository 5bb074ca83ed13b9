// Package store persists job records so completed work can be inspected
// after the 202 acknowledgment. It observes the engine through admission
// and completion hooks; the engine itself stays storeless.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	mediakit "github.com/mediakit/mediakit-go"
)

// Status is the lifecycle state of a job record.
type Status string

const (
	StatusQueued Status = "queued"
	StatusDone   Status = "done"
)

// Record is one persisted job. The envelope is kept as raw JSON so the
// stored shape matches the webhook payload byte for byte.
type Record struct {
	JobID       string
	Endpoint    string
	Status      Status
	Code        int
	Message     string
	CreatedAt   time.Time
	CompletedAt time.Time
	Envelope    json.RawMessage
}

// Store wraps a badgerhold database of job records.
type Store struct {
	db        *badgerhold.Store
	log       arbor.ILogger
	retention time.Duration
}

// Open creates or opens the record database at path.
func Open(path string, retention time.Duration, log arbor.ILogger) (*Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create job store directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	log.Debug().Str("path", path).Msg("Job store opened")

	return &Store{db: db, log: log, retention: retention}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// JobAdmitted records a freshly enqueued job. It is wired as the engine's
// admission hook and must stay cheap; failures are logged, never surfaced.
func (s *Store) JobAdmitted(job *mediakit.Job) {
	rec := &Record{
		JobID:     job.ID,
		Endpoint:  job.Endpoint,
		Status:    StatusQueued,
		CreatedAt: job.AdmittedAt,
	}
	if err := s.db.Upsert(job.ID, rec); err != nil {
		s.log.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to record admitted job")
	}
}

// JobCompleted stores the finished envelope. Wired as the completion hook.
func (s *Store) JobCompleted(job *mediakit.Job, env *mediakit.Envelope) {
	raw, err := json.Marshal(env)
	if err != nil {
		s.log.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to encode envelope")
		raw = nil
	}
	rec := &Record{
		JobID:       job.ID,
		Endpoint:    job.Endpoint,
		Status:      StatusDone,
		Code:        env.Code,
		Message:     env.Message,
		CreatedAt:   job.AdmittedAt,
		CompletedAt: time.Now(),
		Envelope:    raw,
	}
	if err := s.db.Upsert(job.ID, rec); err != nil {
		s.log.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to record completed job")
	}
}

// Get fetches a record by job ID.
func (s *Store) Get(jobID string) (*Record, error) {
	var rec Record
	if err := s.db.Get(jobID, &rec); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("job not found: %s", jobID)
		}
		return nil, fmt.Errorf("get job record: %w", err)
	}
	return &rec, nil
}

// List returns records newest first, optionally filtered by status.
func (s *Store) List(limit, offset int, status Status) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query := badgerhold.Where("JobID").Ne("")
	if status != "" {
		query = query.And("Status").Eq(status)
	}
	query = query.SortBy("CreatedAt").Reverse().Skip(offset).Limit(limit)

	var recs []Record
	if err := s.db.Find(&recs, query); err != nil {
		return nil, fmt.Errorf("list job records: %w", err)
	}
	return recs, nil
}

// Sweep deletes completed records older than the retention window. Run it
// periodically; a zero retention disables sweeping.
func (s *Store) Sweep() {
	if s.retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-s.retention)
	err := s.db.DeleteMatching(&Record{},
		badgerhold.Where("Status").Eq(StatusDone).And("CompletedAt").Lt(cutoff))
	if err != nil {
		s.log.Warn().Err(err).Msg("Job record sweep failed")
	}
}
