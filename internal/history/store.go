package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/loqalabs/voiceforge/internal/config"
	_ "modernc.org/sqlite"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Job is one recorded synthesis request.
type Job struct {
	ID        string
	RequestID string
	VoiceID   string
	Format    string
	Segments  int
	Bytes     int
	Duration  float64
	Emotion   string
	Status    string
	ErrorKind string
	CreatedAt time.Time
}

// Store keeps synthesis jobs in SQLite. In ephemeral mode every call is a no-op.
type Store struct {
	db    *sql.DB
	cfg   config.HistoryConfig
	log   *slog.Logger
	clock func() time.Time
}

func Open(ctx context.Context, cfg config.HistoryConfig, log *slog.Logger) (*Store, error) {
	log = log.With(slog.String("component", "history"))
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}

	if cfg.VacuumOnStart {
		if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
			log.Warn("history vacuum failed", slog.String("error", err.Error()))
		}
	}
	if err := s.Prune(ctx); err != nil {
		log.Warn("history prune on start failed", slog.String("error", err.Error()))
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS jobs (
    id TEXT PRIMARY KEY,
    request_id TEXT,
    voice_id TEXT,
    audio_format TEXT,
    segments INTEGER NOT NULL,
    bytes INTEGER NOT NULL,
    duration REAL NOT NULL,
    emotion TEXT,
    status TEXT NOT NULL,
    error_kind TEXT,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_created ON jobs(created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores job, filling in ID and CreatedAt when unset, and returns the
// stored value.
func (s *Store) Record(ctx context.Context, job Job) (Job, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = s.clock().UTC()
	}
	if s.db == nil {
		return job, nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs(id, request_id, voice_id, audio_format, segments, bytes, duration, emotion, status, error_kind, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.RequestID, job.VoiceID, job.Format, job.Segments, job.Bytes, job.Duration,
		job.Emotion, job.Status, job.ErrorKind, job.CreatedAt.UnixNano())
	if err != nil {
		return job, fmt.Errorf("record job: %w", err)
	}
	return job, nil
}

// List returns up to limit jobs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Job, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, voice_id, audio_format, segments, bytes, duration, emotion, status, error_kind, created_at
		 FROM jobs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		var created int64
		if err := rows.Scan(&j.ID, &j.RequestID, &j.VoiceID, &j.Format, &j.Segments, &j.Bytes,
			&j.Duration, &j.Emotion, &j.Status, &j.ErrorKind, &created); err != nil {
			return nil, err
		}
		j.CreatedAt = time.Unix(0, created).UTC()
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// Get loads a single job by id.
func (s *Store) Get(ctx context.Context, id string) (Job, error) {
	if s.db == nil {
		return Job{}, ErrNotFound
	}
	var j Job
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, request_id, voice_id, audio_format, segments, bytes, duration, emotion, status, error_kind, created_at
		 FROM jobs WHERE id = ?`, id).
		Scan(&j.ID, &j.RequestID, &j.VoiceID, &j.Format, &j.Segments, &j.Bytes,
			&j.Duration, &j.Emotion, &j.Status, &j.ErrorKind, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, err
	}
	j.CreatedAt = time.Unix(0, created).UTC()
	return j, nil
}

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("job not found")

// Prune applies retention_days and max_jobs.
func (s *Store) Prune(ctx context.Context) (err error) {
	if s.db == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM jobs WHERE created_at < ?`, cutoff.UnixNano()); err != nil {
			return err
		}
	}
	if s.cfg.MaxJobs > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM jobs WHERE id IN (
			SELECT id FROM jobs ORDER BY created_at DESC, rowid DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxJobs)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}
