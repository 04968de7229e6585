package pg

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"go-priority-pool/core"
)

//go:embed migrations/*
var Migrations embed.FS

type Source struct {
	db *sqlx.DB
}

func NewPostgresSource(dsn string) (*Source, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &Source{db: db}, nil
}

func (s *Source) Up() error {
	migrationFS, err := fs.Sub(Migrations, "migrations")
	if err != nil {
		return err
	}

	driver, err := postgres.WithInstance(s.db.DB, &postgres.Config{})
	if err != nil {
		return err
	}

	migrationSrc, err := iofs.New(migrationFS, ".")
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance(
		"iofs",
		migrationSrc,
		"postgres",
		driver,
	)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

func (s *Source) ResetRunning(pool string) error {
	query := `
		UPDATE jobs
		SET status = $1
		WHERE status = $2 AND pool = $3;
	`
	_, err := s.db.Exec(query, core.JobQueued, core.JobRunning, pool)
	return err
}

func (s *Source) Enqueue(job core.Model) error {
	query := `
		INSERT INTO jobs (
			id, pool, priority, status, attempts, error, payload, score, available_at, created_at
		) VALUES (:id, :pool, :priority, :status, :attempts, :error, :payload, :score, :available_at, :created_at);
	`
	_, err := s.db.NamedExec(query, map[string]interface{}{
		"id":           job.ID,
		"pool":         job.Pool,
		"priority":     job.Priority,
		"status":       job.Status,
		"attempts":     job.Attempts,
		"error":        job.Error,
		"payload":      job.Payload,
		"score":        job.Score,
		"available_at": job.AvailableAt,
		"created_at":   job.CreatedAt,
	})

	return err
}

func (s *Source) Dequeue(pool string, limit int) ([]core.Model, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	query := `
		SELECT id, pool, priority, status, attempts, error, payload, score, available_at AS availableat, created_at AS createdat
		FROM jobs
		WHERE pool = $1 AND status = $2 AND available_at <= $3
		ORDER BY score ASC, seq ASC
		LIMIT $4
		FOR UPDATE SKIP LOCKED;
	`

	var jobs []core.Model
	err = tx.Select(&jobs, query, pool, core.JobQueued, time.Now().UTC(), limit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNoJobsFound
		}
		return nil, fmt.Errorf("failed to get jobs: %v", err)
	}

	if len(jobs) == 0 {
		return nil, core.ErrNoJobsFound
	}

	jobIDs := make([]string, len(jobs))
	for i, job := range jobs {
		jobIDs[i] = job.ID
	}

	_, err = tx.Exec(`UPDATE jobs SET status = $1 WHERE id = ANY($2);`, core.JobRunning, pq.Array(jobIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to update job statuses: %v", err)
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %v", err)
	}

	for i := range jobs {
		jobs[i].Status = core.JobRunning
	}

	return jobs, nil
}

func (s *Source) UpdateJob(job core.Model) error {
	query := `
		UPDATE jobs
		SET status = :status, attempts = :attempts, error = :error, available_at = :available_at
		WHERE id = :id;
	`
	_, err := s.db.NamedExec(query, map[string]interface{}{
		"id":           job.ID,
		"status":       job.Status,
		"attempts":     job.Attempts,
		"error":        job.Error,
		"available_at": job.AvailableAt,
	})

	return err
}

func (s *Source) DeleteJob(pool, jobID string) error {
	query := `
		DELETE FROM jobs
		WHERE id = $1 AND pool = $2;
	`
	_, err := s.db.Exec(query, jobID, pool)
	return err
}

func (s *Source) Length(pool string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM jobs
		WHERE pool = $1 AND status = $2;
	`
	var count int
	err := s.db.Get(&count, query, pool, core.JobQueued)
	return count, err
}

func (s *Source) Count(pool string, status core.Status) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM jobs
		WHERE pool = $1 AND status = $2;
	`
	var count int
	err := s.db.Get(&count, query, pool, status)
	return count, err
}

func (s *Source) Clear(pool string) error {
	query := `
		DELETE FROM jobs
		WHERE pool = $1;
	`
	_, err := s.db.Exec(query, pool)
	return err
}

func (s *Source) Close() error {
	return s.db.Close()
}
