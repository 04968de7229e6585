package sqlite

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"go-priority-pool/core"
)

//go:embed migrations/*
var Migrations embed.FS

type Source struct {
	db *sqlx.DB
}

func NewSQLiteSource(dsn string) (*Source, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// the sqlite driver serializes writers; a single connection avoids
	// SQLITE_BUSY between the dispatcher and the workers
	db.SetMaxOpenConns(1)
	return &Source{db: db}, nil
}

func (s *Source) Up() error {
	migrationFS, err := fs.Sub(Migrations, "migrations")
	if err != nil {
		return err
	}

	driver, err := migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{})
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
		"sqlite3",
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
		SET status = ?
		WHERE status = ? AND pool = ?;
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
		WHERE pool = ? AND status = ? AND available_at <= ?
		ORDER BY score ASC, rowid ASC
		LIMIT ?;
	`

	var jobs []core.Model
	err = tx.Select(&jobs, query, pool, core.JobQueued, time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get jobs: %v", err)
	}

	if len(jobs) == 0 {
		return nil, core.ErrNoJobsFound
	}

	jobIDs := make([]interface{}, len(jobs))
	for i, job := range jobs {
		jobIDs[i] = job.ID
	}

	updateQuery, args, err := sqlx.In(`UPDATE jobs SET status = ? WHERE id IN (?);`, core.JobRunning, jobIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build update query: %v", err)
	}

	_, err = tx.Exec(tx.Rebind(updateQuery), args...)
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
		WHERE id = ? AND pool = ?;
	`
	_, err := s.db.Exec(query, jobID, pool)
	return err
}

func (s *Source) Length(pool string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM jobs
		WHERE pool = ? AND status = ?;
	`
	var count int
	err := s.db.Get(&count, query, pool, core.JobQueued)
	return count, err
}

func (s *Source) Count(pool string, status core.Status) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM jobs
		WHERE pool = ? AND status = ?;
	`
	var count int
	err := s.db.Get(&count, query, pool, status)
	return count, err
}

func (s *Source) Clear(pool string) error {
	query := `
		DELETE FROM jobs
		WHERE pool = ?;
	`
	_, err := s.db.Exec(query, pool)
	return err
}

func (s *Source) Close() error {
	return s.db.Close()
}
