package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/reqmerge/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		documents INTEGER NOT NULL,
		requirements INTEGER NOT NULL,
		failed INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	CREATE TABLE IF NOT EXISTS labels (
		label TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		filename TEXT NOT NULL,
		positional INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS requirements (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		kind TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bodies (
		requirement_id TEXT NOT NULL,
		label TEXT NOT NULL,
		body TEXT NOT NULL,
		PRIMARY KEY (requirement_id, label)
	);

	CREATE TABLE IF NOT EXISTS services (
		requirement_id TEXT PRIMARY KEY,
		service TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceResult replaces labels, requirements and bodies in one transaction and
// records run. Services are left as they are.
func (s *SQLiteStorage) ReplaceResult(ctx context.Context, run models.Run, labels []models.SourceLabel, coll *models.Collection) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"bodies", "requirements", "labels"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	labelStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO labels (label, position, filename, positional) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer labelStmt.Close()
	for i, l := range labels {
		if _, err := labelStmt.ExecContext(ctx, l.Label, i, l.Filename, l.Positional); err != nil {
			return fmt.Errorf("insert label %q: %w", l.Label, err)
		}
	}

	reqStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO requirements (id, position, kind) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer reqStmt.Close()
	bodyStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO bodies (requirement_id, label, body) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer bodyStmt.Close()

	for i, r := range coll.All() {
		if _, err := reqStmt.ExecContext(ctx, r.ID, i, string(r.Kind)); err != nil {
			return fmt.Errorf("insert requirement %s: %w", r.ID, err)
		}
		for label, body := range r.Bodies {
			if _, err := bodyStmt.ExecContext(ctx, r.ID, label, body); err != nil {
				return fmt.Errorf("insert body %s/%s: %w", r.ID, label, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, documents, requirements, failed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.FinishedAt, run.Documents, run.Requirements, run.Failed,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return tx.Commit()
}

// LoadCollection returns the stored labels in input order and the requirements in
// first-seen order with their reviewer services.
func (s *SQLiteStorage) LoadCollection(ctx context.Context) ([]models.SourceLabel, *models.Collection, error) {
	labels, err := s.loadLabels(ctx)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.kind, COALESCE(s.service, '')
		 FROM requirements r LEFT JOIN services s ON s.requirement_id = r.id
		 ORDER BY r.position`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	coll := models.NewCollection()
	for rows.Next() {
		var r models.Requirement
		var kind string
		if err := rows.Scan(&r.ID, &kind, &r.Service); err != nil {
			return nil, nil, err
		}
		r.Kind = models.ParseKind(kind)
		r.Bodies = make(map[string]string, len(labels))
		coll.Put(&r)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	bodies, err := s.db.QueryContext(ctx, `SELECT requirement_id, label, body FROM bodies`)
	if err != nil {
		return nil, nil, err
	}
	defer bodies.Close()
	for bodies.Next() {
		var id, label, body string
		if err := bodies.Scan(&id, &label, &body); err != nil {
			return nil, nil, err
		}
		if r, ok := coll.Get(id); ok {
			r.Bodies[label] = body
		}
	}
	return labels, coll, bodies.Err()
}

func (s *SQLiteStorage) loadLabels(ctx context.Context) ([]models.SourceLabel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label, filename, positional FROM labels ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labels []models.SourceLabel
	for rows.Next() {
		var l models.SourceLabel
		if err := rows.Scan(&l.Label, &l.Filename, &l.Positional); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// GetRequirement returns one requirement by identifier.
func (s *SQLiteStorage) GetRequirement(ctx context.Context, id string) (*models.Requirement, error) {
	var r models.Requirement
	var kind string
	err := s.db.QueryRowContext(ctx,
		`SELECT r.id, r.kind, COALESCE(s.service, '')
		 FROM requirements r LEFT JOIN services s ON s.requirement_id = r.id
		 WHERE r.id = ?`, id,
	).Scan(&r.ID, &kind, &r.Service)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("requirement %s: %w", id, models.ErrRequirementNotFound)
	}
	if err != nil {
		return nil, err
	}
	r.Kind = models.ParseKind(kind)

	rows, err := s.db.QueryContext(ctx,
		`SELECT label, body FROM bodies WHERE requirement_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	r.Bodies = make(map[string]string)
	for rows.Next() {
		var label, body string
		if err := rows.Scan(&label, &body); err != nil {
			return nil, err
		}
		r.Bodies[label] = body
	}
	return &r, rows.Err()
}

// SetService upserts the service value for an existing requirement.
func (s *SQLiteStorage) SetService(ctx context.Context, id, value string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM requirements WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("set service %s: %w", id, models.ErrRequirementNotFound)
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO services (requirement_id, service, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(requirement_id) DO UPDATE SET service = excluded.service, updated_at = excluded.updated_at`,
		id, value,
	); err != nil {
		return fmt.Errorf("set service %s: %w", id, err)
	}
	return tx.Commit()
}

// LastRun returns the most recent run, or nil when nothing was extracted yet.
func (s *SQLiteStorage) LastRun(ctx context.Context) (*models.Run, error) {
	var run models.Run
	err := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, documents, requirements, failed
		 FROM runs ORDER BY started_at DESC LIMIT 1`,
	).Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Documents, &run.Requirements, &run.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// CountRequirements returns the number of stored requirements.
func (s *SQLiteStorage) CountRequirements(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM requirements`).Scan(&count)
	return count, err
}

// CountLabels returns the number of stored source labels.
func (s *SQLiteStorage) CountLabels(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM labels`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
