// Package sqlite implements record and subscription storage on an embedded
// SQLite database for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/svitlo/svitlo-bot/internal/schedule"
)

// Store implements record and subscription storage on SQLite.
type Store struct {
	db     *sql.DB
	limits schedule.Limits
	now    func() time.Time
}

// Open opens (or creates) the database at path, applies PRAGMAs and runs
// migrations.
func Open(ctx context.Context, path string, limits schedule.Limits) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite is a single-writer engine; one connection serialises writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &Store{db: db, limits: limits, now: time.Now}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database file is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --------------------------------------------------------------------------
// Schedule records
// --------------------------------------------------------------------------

func (s *Store) GetRecord(ctx context.Context, group schedule.GroupID) (schedule.Record, error) {
	var (
		raw       string
		fp        []byte
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT schedule, fingerprint, updated_at
		FROM schedule_records
		WHERE group_id = ?`,
		group.String(),
	).Scan(&raw, &fp, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return schedule.Record{}, schedule.ErrRecordNotFound
	}
	if err != nil {
		return schedule.Record{}, fmt.Errorf("get record %s: %w", group, err)
	}
	return decodeRecord(group.String(), raw, fp, updatedAt)
}

// SaveRecord replaces the group's row in a single upsert statement.
func (s *Store) SaveRecord(ctx context.Context, rec schedule.Record) error {
	raw, err := json.Marshal(rec.Schedule)
	if err != nil {
		return fmt.Errorf("encode schedule %s: %w", rec.Group, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO schedule_records (group_id, schedule, fingerprint, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(group_id) DO UPDATE SET
			schedule    = excluded.schedule,
			fingerprint = excluded.fingerprint,
			updated_at  = excluded.updated_at`,
		rec.Group.String(), string(raw), rec.Fingerprint[:], rec.UpdatedAt.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save record %s: %w", rec.Group, err)
	}
	return nil
}

// ListRecords returns every stored record ordered by group.
func (s *Store) ListRecords(ctx context.Context) ([]schedule.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT group_id, schedule, fingerprint, updated_at
		FROM schedule_records
		ORDER BY group_id`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []schedule.Record
	for rows.Next() {
		var (
			group, raw string
			fp         []byte
			updatedAt  int64
		)
		if err := rows.Scan(&group, &raw, &fp, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := decodeRecord(group, raw, fp, updatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func decodeRecord(group, raw string, fp []byte, updatedAt int64) (schedule.Record, error) {
	g, err := schedule.ParseGroup(group)
	if err != nil {
		return schedule.Record{}, fmt.Errorf("stored record: %w", err)
	}
	var gs schedule.GroupSchedule
	if err := json.Unmarshal([]byte(raw), &gs); err != nil {
		return schedule.Record{}, fmt.Errorf("decode schedule %s: %w", group, err)
	}
	f, err := schedule.FingerprintFromBytes(fp)
	if err != nil {
		return schedule.Record{}, fmt.Errorf("stored record %s: %w", group, err)
	}
	return schedule.Record{Group: g, Schedule: gs, Fingerprint: f, UpdatedAt: time.Unix(0, updatedAt).UTC()}, nil
}
