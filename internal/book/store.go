package book

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"bindery/internal/config"
)

// Store manages book persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the book database. A fresh database is
// seeded with the title and settings from config; an existing database keeps
// whatever settings it has accumulated through the API.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	level, ok := ParseCompressionLevel(cfg.Book.CompressionLevel)
	if !ok {
		level = CompressionMedium
	}
	seed := Settings{
		MaxChunkSizeBytes:   cfg.Book.MaxChunkSizeBytes,
		CompressionLevel:    level,
		SafetyMarginPercent: cfg.Book.SafetyMarginPercent,
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background(), cfg.Book.Title, seed); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Title returns the book title.
func (s *Store) Title(ctx context.Context) (string, error) {
	var title string
	err := s.db.QueryRowContext(ctx, `SELECT title FROM book_meta WHERE id = 1`).Scan(&title)
	if err != nil {
		return "", fmt.Errorf("read book title: %w", err)
	}
	return title, nil
}

// Settings returns the current bundle settings.
func (s *Store) Settings(ctx context.Context) (Settings, error) {
	return scanSettings(s.db.QueryRowContext(ctx,
		`SELECT max_chunk_size_bytes, compression_level, safety_margin_percent FROM book_meta WHERE id = 1`))
}

// UpdateSettings replaces the bundle settings and bumps the revision so
// running loops re-evaluate against the new constraints.
func (s *Store) UpdateSettings(ctx context.Context, settings Settings) error {
	if _, ok := ParseCompressionLevel(string(settings.CompressionLevel)); !ok {
		return fmt.Errorf("unknown compression level %q", settings.CompressionLevel)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settings tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE book_meta
         SET max_chunk_size_bytes = ?, compression_level = ?, safety_margin_percent = ?, revision = revision + 1
         WHERE id = 1`,
		settings.MaxChunkSizeBytes,
		string(settings.CompressionLevel),
		settings.SafetyMarginPercent,
	); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return tx.Commit()
}

// Revision returns the current book revision. Any mutation of items or
// settings bumps it; loops capture it as a generation marker.
func (s *Store) Revision(ctx context.Context) (int64, error) {
	var revision int64
	err := s.db.QueryRowContext(ctx, `SELECT revision FROM book_meta WHERE id = 1`).Scan(&revision)
	if err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	return revision, nil
}

// Snapshot reads title, settings, items, and revision in one transaction so
// loops plan against a consistent whole-value view of the book.
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	snap := &Snapshot{}
	row := tx.QueryRowContext(ctx,
		`SELECT title, max_chunk_size_bytes, compression_level, safety_margin_percent, revision FROM book_meta WHERE id = 1`)
	var level string
	if err := row.Scan(&snap.Title, &snap.Settings.MaxChunkSizeBytes, &level, &snap.Settings.SafetyMarginPercent, &snap.Revision); err != nil {
		return nil, fmt.Errorf("read book meta: %w", err)
	}
	snap.Settings.CompressionLevel = CompressionLevel(level)

	rows, err := tx.QueryContext(ctx, `SELECT `+itemColumns+` FROM items ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		snap.Items = append(snap.Items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}

// Progress reports how many items carry a representation current for the
// book's compression level.
func (s *Store) Progress(ctx context.Context) (Progress, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return Progress{}, err
	}
	var progress Progress
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1), COUNT(CASE WHEN cache_level = ? THEN 1 END) FROM items`,
		string(settings.CompressionLevel))
	if err := row.Scan(&progress.Total, &progress.Processed); err != nil {
		return Progress{}, fmt.Errorf("read progress: %w", err)
	}
	return progress, nil
}

func (s *Store) bumpRevision(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `UPDATE book_meta SET revision = revision + 1 WHERE id = 1`); err != nil {
		return fmt.Errorf("bump revision: %w", err)
	}
	return nil
}

func scanSettings(row *sql.Row) (Settings, error) {
	var settings Settings
	var level string
	if err := row.Scan(&settings.MaxChunkSizeBytes, &level, &settings.SafetyMarginPercent); err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	settings.CompressionLevel = CompressionLevel(level)
	return settings, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
