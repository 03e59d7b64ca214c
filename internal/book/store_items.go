package book

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AddItem appends a new item to the end of the book and returns it. The
// title is inferred from the source path.
func (s *Store) AddItem(ctx context.Context, sourcePath string, kind Kind, rawSize int64) (*Item, error) {
	return s.AddItemTitled(ctx, sourcePath, "", kind, rawSize)
}

// AddItemTitled appends a new item with an explicit title. An empty title
// falls back to the source path's base name.
func (s *Store) AddItemTitled(ctx context.Context, sourcePath, title string, kind Kind, rawSize int64) (*Item, error) {
	if strings.TrimSpace(sourcePath) == "" {
		return nil, errors.New("source path must not be empty")
	}
	if rawSize < 0 {
		return nil, errors.New("raw size must not be negative")
	}
	if strings.TrimSpace(title) == "" {
		title = inferTitleFromPath(sourcePath)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var maxPosition sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(position) FROM items`).Scan(&maxPosition); err != nil {
		return nil, fmt.Errorf("read max position: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO items (id, position, title, source_path, kind, raw_size, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		maxPosition.Int64+1,
		title,
		sourcePath,
		string(kind),
		rawSize,
		now,
		now,
	); err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	if err := s.bumpRevision(ctx, tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add: %w", err)
	}
	return s.ItemByID(ctx, id)
}

// ItemByID fetches an item by identifier. Returns nil when absent.
func (s *Store) ItemByID(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// Items returns every item in book order.
func (s *Store) Items(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// RemoveItem deletes an item and compacts positions of the items after it.
func (s *Store) RemoveItem(ctx context.Context, id string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin remove tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var position int
	err = tx.QueryRowContext(ctx, `SELECT position FROM items WHERE id = ?`, id).Scan(&position)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read item position: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET position = position - 1 WHERE position > ?`, position); err != nil {
		return false, fmt.Errorf("compact positions: %w", err)
	}

	if err := s.bumpRevision(ctx, tx); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit remove: %w", err)
	}
	return true, nil
}

// MoveItem relocates an item to a 1-based target position, shifting its
// neighbours. Out-of-range targets clamp to the ends of the book.
func (s *Store) MoveItem(ctx context.Context, id string, target int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin move tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current int
	err = tx.QueryRowContext(ctx, `SELECT position FROM items WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("item %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("read item position: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM items`).Scan(&count); err != nil {
		return fmt.Errorf("count items: %w", err)
	}
	if target < 1 {
		target = 1
	}
	if target > count {
		target = count
	}
	if target == current {
		return tx.Commit()
	}

	// Park the moving row outside the position range, shift the window,
	// then land it. The unique index on position stays satisfied.
	if _, err := tx.ExecContext(ctx, `UPDATE items SET position = 0 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("park item: %w", err)
	}
	if target > current {
		_, err = tx.ExecContext(ctx,
			`UPDATE items SET position = position - 1 WHERE position > ? AND position <= ?`, current, target)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE items SET position = position + 1 WHERE position >= ? AND position < ?`, target, current)
	}
	if err != nil {
		return fmt.Errorf("shift positions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE items SET position = ?, updated_at = ? WHERE id = ?`,
		target, time.Now().UTC().Format(time.RFC3339Nano), id); err != nil {
		return fmt.Errorf("place item: %w", err)
	}

	if err := s.bumpRevision(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

// SetPageCount records an authoritative page count for an item.
func (s *Store) SetPageCount(ctx context.Context, id string, pages int) error {
	if pages < 0 {
		return errors.New("page count must not be negative")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin page count tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE items SET page_count = ?, updated_at = ? WHERE id = ?`,
		pages, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("set page count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("item %s not found", id)
	}
	if err := s.bumpRevision(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

// CommitRepresentation stores a freshly compressed representation for one
// item, touching no other rows. The write is conditional: if the item has
// been removed or the book's compression level moved on since the refresh
// started, the result is stale and the commit reports false so the caller
// can discard it.
func (s *Store) CommitRepresentation(ctx context.Context, id string, rep Representation) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin representation tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var currentLevel string
	if err := tx.QueryRowContext(ctx,
		`SELECT compression_level FROM book_meta WHERE id = 1`).Scan(&currentLevel); err != nil {
		return false, fmt.Errorf("read compression level: %w", err)
	}
	if CompressionLevel(currentLevel) != rep.Level {
		return false, nil
	}

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM items WHERE id = ?`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check item: %w", err)
	}
	if exists == 0 {
		return false, nil
	}

	updatedAt := rep.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE items
         SET cache_size = ?, cache_level = ?, cache_path = ?, cache_updated_at = ?, updated_at = ?
         WHERE id = ?`,
		rep.Size,
		string(rep.Level),
		nullableString(rep.Path),
		updatedAt.Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return false, fmt.Errorf("store representation: %w", err)
	}

	if err := s.bumpRevision(ctx, tx); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit representation: %w", err)
	}
	return true, nil
}

const itemColumns = "id, position, title, source_path, kind, raw_size, page_count, cache_size, cache_level, cache_path, cache_updated_at, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id           string
		position     int
		title        string
		sourcePath   string
		kind         string
		rawSize      int64
		pageCount    int
		cacheSize    sql.NullInt64
		cacheLevel   sql.NullString
		cachePath    sql.NullString
		cacheUpdated sql.NullString
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&position,
		&title,
		&sourcePath,
		&kind,
		&rawSize,
		&pageCount,
		&cacheSize,
		&cacheLevel,
		&cachePath,
		&cacheUpdated,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:         id,
		Position:   position,
		Title:      title,
		SourcePath: sourcePath,
		Kind:       Kind(kind),
		RawSize:    rawSize,
		PageCount:  pageCount,
	}
	if cacheLevel.Valid {
		rep := &Representation{
			Size:  cacheSize.Int64,
			Level: CompressionLevel(cacheLevel.String),
			Path:  cachePath.String,
		}
		if updated, err := parseTimeString(cacheUpdated.String); err == nil {
			rep.UpdatedAt = updated
		}
		item.Cached = rep
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func inferTitleFromPath(path string) string {
	base := strings.TrimSpace(filepath.Base(path))
	ext := filepath.Ext(base)
	base = strings.TrimSpace(strings.TrimSuffix(base, ext))
	if base == "" {
		return "Untitled"
	}
	return base
}
