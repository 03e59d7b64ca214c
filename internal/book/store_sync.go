package book

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SyncRecordByPart fetches the sync record for a chunk slot. Returns nil
// when no upload has been attempted for that part yet.
func (s *Store) SyncRecordByPart(ctx context.Context, partNumber int) (*SyncRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+syncColumns+` FROM sync_records WHERE part_number = ?`, partNumber)
	record, err := scanSyncRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync record: %w", err)
	}
	return record, nil
}

// SyncRecords returns all sync records ordered by part number.
func (s *Store) SyncRecords(ctx context.Context) ([]SyncRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+syncColumns+` FROM sync_records ORDER BY part_number`)
	if err != nil {
		return nil, fmt.Errorf("query sync records: %w", err)
	}
	defer rows.Close()

	var records []SyncRecord
	for rows.Next() {
		record, err := scanSyncRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// PutSyncRecord inserts or replaces the record for one chunk slot.
func (s *Store) PutSyncRecord(ctx context.Context, record SyncRecord) error {
	if record.PartNumber < 1 {
		return errors.New("part number must be positive")
	}
	if _, ok := ParseSyncStatus(string(record.Status)); !ok {
		return fmt.Errorf("unknown sync status %q", record.Status)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_records (part_number, status, last_synced_fingerprint, remote_object_id, last_error, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT (part_number) DO UPDATE SET
             status = excluded.status,
             last_synced_fingerprint = excluded.last_synced_fingerprint,
             remote_object_id = excluded.remote_object_id,
             last_error = excluded.last_error,
             updated_at = excluded.updated_at`,
		record.PartNumber,
		string(record.Status),
		record.LastSyncedFingerprint,
		record.RemoteObjectID,
		record.LastError,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put sync record: %w", err)
	}
	return nil
}

// ResetUploading returns records stuck in uploading back to waiting. Run at
// daemon startup: an upload interrupted by a crash never completed, so the
// slot must be reconciled again.
func (s *Store) ResetUploading(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_records SET status = ?, updated_at = ? WHERE status = ?`,
		string(SyncWaiting),
		time.Now().UTC().Format(time.RFC3339Nano),
		string(SyncUploading),
	)
	if err != nil {
		return 0, fmt.Errorf("reset uploading records: %w", err)
	}
	return res.RowsAffected()
}

// PruneSyncRecords drops records for part numbers beyond the current plan so
// a shrinking book does not leave phantom slots in status output.
func (s *Store) PruneSyncRecords(ctx context.Context, maxPart int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sync_records WHERE part_number > ?`, maxPart)
	if err != nil {
		return 0, fmt.Errorf("prune sync records: %w", err)
	}
	return res.RowsAffected()
}

const syncColumns = "part_number, status, last_synced_fingerprint, remote_object_id, last_error, updated_at"

func scanSyncRecord(scanner interface{ Scan(dest ...any) error }) (*SyncRecord, error) {
	var (
		partNumber  int
		status      string
		fingerprint string
		remoteID    string
		lastError   string
		updatedRaw  string
	)
	if err := scanner.Scan(&partNumber, &status, &fingerprint, &remoteID, &lastError, &updatedRaw); err != nil {
		return nil, err
	}
	record := &SyncRecord{
		PartNumber:            partNumber,
		Status:                SyncStatus(status),
		LastSyncedFingerprint: fingerprint,
		RemoteObjectID:        remoteID,
		LastError:             lastError,
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		record.UpdatedAt = updated
	}
	return record, nil
}
