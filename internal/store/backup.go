package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/larder/internal/model"
)

type BackupStore struct {
	db *sql.DB
}

func NewBackupStore(db *sql.DB) *BackupStore {
	return &BackupStore{db: db}
}

const backupCols = `id, filename, s3_key, size_bytes, status, error_message, completed_at, created_at`

func scanBackup(scanner interface{ Scan(...any) error }) (*model.Backup, error) {
	var b model.Backup
	var status string
	var completedAt sql.NullTime

	err := scanner.Scan(&b.ID, &b.Filename, &b.S3Key, &b.SizeBytes, &status, &b.ErrorMessage, &completedAt, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	b.Status = model.BackupStatus(status)
	if completedAt.Valid {
		b.CompletedAt = &completedAt.Time
	}
	return &b, nil
}

func (s *BackupStore) Create(filename, s3Key string) (*model.Backup, error) {
	result, err := s.db.Exec(
		`INSERT INTO backups (filename, s3_key, status, created_at) VALUES (?, ?, ?, ?)`,
		filename, s3Key, string(model.BackupStatusPending), time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert backup: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *BackupStore) GetByID(id int64) (*model.Backup, error) {
	row := s.db.QueryRow(`SELECT `+backupCols+` FROM backups WHERE id = ?`, id)
	b, err := scanBackup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup: %w", err)
	}
	return b, nil
}

func (s *BackupStore) UpdateStatus(id int64, status model.BackupStatus, errMsg string) error {
	_, err := s.db.Exec(`UPDATE backups SET status = ?, error_message = ? WHERE id = ?`, string(status), errMsg, id)
	if err != nil {
		return fmt.Errorf("update backup status: %w", err)
	}
	return nil
}

func (s *BackupStore) UpdateCompleted(id, sizeBytes int64) error {
	_, err := s.db.Exec(
		`UPDATE backups SET status = ?, size_bytes = ?, completed_at = ? WHERE id = ?`,
		string(model.BackupStatusCompleted), sizeBytes, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update backup completed: %w", err)
	}
	return nil
}

func (s *BackupStore) List() ([]model.Backup, error) {
	rows, err := s.db.Query(`SELECT ` + backupCols + ` FROM backups ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var backups []model.Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, *b)
	}
	return backups, rows.Err()
}

// DeleteOlderThan removes completed backup records created before the cutoff
// and returns their S3 keys so the caller can delete the objects.
func (s *BackupStore) DeleteOlderThan(before time.Time) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT s3_key FROM backups WHERE created_at < ? AND status = ?`,
		before.UTC(), string(model.BackupStatusCompleted),
	)
	if err != nil {
		return nil, fmt.Errorf("query old backups: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan backup key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	_, err = s.db.Exec(
		`DELETE FROM backups WHERE created_at < ? AND status = ?`,
		before.UTC(), string(model.BackupStatusCompleted),
	)
	if err != nil {
		return nil, fmt.Errorf("delete old backups: %w", err)
	}
	return keys, nil
}
