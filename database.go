package merchpilot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLPlatformStore persists platform connections in a MySQL table named
// <dbName>.platforms.
type SQLPlatformStore struct {
	db     *sql.DB
	dbName string
}

// NewSQLPlatformStore wraps a caller-owned connection pool.
func NewSQLPlatformStore(db *sql.DB, dbName string) *SQLPlatformStore {
	return &SQLPlatformStore{db: db, dbName: dbName}
}

const platformColumns = `
			  id,
			  merchant_id,
			  name,
			  is_connected,
			  status,
			  username,
			  encrypted_password,
			  last_sync,
			  created_at,
			  updated_at`

func (s *SQLPlatformStore) scanPlatform(row interface{ Scan(...any) error }) (*PlatformConnection, error) {
	var (
		conn     PlatformConnection
		username sql.NullString
		password sql.NullString
		lastSync sql.NullTime
		status   string
	)
	err := row.Scan(
		&conn.ID,
		&conn.MerchantID,
		&conn.Name,
		&conn.IsConnected,
		&status,
		&username,
		&password,
		&lastSync,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	conn.Status = ConnectionStatus(status)
	conn.Username = username.String
	conn.EncryptedPassword = password.String
	if lastSync.Valid {
		t := lastSync.Time
		conn.LastSync = &t
	}
	return &conn, nil
}

// GetPlatform fetches one merchant/platform pair, or ErrPlatformNotFound.
func (s *SQLPlatformStore) GetPlatform(ctx context.Context, merchantID int64, name string) (*PlatformConnection, error) {
	query := `SELECT` + platformColumns + `
			FROM ` + s.dbName + `.platforms
			WHERE merchant_id = ? AND name = ?`
	conn, err := s.scanPlatform(s.db.QueryRowContext(ctx, query, merchantID, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlatformNotFound
		}
		return nil, err
	}
	return conn, nil
}

// GetPlatformsByMerchant lists every connection a merchant has, oldest
// first.
func (s *SQLPlatformStore) GetPlatformsByMerchant(ctx context.Context, merchantID int64) ([]PlatformConnection, error) {
	query := `SELECT` + platformColumns + `
			FROM ` + s.dbName + `.platforms
			WHERE merchant_id = ?
			ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, merchantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlatformConnection
	for rows.Next() {
		conn, err := s.scanPlatform(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *conn)
	}
	return out, rows.Err()
}

// CreatePlatform inserts a new connection row and returns it with its
// generated ID and timestamps filled in.
func (s *SQLPlatformStore) CreatePlatform(ctx context.Context, conn *PlatformConnection) (*PlatformConnection, error) {
	now := time.Now().UTC().Round(time.Microsecond)
	query := fmt.Sprintf(`INSERT INTO %s.platforms
			(merchant_id, name, is_connected, status, username, encrypted_password, last_sync, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, NULL, ?, ?)`, s.dbName)
	res, err := s.db.ExecContext(ctx, query,
		conn.MerchantID,
		conn.Name,
		conn.IsConnected,
		string(conn.Status),
		conn.Username,
		conn.EncryptedPassword,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert platform: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get lastInsertId: %w", err)
	}

	created := *conn
	created.ID = id
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

// UpdatePlatform applies a partial update to one connection row.
func (s *SQLPlatformStore) UpdatePlatform(ctx context.Context, id int64, update PlatformUpdate) error {
	setClauses := []string{"updated_at = ?"}
	args := []any{time.Now().UTC().Round(time.Microsecond)}

	if update.IsConnected != nil {
		setClauses = append(setClauses, "is_connected = ?")
		args = append(args, *update.IsConnected)
	}
	if update.Status != nil {
		setClauses = append(setClauses, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.ClearCredentials {
		setClauses = append(setClauses, "username = NULL", "encrypted_password = NULL")
	} else {
		if update.Username != nil {
			setClauses = append(setClauses, "username = ?")
			args = append(args, *update.Username)
		}
		if update.Password != nil {
			setClauses = append(setClauses, "encrypted_password = ?")
			args = append(args, obfuscatePassword(*update.Password))
		}
	}
	if update.ClearLastSync {
		setClauses = append(setClauses, "last_sync = NULL")
	} else if update.LastSync != nil {
		setClauses = append(setClauses, "last_sync = ?")
		args = append(args, *update.LastSync)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s.platforms SET %s WHERE id = ?", s.dbName, strings.Join(setClauses, ", "))
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}
