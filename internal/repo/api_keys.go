package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"tradedesk/internal/domain"
)

// HashAPIKey returns a stable SHA-256 hex digest for the provided key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

// InsertAPIKey stores a hashed API key. KeyHash must already contain the hashed value.
func (r Repo) InsertAPIKey(ctx context.Context, tx *sql.Tx, key domain.APIKey) error {
	if key.ID == "" {
		return errors.New("id required")
	}
	if key.BusinessID == "" {
		return errors.New("business_id required")
	}
	if key.KeyHash == "" {
		return errors.New("key_hash required")
	}
	exec := func(query string, args ...any) (sql.Result, error) {
		if tx != nil {
			return tx.ExecContext(ctx, query, args...)
		}
		return r.DB.ExecContext(ctx, query, args...)
	}
	if key.CreatedAt == "" {
		key.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := exec(`INSERT INTO api_keys(id, business_id, name, key_hash, created_at) VALUES (?,?,?,?,?)`,
		key.ID, key.BusinessID, nullable(key.Name), key.KeyHash, key.CreatedAt)
	return err
}

// GetAPIKeyByHash returns an API key by its hashed value.
func (r Repo) GetAPIKeyByHash(ctx context.Context, hash string) (domain.APIKey, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id, business_id, COALESCE(name,''), key_hash, created_at, last_used_at FROM api_keys WHERE key_hash=? LIMIT 1`, hash)
	var key domain.APIKey
	var name string
	var lastUsed sql.NullString
	err := row.Scan(&key.ID, &key.BusinessID, &name, &key.KeyHash, &key.CreatedAt, &lastUsed)
	if err == sql.ErrNoRows {
		return domain.APIKey{}, ErrNotFound
	}
	if err != nil {
		return domain.APIKey{}, err
	}
	key.Name = name
	if lastUsed.Valid {
		key.LastUsedAt = &lastUsed.String
	}
	return key, nil
}

// TouchAPIKey records when a key last authenticated a request.
func (r Repo) TouchAPIKey(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE api_keys SET last_used_at=? WHERE id=?`, nowRFC3339(), id)
	return err
}

// ListAPIKeys returns API keys, optionally filtered by business ID.
func (r Repo) ListAPIKeys(ctx context.Context, businessID string) ([]domain.APIKey, error) {
	query := `SELECT id, business_id, COALESCE(name,''), key_hash, created_at, last_used_at FROM api_keys`
	var args []any
	if businessID != "" {
		query += ` WHERE business_id=?`
		args = append(args, businessID)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []domain.APIKey
	for rows.Next() {
		var key domain.APIKey
		var name string
		var lastUsed sql.NullString
		if err := rows.Scan(&key.ID, &key.BusinessID, &name, &key.KeyHash, &key.CreatedAt, &lastUsed); err != nil {
			return nil, err
		}
		key.Name = name
		if lastUsed.Valid {
			key.LastUsedAt = &lastUsed.String
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// DeleteAPIKey deletes an API key by ID.
func (r Repo) DeleteAPIKey(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("id required")
	}
	_, err := r.DB.ExecContext(ctx, `DELETE FROM api_keys WHERE id=?`, id)
	return err
}
