package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/updateme/engine/internal/core/domain/cache"
	"github.com/updateme/engine/internal/core/ports"
	"github.com/updateme/engine/internal/infrastructure/db"
)

// CacheRepository stores cache entries in postgres or sqlite. Queries are
// written with ? placeholders and rebound for the driver in use.
type CacheRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

var _ ports.CacheRepository = (*CacheRepository)(nil)

// NewCacheRepository creates a new cache repository
func NewCacheRepository(database *db.Database, logger *logrus.Logger) *CacheRepository {
	return &CacheRepository{db: database, logger: logger}
}

const cacheColumns = `id, cache_key, payload_kind, payload, created_at, created_date, provider_type, query, tags, ttl_days`

type cacheRow struct {
	ID           uuid.UUID      `db:"id"`
	CacheKey     string         `db:"cache_key"`
	PayloadKind  string         `db:"payload_kind"`
	Payload      []byte         `db:"payload"`
	CreatedAt    time.Time      `db:"created_at"`
	CreatedDate  string         `db:"created_date"`
	ProviderType string         `db:"provider_type"`
	Query        sql.NullString `db:"query"`
	Tags         []byte         `db:"tags"`
	TTLDays      int            `db:"ttl_days"`
}

func (row *cacheRow) entry() (*cache.Entry, error) {
	payload, err := cache.DecodePayload(row.PayloadKind, row.Payload)
	if err != nil {
		return nil, err
	}
	e := &cache.Entry{
		ID:           row.ID,
		CacheKey:     row.CacheKey,
		Payload:      payload,
		CreatedAt:    row.CreatedAt.UTC(),
		CreatedDate:  row.CreatedDate,
		ProviderType: row.ProviderType,
		TTLDays:      row.TTLDays,
	}
	if row.Query.Valid {
		q := row.Query.String
		e.Query = &q
	}
	if len(row.Tags) > 0 {
		if err := json.Unmarshal(row.Tags, &e.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
	}
	return e, nil
}

func (r *CacheRepository) FindByKey(ctx context.Context, key string) (*cache.Entry, error) {
	var row cacheRow
	query := r.db.DB.Rebind(`SELECT ` + cacheColumns + ` FROM cache_entries WHERE cache_key = ?`)
	if err := r.db.DB.GetContext(ctx, &row, query, key); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if r.logger != nil {
			r.logger.WithField("cache_key", key).WithError(err).Error("db: failed to get cache entry")
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return row.entry()
}

func (r *CacheRepository) DeleteByKey(ctx context.Context, key string) error {
	query := r.db.DB.Rebind(`DELETE FROM cache_entries WHERE cache_key = ?`)
	if _, err := r.db.DB.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

func (r *CacheRepository) Insert(ctx context.Context, e *cache.Entry) error {
	return r.insert(ctx, r.db.DB, e)
}

// Replace deletes and inserts inside one transaction.
func (r *CacheRepository) Replace(ctx context.Context, e *cache.Entry) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM cache_entries WHERE cache_key = ?`), e.CacheKey); err != nil {
		return fmt.Errorf("failed to delete previous cache entry: %w", err)
	}
	if err := r.insert(ctx, tx, e); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache entry: %w", err)
	}
	return nil
}

func (r *CacheRepository) insert(ctx context.Context, exec sqlx.ExtContext, e *cache.Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	payload, err := e.Payload.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	var q any
	if e.Query != nil {
		q = *e.Query
	}

	query := exec.Rebind(`INSERT INTO cache_entries (` + cacheColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = exec.ExecContext(ctx, query,
		e.ID.String(), e.CacheKey, string(e.Payload.Kind), string(payload), e.CreatedAt.UTC(),
		e.CreatedDate, e.ProviderType, q, string(tagsJSON), e.TTLDays)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"cache_key": e.CacheKey, "provider_type": e.ProviderType}).WithError(err).Error("db: failed to insert cache entry")
		}
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

func (r *CacheRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := r.db.DB.Rebind(`DELETE FROM cache_entries WHERE created_at < ?`)
	res, err := r.db.DB.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted cache entries: %w", err)
	}
	return n, nil
}

func (r *CacheRepository) FindByProviderAndDate(ctx context.Context, providerType, date string) ([]*cache.Entry, error) {
	var rows []cacheRow
	query := r.db.DB.Rebind(`SELECT ` + cacheColumns + ` FROM cache_entries WHERE provider_type = ? AND created_date = ? ORDER BY created_at DESC`)
	if err := r.db.DB.SelectContext(ctx, &rows, query, providerType, date); err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}
	out := make([]*cache.Entry, 0, len(rows))
	for i := range rows {
		e, err := rows[i].entry()
		if err != nil {
			if r.logger != nil {
				r.logger.WithField("cache_key", rows[i].CacheKey).WithError(err).Warn("db: skipping undecodable cache entry")
			}
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *CacheRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.DB.GetContext(ctx, &n, `SELECT COUNT(*) FROM cache_entries`); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}
