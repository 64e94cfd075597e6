// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ethoscan/evidence-resolver/internal/resolver"
)

// querier is the subset of pgxpool.Pool the stores use; pgxmock satisfies
// it in tests.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PoolConfig controls the shared Postgres connection pool.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// NewPool creates a pgx connection pool from the provided config.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// CitationStore reads and conditionally updates citation rows.
type CitationStore struct {
	pool querier
}

// NewCitationStore constructs a store over an existing pool.
func NewCitationStore(pool querier) (*CitationStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &CitationStore{pool: pool}, nil
}

// ListPending selects citations still awaiting resolution: pending status
// with a homepage or unset link kind, optionally narrowed to one event or
// one citation, capped at q.Limit.
func (s *CitationStore) ListPending(ctx context.Context, q resolver.PendingQuery) ([]resolver.Citation, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = resolver.DefaultLimit
	}

	builder := sq.Select("id", "event_id", "source_name", "source_url", "link_kind", "evidence_status").
		From("citations").
		Where(sq.Eq{"evidence_status": string(resolver.EvidencePending)}).
		Where(sq.Expr("(link_kind IS NULL OR link_kind IN ('', 'homepage'))")).
		PlaceholderFormat(sq.Dollar).
		Limit(uint64(limit))
	if q.EventID != "" {
		builder = builder.Where(sq.Eq{"event_id": q.EventID})
	}
	if q.CitationID != "" {
		builder = builder.Where(sq.Eq{"id": q.CitationID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build pending query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending citations: %w", err)
	}
	defer rows.Close()

	var citations []resolver.Citation
	for rows.Next() {
		var (
			cit      resolver.Citation
			linkKind *string
			status   string
		)
		if err := rows.Scan(&cit.ID, &cit.EventID, &cit.SourceName, &cit.SourceURL, &linkKind, &status); err != nil {
			return nil, fmt.Errorf("scan citation row: %w", err)
		}
		if linkKind != nil {
			cit.LinkKind = resolver.LinkKind(*linkKind)
		}
		cit.EvidenceStatus = resolver.EvidenceStatus(status)
		citations = append(citations, cit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate citation rows: %w", err)
	}
	return citations, nil
}

const markResolvedSQL = `
UPDATE citations
SET canonical_url = $2,
	archive_url = NULLIF($3, ''),
	article_title = NULLIF($4, ''),
	article_published_at = $5,
	link_kind = 'article',
	evidence_status = 'resolved',
	notes = $6
WHERE id = $1 AND canonical_url IS NULL`

// MarkResolved performs the compare-and-set write: the update only lands
// while canonical_url is still null, so repeats and overlapping runs are
// harmless. It reports whether a row was written.
func (s *CitationStore) MarkResolved(ctx context.Context, citationID string, fields resolver.ResolvedFields) (bool, error) {
	notesJSON, err := json.Marshal(fields.Notes)
	if err != nil {
		return false, fmt.Errorf("marshal notes: %w", err)
	}
	tag, err := s.pool.Exec(ctx, markResolvedSQL,
		citationID,
		fields.CanonicalURL,
		fields.ArchiveURL,
		fields.Title,
		fields.PublishedAt,
		notesJSON,
	)
	if err != nil {
		return false, fmt.Errorf("update citation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// HasCanonical reports whether any citation on the event already carries
// this exact canonical URL.
func (s *CitationStore) HasCanonical(ctx context.Context, eventID, canonicalURL string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM citations WHERE event_id = $1 AND canonical_url = $2)`
	var exists bool
	if err := s.pool.QueryRow(ctx, query, eventID, canonicalURL).Scan(&exists); err != nil {
		return false, fmt.Errorf("query duplicate canonical: %w", err)
	}
	return exists, nil
}
