package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-learn/internal/curriculum"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store on the learner_progress table.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore creates a PostgreSQL-backed progress store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

func (s *PostgresStore) Progress(ctx context.Context, learnerID string) (map[string]curriculum.ProgressEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT module_slug, status
		 FROM learner_progress
		 WHERE learner_id = $1`,
		learnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	out := make(map[string]curriculum.ProgressEntry)
	for rows.Next() {
		var slug, status string
		if err := rows.Scan(&slug, &status); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out[slug] = curriculum.ProgressEntry{
			ModuleSlug:       slug,
			CompletionStatus: curriculum.CompletionStatus(status),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, learnerID, moduleSlug string, status curriculum.CompletionStatus) error {
	if err := checkSetStatus(learnerID, moduleSlug, status); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	// The WHERE clause keeps completed rows untouched.
	_, err := s.pool.Exec(ctx,
		`INSERT INTO learner_progress (learner_id, module_slug, status, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (learner_id, module_slug) DO UPDATE
		 SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
		 WHERE learner_progress.status <> $5`,
		learnerID,
		moduleSlug,
		string(status),
		s.now(),
		string(curriculum.Completed),
	)
	if err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}
