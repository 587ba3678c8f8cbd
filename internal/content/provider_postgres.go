package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-learn/internal/curriculum"
)

const dbTimeout = 5 * time.Second

// PostgresProvider reads content documents stored as JSONB in the
// content_* tables.
type PostgresProvider struct {
	pool *pgxpool.Pool
}

// NewPostgresProvider creates a PostgreSQL-backed provider.
func NewPostgresProvider(pool *pgxpool.Pool) (*PostgresProvider, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresProvider{pool: pool}, nil
}

func (p *PostgresProvider) Name() string { return "postgres" }

func (p *PostgresProvider) Catalog(ctx context.Context) (curriculum.Catalog, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tiers, err := queryDocs[curriculum.Tier](ctx, p.pool,
		`SELECT doc FROM content_tiers ORDER BY level`)
	if err != nil {
		return curriculum.Catalog{}, fmt.Errorf("query tiers: %w", err)
	}
	modules, err := queryDocs[curriculum.Module](ctx, p.pool,
		`SELECT doc FROM content_modules ORDER BY slug`)
	if err != nil {
		return curriculum.Catalog{}, fmt.Errorf("query modules: %w", err)
	}
	if len(tiers) == 0 && len(modules) == 0 {
		return curriculum.Catalog{}, fmt.Errorf("postgres catalog: %w", ErrNotFound)
	}
	return curriculum.Catalog{Tiers: tiers, Modules: modules}, nil
}

func (p *PostgresProvider) Module(ctx context.Context, slug string) (curriculum.Module, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var raw []byte
	err := p.pool.QueryRow(ctx,
		`SELECT doc FROM content_modules WHERE slug = $1`,
		slug,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return curriculum.Module{}, fmt.Errorf("module %q: %w", slug, ErrNotFound)
	}
	if err != nil {
		return curriculum.Module{}, fmt.Errorf("query module: %w", err)
	}

	var m curriculum.Module
	if err := json.Unmarshal(raw, &m); err != nil {
		return curriculum.Module{}, fmt.Errorf("decode module %q: %w", slug, err)
	}
	if m.Slug == "" {
		m.Slug = slug
	}
	return m, nil
}

func (p *PostgresProvider) Lessons(ctx context.Context, slug string) ([]curriculum.Lesson, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := p.exists(ctx, slug); err != nil {
		return nil, err
	}
	lessons, err := queryDocs[curriculum.Lesson](ctx, p.pool,
		`SELECT doc || jsonb_build_object('order', lesson_order)
		 FROM content_lessons
		 WHERE module_slug = $1
		 ORDER BY lesson_order`,
		slug,
	)
	if err != nil {
		return nil, fmt.Errorf("query lessons: %w", err)
	}
	return lessons, nil
}

func (p *PostgresProvider) Quiz(ctx context.Context, slug string) ([]curriculum.RawQuestion, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := p.exists(ctx, slug); err != nil {
		return nil, err
	}
	questions, err := queryDocs[curriculum.RawQuestion](ctx, p.pool,
		`SELECT doc FROM content_questions WHERE module_slug = $1 ORDER BY position`,
		slug,
	)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	return questions, nil
}

// SaveDocument upserts a module document, replacing its lessons and questions.
// It exists to seed the content tables; the server itself only reads them.
func (p *PostgresProvider) SaveDocument(ctx context.Context, doc ModuleDocument) error {
	if doc.Module.Slug == "" {
		return fmt.Errorf("module slug is required")
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	module, err := json.Marshal(doc.Module)
	if err != nil {
		return fmt.Errorf("marshal module: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO content_modules (slug, short_slug, doc)
		 VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (slug) DO UPDATE SET short_slug = EXCLUDED.short_slug, doc = EXCLUDED.doc`,
		doc.Module.Slug, doc.Module.ShortSlug, string(module),
	); err != nil {
		return fmt.Errorf("upsert module: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM content_lessons WHERE module_slug = $1`, doc.Module.Slug); err != nil {
		return fmt.Errorf("clear lessons: %w", err)
	}
	for _, l := range doc.Lessons {
		data, err := json.Marshal(l)
		if err != nil {
			return fmt.Errorf("marshal lesson: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO content_lessons (module_slug, lesson_order, doc)
			 VALUES ($1, $2, $3::jsonb)
			 ON CONFLICT (module_slug, lesson_order) DO NOTHING`,
			doc.Module.Slug, l.Order, string(data),
		); err != nil {
			return fmt.Errorf("insert lesson: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM content_questions WHERE module_slug = $1`, doc.Module.Slug); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}
	for i, q := range doc.Quiz.Questions {
		data, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("marshal question: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO content_questions (module_slug, position, doc) VALUES ($1, $2, $3::jsonb)`,
			doc.Module.Slug, i, string(data),
		); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SaveTier upserts a tier. Like SaveDocument it only seeds the store.
func (p *PostgresProvider) SaveTier(ctx context.Context, tier curriculum.Tier) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	data, err := json.Marshal(tier)
	if err != nil {
		return fmt.Errorf("marshal tier: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO content_tiers (level, doc) VALUES ($1, $2::jsonb)
		 ON CONFLICT (level) DO UPDATE SET doc = EXCLUDED.doc`,
		tier.Level, string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert tier: %w", err)
	}
	return nil
}

func (p *PostgresProvider) exists(ctx context.Context, slug string) error {
	var found bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM content_modules WHERE slug = $1)`,
		slug,
	).Scan(&found)
	if err != nil {
		return fmt.Errorf("query module: %w", err)
	}
	if !found {
		return fmt.Errorf("module %q: %w", slug, ErrNotFound)
	}
	return nil
}

// queryDocs decodes a single JSONB column per row into T.
func queryDocs[T any](ctx context.Context, pool *pgxpool.Pool, sql string, args ...any) ([]T, error) {
	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
