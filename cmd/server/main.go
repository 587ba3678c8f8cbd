package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-learn/internal/api"
	"github.com/p-n-ai/pai-learn/internal/content"
	"github.com/p-n-ai/pai-learn/internal/curriculum"
	"github.com/p-n-ai/pai-learn/internal/platform/cache"
	"github.com/p-n-ai/pai-learn/internal/platform/config"
	"github.com/p-n-ai/pai-learn/internal/platform/database"
	"github.com/p-n-ai/pai-learn/internal/progress"
	"github.com/p-n-ai/pai-learn/internal/quiz"
)

// healthCheck reports whether a dependency is usable.
type healthCheck func(ctx context.Context) error

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	mux, cleanup, err := setup(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "sources", cfg.Content.Sources)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// setup connects every configured backend and returns the routed handler
// plus a cleanup func that releases the connections.
func setup(ctx context.Context, cfg *config.Config) (*http.ServeMux, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*http.ServeMux, func(), error) {
		cleanup()
		return nil, nil, err
	}
	checks := map[string]healthCheck{}

	var db *database.DB
	if cfg.NeedsDatabase() {
		var err error
		db, err = database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return fail(fmt.Errorf("connect database: %w", err))
		}
		closers = append(closers, db.Close)
		checks["database"] = db.HealthCheck

		if cfg.Database.AutoMigrate {
			if err := db.EnsureSchema(ctx); err != nil {
				return fail(err)
			}
		}
	}

	contentCache, err := newContentCache(ctx, cfg, checks, &closers)
	if err != nil {
		return fail(err)
	}

	providers, err := newProviders(cfg.Content, db, checks)
	if err != nil {
		return fail(err)
	}

	resolver := content.NewResolver(content.ResolverConfig{
		Providers: providers,
		Cache:     contentCache,
		Timeout:   cfg.Content.Timeout,
		Slugs:     seedSlugs(cfg.Content.CatalogFile),
	})

	var store progress.Store = progress.NewMemoryStore()
	if cfg.Progress.Store == config.BackendPostgres {
		pg, err := progress.NewPostgresStore(db.Pool)
		if err != nil {
			return fail(err)
		}
		store = pg
	}

	var events quiz.EventLogger = quiz.NopEventLogger{}
	if db != nil {
		events = quiz.NewPostgresEventLogger(db.Pool)
	}
	sel := quiz.SelectFirst
	if cfg.Quiz.Selection == "random" {
		sel = quiz.SelectRandom
	}
	quizzes := quiz.NewService(quiz.ServiceConfig{
		Store:         quiz.NewMemoryStore(cfg.Quiz.SessionTTL),
		Events:        events,
		Progress:      store,
		Select:        sel,
		QuestionCount: cfg.Quiz.QuestionCount,
	})

	mux := newMux(checks)
	api.New(api.Config{
		Content:             resolver,
		Progress:            store,
		Quiz:                quizzes,
		DefaultPassingScore: cfg.Quiz.DefaultPassingScore,
	}).Register(mux)

	return mux, cleanup, nil
}

func newContentCache(ctx context.Context, cfg *config.Config, checks map[string]healthCheck, closers *[]func()) (content.Cache, error) {
	switch cfg.Content.Cache {
	case config.BackendMemory:
		return content.NewMemoryCache(cfg.Content.CacheTTL, cfg.Content.CacheMaxEntries), nil
	case config.BackendRedis:
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return nil, fmt.Errorf("connect cache: %w", err)
		}
		*closers = append(*closers, func() { _ = c.Close() })
		checks["cache"] = c.HealthCheck

		// Cached content lives only as long as the process that filled it.
		n, err := c.DeletePrefix(ctx, content.RedisKeyPrefix)
		if err != nil {
			slog.Warn("failed to clear content cache", "error", err)
		} else if n > 0 {
			slog.Info("cleared content cache", "keys", n)
		}
		return content.NewRedisCache(c.Client, cfg.Content.CacheTTL), nil
	default:
		return nil, nil
	}
}

func newProviders(cfg config.ContentConfig, db *database.DB, checks map[string]healthCheck) ([]content.Provider, error) {
	providers := make([]content.Provider, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		switch src {
		case config.SourceHTTP:
			p := content.NewHTTPProvider(cfg.APIURL,
				content.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
				content.WithBearerToken(cfg.APIToken),
			)
			// The API gates readiness only when nothing can stand in for it.
			if len(cfg.Sources) == 1 {
				checks["content_api"] = p.HealthCheck
			}
			providers = append(providers, p)
		case config.SourceStatic:
			p, err := content.NewStaticProvider(os.DirFS(cfg.StaticDir), staticCatalogName(cfg.StaticDir, cfg.CatalogFile))
			if err != nil {
				return nil, fmt.Errorf("static content: %w", err)
			}
			providers = append(providers, p)
		case config.SourcePostgres:
			p, err := content.NewPostgresProvider(db.Pool)
			if err != nil {
				return nil, fmt.Errorf("postgres content: %w", err)
			}
			providers = append(providers, p)
		}
	}
	return providers, nil
}

// staticCatalogName returns the catalog path relative to the static
// directory, or the default name when the catalog lives elsewhere.
func staticCatalogName(dir, catalogFile string) string {
	rel, err := filepath.Rel(dir, catalogFile)
	if err != nil || !fs.ValidPath(filepath.ToSlash(rel)) {
		return content.DefaultCatalogFile
	}
	return filepath.ToSlash(rel)
}

// seedSlugs builds the initial slug index from the catalog file so short
// slugs resolve before any catalog request.
func seedSlugs(path string) *curriculum.SlugIndex {
	empty, _ := curriculum.NewSlugIndex(nil)
	cat, err := curriculum.LoadCatalogFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to seed slug index", "path", path, "error", err)
		}
		return empty
	}
	idx, err := curriculum.SlugIndexFromModules(cat.Modules)
	if err != nil {
		slog.Warn("catalog slug pairs rejected", "path", path, "error", err)
		return empty
	}
	slog.Info("slug index seeded", "path", path, "pairs", idx.Len())
	return idx
}

// newMux creates the HTTP router with health check endpoints.
func newMux(checks map[string]healthCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", handleReadyz(checks))
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func handleReadyz(checks map[string]healthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failed := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if len(failed) > 0 {
			slog.Warn("readiness check failed", "failed", failed)
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]any{"status": "not ready", "failed": failed})
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}
}
