package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/p-n-ai/pai-learn/internal/curriculum"
)

// maxResponseBytes caps a single API payload.
const maxResponseBytes = 8 << 20

// HTTPProvider reads content from the primary JSON API.
type HTTPProvider struct {
	baseURL string
	token   string
	client  *http.Client
	name    string
}

// HTTPOption configures an HTTPProvider.
type HTTPOption func(*HTTPProvider)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(p *HTTPProvider) {
		p.client = client
	}
}

// WithBearerToken authenticates every request with the given token.
func WithBearerToken(token string) HTTPOption {
	return func(p *HTTPProvider) {
		p.token = token
	}
}

// WithProviderName sets the provider name used in logs.
func WithProviderName(name string) HTTPOption {
	return func(p *HTTPProvider) {
		p.name = name
	}
}

// NewHTTPProvider creates a provider for the content API at baseURL.
func NewHTTPProvider(baseURL string, opts ...HTTPOption) *HTTPProvider {
	p := &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
		name:    "http",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *HTTPProvider) Name() string { return p.name }

func (p *HTTPProvider) Catalog(ctx context.Context) (curriculum.Catalog, error) {
	var tiers struct {
		Tiers []curriculum.Tier `json:"tiers"`
	}
	if err := p.get(ctx, "/tiers", &tiers); err != nil {
		return curriculum.Catalog{}, err
	}
	var modules struct {
		Modules []curriculum.Module `json:"modules"`
	}
	if err := p.get(ctx, "/modules", &modules); err != nil {
		return curriculum.Catalog{}, err
	}
	return curriculum.Catalog{Tiers: tiers.Tiers, Modules: modules.Modules}, nil
}

func (p *HTTPProvider) Module(ctx context.Context, slug string) (curriculum.Module, error) {
	var m curriculum.Module
	if err := p.get(ctx, "/modules/"+url.PathEscape(slug), &m); err != nil {
		return curriculum.Module{}, err
	}
	if m.Slug == "" {
		return curriculum.Module{}, fmt.Errorf("module %q: response has no slug", slug)
	}
	return m, nil
}

func (p *HTTPProvider) Lessons(ctx context.Context, slug string) ([]curriculum.Lesson, error) {
	var resp struct {
		Lessons []curriculum.Lesson `json:"lessons"`
	}
	if err := p.get(ctx, "/modules/"+url.PathEscape(slug)+"/lessons", &resp); err != nil {
		return nil, err
	}
	return resp.Lessons, nil
}

func (p *HTTPProvider) Quiz(ctx context.Context, slug string) ([]curriculum.RawQuestion, error) {
	var resp QuizDocument
	if err := p.get(ctx, "/modules/"+url.PathEscape(slug)+"/quiz", &resp); err != nil {
		return nil, err
	}
	return resp.Questions, nil
}

// get fetches path and decodes the JSON body into out. A 404 maps to
// ErrNotFound; any other non-2xx status or undecodable body is an error.
func (p *HTTPProvider) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", p.name, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("content api error (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// HealthCheck checks the API by listing its tiers.
func (p *HTTPProvider) HealthCheck(ctx context.Context) error {
	var tiers struct {
		Tiers []curriculum.Tier `json:"tiers"`
	}
	if err := p.get(ctx, "/tiers", &tiers); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
