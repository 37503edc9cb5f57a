package app

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hyperifyio/finweb/internal/extract"
	"github.com/hyperifyio/finweb/internal/fetch"
	"github.com/hyperifyio/finweb/internal/infer"
	"github.com/hyperifyio/finweb/internal/news"
)

type App struct {
	cfg       Config
	http      *http.Client
	fetcher   *fetch.Client
	source    news.Source
	forwarder infer.Forwarder
	prompter  *infer.Prompter
}

func New(ctx context.Context, cfg Config) (*App, error) {
	hc := newHighThroughputHTTPClient(cfg.Verbose)
	a := &App{
		cfg:  cfg,
		http: hc,
		fetcher: &fetch.Client{
			HTTPClient:        hc,
			UserAgent:         cfg.UserAgent,
			PerRequestTimeout: cfg.FetchTimeout,
			MaxConcurrent:     cfg.FetchMaxConcurrent,
		},
	}
	a.source = a.newSource()

	if cfg.Forward {
		p, err := infer.NewPrompter(cfg.PromptTemplate)
		if err != nil {
			return nil, err
		}
		a.prompter = p
		f, err := a.newForwarder(ctx)
		if err != nil {
			return nil, err
		}
		a.forwarder = f
	}
	return a, nil
}

func (a *App) newSource() news.Source {
	switch {
	case strings.TrimSpace(a.cfg.SavedSearch) != "":
		return &news.FileSource{Path: a.cfg.SavedSearch}
	case strings.TrimSpace(a.cfg.FeedURL) != "":
		return &news.FeedSource{URL: a.cfg.FeedURL, HTTPClient: a.http, UserAgent: a.cfg.UserAgent}
	default:
		return &news.SearchSource{
			Client: &news.Client{
				BaseURL:    a.cfg.NewsAPIURL,
				APIKey:     a.cfg.NewsAPIKey,
				HTTPClient: a.http,
				UserAgent:  a.cfg.UserAgent,
			},
			Query: news.Query{
				Q:        a.cfg.Query,
				SearchIn: a.cfg.SearchIn,
				Language: a.cfg.Language,
				PageSize: a.cfg.PageSize,
				SortBy:   a.cfg.SortBy,
			},
		}
	}
}

func (a *App) newForwarder(ctx context.Context) (infer.Forwarder, error) {
	switch a.cfg.LLMBackend {
	case BackendOllama, "":
		return &infer.OllamaForwarder{BaseURL: a.cfg.LLMBaseURL, Model: a.cfg.LLMModel, HTTPClient: a.http}, nil
	case BackendOpenAI:
		base := strings.TrimRight(a.cfg.LLMBaseURL, "/")
		if base == infer.DefaultOllamaURL {
			// Ollama serves the OpenAI-compatible API under /v1.
			base += "/v1"
		}
		f := &infer.OpenAIForwarder{
			Client: infer.NewOpenAIClient(a.cfg.LLMAPIKey, base, a.http),
			Model:  a.cfg.LLMModel,
		}
		f.Preflight(ctx)
		return f, nil
	default:
		return nil, fmt.Errorf("unknown llm backend %q", a.cfg.LLMBackend)
	}
}

func (a *App) Close() {
	a.http.CloseIdleConnections()
}

// Scrape fetches every URL and reduces each page to one line of visible text.
// The result has the same length and order as urls; failed fetches carry
// fetch.FailureSentinel.
func (a *App) Scrape(ctx context.Context, urls []string) []string {
	texts, _ := a.scrape(ctx, urls)
	return texts
}

func (a *App) scrape(ctx context.Context, urls []string) ([]string, []fetch.Result) {
	start := time.Now()
	results := a.fetcher.FetchAll(ctx, urls)
	failed := lo.CountBy(results, func(r fetch.Result) bool { return !r.OK() })
	log.Info().
		Int("urls", len(urls)).
		Int("failed", failed).
		Dur("elapsed", time.Since(start)).
		Msg("fetched pages")

	texts := extract.ExtractAll(fetch.Texts(results))
	return texts, results
}

// Run executes the whole pipeline: collect links, scrape them, write the
// artifacts and optionally forward every text to the inference backend.
func (a *App) Run(ctx context.Context) error {
	runID := uuid.NewString()
	logger := log.With().Str("run", runID).Str("source", a.source.Name()).Logger()
	ctx = logger.WithContext(ctx)

	links, raw, err := a.source.Links(ctx)
	if len(raw) > 0 {
		if werr := writeRawJSON(a.path(SearchFile), raw); werr != nil {
			return werr
		}
	}
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	logger.Info().Int("links", len(links)).Msg("collected article links")

	texts, results := a.scrape(ctx, links)

	if err := writeJSON(a.path(ArticlesFile), texts); err != nil {
		return err
	}
	m := manifest{
		Meta: manifestMeta{
			RunID:        runID,
			Source:       a.source.Name(),
			Version:      BuildVersion,
			ArticleCount: len(texts),
			Forwarded:    a.forwarder != nil,
			GeneratedAt:  time.Now().UTC(),
		},
		Articles: buildManifestEntries(results, texts),
	}
	if a.forwarder != nil {
		m.Meta.Model = a.cfg.LLMModel
	}
	if err := writeJSON(a.path(ManifestFile), m); err != nil {
		return err
	}
	if a.cfg.EnablePDF {
		if err := writeArticlesPDF(links, texts, a.path(PDFFile)); err != nil {
			return err
		}
	}
	logger.Info().Str("out", a.cfg.OutDir).Int("articles", len(texts)).Msg("wrote articles")

	if a.forwarder == nil {
		return nil
	}
	responses, err := infer.ForwardAll(ctx, a.forwarder, a.prompter, texts)
	if err == nil || len(responses) > 0 {
		if werr := writeJSON(a.path(ResponseFile), responses); werr != nil {
			return werr
		}
	}
	if err != nil {
		return fmt.Errorf("forward: %w", err)
	}
	logger.Info().Int("responses", len(responses)).Msg("forwarded articles")
	return nil
}

func (a *App) path(name string) string {
	return filepath.Join(a.cfg.OutDir, name)
}
