package app

import (
	"time"

	"github.com/hyperifyio/finweb/internal/fetch"
	"github.com/hyperifyio/finweb/internal/infer"
	"github.com/hyperifyio/finweb/internal/news"
)

// Backend names accepted for LLMBackend.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

// Config holds runtime configuration for the application.
type Config struct {
	// Source
	NewsAPIURL  string `validate:"omitempty,url"`
	NewsAPIKey  string
	Query       string `validate:"required_without_all=FeedURL SavedSearch"`
	Language    string
	SearchIn    string
	PageSize    int    `validate:"gte=0,lte=100"`
	SortBy      string `validate:"omitempty,oneof=relevancy popularity publishedAt"`
	FeedURL     string `validate:"omitempty,url"`
	SavedSearch string

	// Output
	OutDir    string `validate:"required"`
	EnablePDF bool

	// Fetch
	FetchTimeout       time.Duration `validate:"gte=0"`
	FetchMaxConcurrent int           `validate:"gte=0"`
	UserAgent          string

	// LLM forwarding
	Forward        bool
	LLMBackend     string `validate:"oneof=ollama openai"`
	LLMBaseURL     string `validate:"omitempty,url"`
	LLMModel       string
	LLMAPIKey      string
	PromptTemplate string

	// Behavior
	Verbose bool
}

const defaultUserAgent = "finweb/1.0 (+https://github.com/hyperifyio/finweb)"

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() Config {
	q := news.DefaultQuery()
	return Config{
		NewsAPIURL:   news.DefaultBaseURL,
		Query:        q.Q,
		Language:     q.Language,
		SearchIn:     q.SearchIn,
		OutDir:       "out",
		FetchTimeout: fetch.DefaultTimeout,
		UserAgent:    defaultUserAgent,
		LLMBackend:   BackendOllama,
		LLMBaseURL:   infer.DefaultOllamaURL,
		LLMModel:     infer.DefaultModel,
	}
}
