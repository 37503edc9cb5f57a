package infer

import (
	"context"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// ChatClient is the slice of the OpenAI API the forwarder needs, so any
// OpenAI-compatible backend or a test double can stand in.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ModelLister is optional; callers type-assert for it.
type ModelLister interface {
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// NewOpenAIClient builds a go-openai client for baseURL. An empty baseURL
// keeps the library default.
func NewOpenAIClient(apiKey, baseURL string, hc *http.Client) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if hc != nil {
		cfg.HTTPClient = hc
	}
	return openai.NewClientWithConfig(cfg)
}
