package infer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/morikuni/failure/v2"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIForwarder sends each prompt as the single user message of a chat
// completion against an OpenAI-compatible API.
type OpenAIForwarder struct {
	Client ChatClient
	Model  string
	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration
}

func (f *OpenAIForwarder) Forward(ctx context.Context, prompt string) (json.RawMessage, error) {
	model := f.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	resp, err := f.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, failure.Wrap(err, failure.WithCode(ErrForwardFailed),
			failure.Message("chat completion failed"),
			failure.Context{"model": model})
	}
	if len(resp.Choices) == 0 {
		return nil, failure.New(ErrBadResponse,
			failure.Message("chat completion returned no choices"),
			failure.Context{"model": model})
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return nil, failure.Wrap(err, failure.WithCode(ErrBadResponse))
	}
	return b, nil
}

// Preflight lists the backend's models. It only warns: an unreachable
// backend surfaces again as a Forward error.
func (f *OpenAIForwarder) Preflight(ctx context.Context) {
	lister, ok := f.Client.(ModelLister)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := lister.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("LLM model list failed; continuing")
		return
	}
	if len(models.Models) == 0 {
		log.Warn().Msg("LLM returned zero models")
		return
	}
	log.Info().Int("count", len(models.Models)).Msg("LLM models available")
}
