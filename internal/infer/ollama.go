package infer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/morikuni/failure/v2"
)

const (
	// DefaultOllamaURL is where a local Ollama server listens.
	DefaultOllamaURL = "http://localhost:11434"
	// DefaultModel is the model requested when none is configured.
	DefaultModel = "llama3.2:latest"
	// DefaultTimeout bounds one inference request.
	DefaultTimeout = 120 * time.Second

	generatePath = "/api/generate"
)

// Forwarder sends one prompt to an inference backend and returns its JSON
// response unchanged.
type Forwarder interface {
	Forward(ctx context.Context, prompt string) (json.RawMessage, error)
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// OllamaForwarder posts non-streaming generate requests to an Ollama server.
type OllamaForwarder struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration
}

func (o *OllamaForwarder) Forward(ctx context.Context, prompt string) (json.RawMessage, error) {
	base := o.BaseURL
	if base == "" {
		base = DefaultOllamaURL
	}
	model := o.Model
	if model == "" {
		model = DefaultModel
	}
	endpoint := strings.TrimRight(base, "/")
	if !strings.HasSuffix(endpoint, generatePath) {
		endpoint += generatePath
	}

	payload, err := json.Marshal(generateRequest{Model: model, Prompt: prompt, Stream: false})
	if err != nil {
		return nil, failure.Wrap(err, failure.WithCode(ErrForwardFailed))
	}

	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, failure.Wrap(err, failure.WithCode(ErrForwardFailed),
			failure.Message("invalid inference endpoint"),
			failure.Context{"url": endpoint})
	}
	req.Header.Set("Content-Type", "application/json")

	hc := o.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, failure.Wrap(err, failure.WithCode(ErrForwardFailed),
			failure.Message("inference request failed"),
			failure.Context{"url": endpoint})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure.Wrap(err, failure.WithCode(ErrForwardFailed),
			failure.Message("reading inference response failed"))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, failure.New(ErrForwardFailed,
			failure.Message("inference status: "+resp.Status),
			failure.Context{"url": endpoint, "status": strconv.Itoa(resp.StatusCode), "body": truncate(string(body), 200)})
	}
	if !json.Valid(body) {
		return nil, failure.New(ErrBadResponse,
			failure.Message("inference response is not JSON"),
			failure.Context{"url": endpoint})
	}
	return json.RawMessage(body), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
