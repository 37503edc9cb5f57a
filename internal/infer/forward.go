package infer

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/morikuni/failure/v2"
	"github.com/rs/zerolog/log"
)

// ForwardAll renders and forwards each text in order, one request at a time.
// The first error stops the loop; responses gathered so far are returned with
// it.
func ForwardAll(ctx context.Context, f Forwarder, p *Prompter, texts []string) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return out, failure.Wrap(err, failure.WithCode(ErrForwardFailed),
				failure.Context{"index": strconv.Itoa(i)})
		}
		prompt, err := p.Render(text)
		if err != nil {
			return out, err
		}
		resp, err := f.Forward(ctx, prompt)
		if err != nil {
			return out, failure.Wrap(err, failure.Context{"index": strconv.Itoa(i)})
		}
		log.Debug().Int("index", i).Int("bytes", len(resp)).Msg("forwarded article")
		out = append(out, resp)
	}
	return out, nil
}
